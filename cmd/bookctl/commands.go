package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"bookshelf/internal/auth"
	"bookshelf/internal/export"
	"bookshelf/internal/ingest"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/migrations"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/storage/runs"
	"bookshelf/internal/storage/users"
)

type MigrateCmd struct {
	Direction string `arg:"" optional:"" enum:"up,down,status" default:"up" help:"One of up, down or status"`
}

func (c *MigrateCmd) Run(a *app) error {
	pool, err := a.db()
	if err != nil {
		return err
	}

	return migrations.Run(a.ctx, pool, migrations.Direction(c.Direction), a.l)
}

type UserCmd struct {
	Add UserAddCmd `cmd:"" help:"Register a user"`
}

type UserAddCmd struct {
	Email    string `arg:"" help:"Email address used to sign in"`
	Password string `env:"BOOKCTL_PASSWORD" required:"" help:"Password (at least 8 characters)"`
}

func (c *UserAddCmd) Run(a *app) error {
	pool, err := a.db()
	if err != nil {
		return err
	}

	svc := auth.NewService(users.NewPGXRepository(pool, a.l), auth.Options{}, a.l)

	u, err := svc.Register(a.ctx, c.Email, c.Password)
	if err != nil {
		return err
	}

	fmt.Println(u.Id.String())
	return nil
}

// OwnerFlag selects whose collection a command works on.
type OwnerFlag struct {
	Owner string `required:"" help:"Email of the collection owner"`
}

func (o OwnerFlag) resolve(a *app) (uuid.UUID, error) {
	pool, err := a.db()
	if err != nil {
		return uuid.Nil, err
	}

	u, err := users.NewPGXRepository(pool, a.l).GetByEmail(a.ctx, strings.ToLower(strings.TrimSpace(o.Owner)))
	if err != nil {
		return uuid.Nil, err
	}

	if u == nil {
		return uuid.Nil, fmt.Errorf("no user with email %q", o.Owner)
	}

	return u.Id, nil
}

type RefCmd struct {
	Add  RefAddCmd  `cmd:"" help:"Create a reference row"`
	List RefListCmd `cmd:"" help:"List a reference table"`
}

type RefAddCmd struct {
	Table   string `arg:"" help:"Table: publisher, type, group, author, label, library, language, status, country or continent"`
	Name    string `arg:""`
	Owner   string `help:"Email of the owner, required for per-user tables"`
	Country string `help:"Country of an author"`
}

func (c *RefAddCmd) Run(a *app) error {
	t, err := refs.ParseTable(c.Table)
	if err != nil {
		return err
	}

	pool, err := a.db()
	if err != nil {
		return err
	}

	repo := refs.NewPGXRepository(pool, a.l)
	ref := refs.NewRef{Name: c.Name}

	if t.UserScoped() {
		if c.Owner == "" {
			return fmt.Errorf("--owner is required for %s", t)
		}

		ref.Owner, err = OwnerFlag{Owner: c.Owner}.resolve(a)
		if err != nil {
			return err
		}
	}

	if c.Country != "" {
		if t != refs.Author {
			return errors.New("--country only applies to authors")
		}

		id, err := repo.FindId(a.ctx, refs.Country, uuid.Nil, c.Country)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("country %q does not exist", c.Country)
		}
		ref.CountryId = &id
	}

	created, err := repo.Create(a.ctx, t, ref)
	if err != nil {
		return err
	}

	fmt.Println(created.Id)
	return nil
}

type RefListCmd struct {
	Table string `arg:""`
	Owner string `help:"Email of the owner, required for per-user tables"`
}

func (c *RefListCmd) Run(a *app) error {
	t, err := refs.ParseTable(c.Table)
	if err != nil {
		return err
	}

	pool, err := a.db()
	if err != nil {
		return err
	}

	owner := uuid.Nil
	if t.UserScoped() {
		if owner, err = (OwnerFlag{Owner: c.Owner}).resolve(a); err != nil {
			return err
		}
	}

	rows, err := refs.NewPGXRepository(pool, a.l).List(a.ctx, t, owner)
	if err != nil {
		return err
	}

	for _, r := range rows {
		fmt.Printf("%d\t%s\n", r.Id, r.Name)
	}

	return nil
}

type BatchFlags struct {
	OwnerFlag `embed:""`
	File      string `arg:"" help:"CSV file, - for stdin"`
}

func (b BatchFlags) open() (io.ReadCloser, error) {
	if b.File == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	return os.Open(b.File)
}

type IngestFlags struct {
	Policy                string `help:"What an unknown reference does to a row: lenient leaves it empty, strict fails the row"`
	Atomic                bool   `help:"Write each row in its own transaction"`
	RejectBatchDuplicates bool   `help:"Reject rows repeating an ISBN seen earlier in the same file"`
}

// options overrides the environment settings with the flags given.
func (f IngestFlags) options(a *app) (ingest.Options, error) {
	opts := a.cfg.IngestOptions()

	if f.Policy != "" {
		p, err := ingest.ParsePolicy(f.Policy)
		if err != nil {
			return opts, err
		}
		opts.Policy = p
	}
	opts.Atomic = opts.Atomic || f.Atomic
	opts.RejectBatchDuplicates = opts.RejectBatchDuplicates || f.RejectBatchDuplicates

	return opts, nil
}

type batchRun func(svc *ingest.Service, owner uuid.UUID, r io.Reader) (*ingest.Report, error)

func runBatch(a *app, b BatchFlags, opts ingest.Options, run batchRun) error {
	owner, err := b.resolve(a)
	if err != nil {
		return err
	}

	f, err := b.open()
	if err != nil {
		return err
	}
	defer f.Close()

	pool, err := a.db()
	if err != nil {
		return err
	}

	svc := ingest.NewService(ingest.NewPGXStore(pool, a.l), runs.NewPGXRepository(pool, a.l), opts, a.l)

	report, err := run(svc, owner, f)
	if report != nil {
		fmt.Print(report.String())
	}

	return err
}

type ImportCmd struct {
	BatchFlags  `embed:""`
	IngestFlags `embed:""`
}

func (c *ImportCmd) Run(a *app) error {
	opts, err := c.options(a)
	if err != nil {
		return err
	}

	return runBatch(a, c.BatchFlags, opts, func(svc *ingest.Service, owner uuid.UUID, r io.Reader) (*ingest.Report, error) {
		return svc.Import(a.ctx, owner, r)
	})
}

type UpdateCmd struct {
	BatchFlags `embed:""`
	Policy     string `help:"What an unknown reference does to a row: lenient or strict"`
}

func (c *UpdateCmd) Run(a *app) error {
	opts, err := IngestFlags{Policy: c.Policy}.options(a)
	if err != nil {
		return err
	}

	return runBatch(a, c.BatchFlags, opts, func(svc *ingest.Service, owner uuid.UUID, r io.Reader) (*ingest.Report, error) {
		return svc.Update(a.ctx, owner, r)
	})
}

type ExportCmd struct {
	OwnerFlag     `embed:""`
	Format        string `enum:"csv,opds" default:"csv"`
	IngestHeaders bool   `help:"Write only importable columns under import header names"`
	Output        string `short:"o" default:"-" help:"Output file, - for stdout"`

	Status   string `help:"Only books with this status"`
	Library  string `help:"Only books in this library"`
	Language string `help:"Only books in this language"`
	Search   string `help:"Free-text search over title, ISBNs and creators"`
}

func (c *ExportCmd) Run(a *app) error {
	owner, err := c.resolve(a)
	if err != nil {
		return err
	}

	pool, err := a.db()
	if err != nil {
		return err
	}

	rows, err := books.NewPGXRepository(pool, a.l).Search(a.ctx, owner, books.Filter{
		Status:   c.Status,
		Library:  c.Library,
		Language: c.Language,
		Search:   c.Search,
		Sort:     books.SortTitle,
	})
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if c.Output != "-" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	if c.Format == "opds" {
		return export.WriteOPDS(w, rows, export.FeedOptions{Title: "Bookshelf"})
	}

	return export.WriteCSV(w, rows, export.CSVOptions{IngestHeaders: c.IngestHeaders})
}

type ImportsCmd struct {
	OwnerFlag `embed:""`
	Limit     uint `default:"10" help:"Number of runs to show"`
}

func (c *ImportsCmd) Run(a *app) error {
	owner, err := c.resolve(a)
	if err != nil {
		return err
	}

	pool, err := a.db()
	if err != nil {
		return err
	}

	list, err := runs.NewPGXRepository(pool, a.l).List(a.ctx, owner, c.Limit)
	if err != nil {
		return err
	}

	for _, r := range list {
		fmt.Printf("%s\t%s\t%s\tvalid=%d invalid=%d ok=%d failed=%d unmatched=%d\n",
			r.StartedAt.Format("2006-01-02 15:04:05"), r.Kind, r.Field, r.Valid, r.Invalid, r.Succeeded,
			r.Failed, r.Unmatched)
	}

	return nil
}
