package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

type Kind string

const (
	KindImport Kind = "import"
	KindUpdate Kind = "update"
)

// Message is a row-numbered line of a report.
type Message struct {
	Row    int    `json:"row"`
	BookId string `json:"book_id,omitempty"`
	Text   string `json:"message"`
}

func (m Message) String() string {
	if m.BookId != "" {
		return "Row " + strconv.Itoa(m.Row) + " (BookId: " + m.BookId + "): " + m.Text
	}

	return "Row " + strconv.Itoa(m.Row) + ": " + m.Text
}

// Summary counts the outcome of the write phase of a batch.
type Summary struct {
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Unmatched int       `json:"unmatched"`
	Errors    []Message `json:"errors"`
	Warnings  []Message `json:"warnings"`
}

func (s *Summary) fail(row int, bookId, text string) {
	s.Failed++
	s.Errors = append(s.Errors, Message{Row: row, BookId: bookId, Text: text})
}

func (s *Summary) unmatched(row int, bookId string) {
	s.Unmatched++
	s.Errors = append(s.Errors, Message{
		Row:    row,
		BookId: bookId,
		Text:   "no book with ID " + bookId + " in your collection",
	})
}

func (s *Summary) warn(row int, bookId, text string) {
	s.Warnings = append(s.Warnings, Message{Row: row, BookId: bookId, Text: text})
}

type Report struct {
	Kind    Kind      `json:"kind"`
	Field   string    `json:"field,omitempty"`
	Valid   int       `json:"valid"`
	Ignored []Message `json:"ignored"`
	Summary
}

// NewImportReport combines the two phases of an import.
func NewImportReport(v *Validation, s *Summary) *Report {
	r := &Report{Kind: KindImport, Valid: len(v.Valid), Summary: *s}
	for _, rej := range v.Invalid {
		r.Ignored = append(r.Ignored, Message{Row: rej.Row.N, Text: rej.Reason})
	}

	return r
}

func NewUpdateReport(field Field, s *Summary) *Report {
	return &Report{Kind: KindUpdate, Field: field.String(), Summary: *s}
}

func section(b *strings.Builder, title string, messages []Message) {
	if len(messages) == 0 {
		return
	}

	b.WriteString(title + "\n")
	for i, m := range messages {
		fmt.Fprintf(b, "  %d. %s\n", i+1, m)
	}
}

// String renders the report as plain text. Equal reports render identically.
func (r *Report) String() string {
	var b strings.Builder

	switch r.Kind {
	case KindImport:
		fmt.Fprintf(&b, "Valid rows: %d | Ignored rows: %d\n", r.Valid, len(r.Ignored))
		if r.Valid > 0 {
			fmt.Fprintf(&b, "Upload completed: %d successful, %d failed\n", r.Succeeded, r.Failed)
		}
		section(&b, "Ignored rows:", r.Ignored)
		section(&b, "Upload errors:", r.Errors)
	case KindUpdate:
		fmt.Fprintf(&b, "Update completed: %d successful, %d failed, %d unmatched\n",
			r.Succeeded, r.Failed, r.Unmatched)
		fmt.Fprintf(&b, "Field updated: %s\n", r.Field)
		section(&b, "Errors:", r.Errors)
	}

	section(&b, "Warnings:", r.Warnings)

	return b.String()
}

// Run converts the report into the record kept in the import history.
func (r *Report) Run(owner uuid.UUID, started time.Time, took time.Duration) *types.IngestRun {
	run := &types.IngestRun{
		UserId:    owner,
		Kind:      string(r.Kind),
		Field:     r.Field,
		StartedAt: started,
		Duration:  took,
		Valid:     r.Valid,
		Invalid:   len(r.Ignored),
		Succeeded: r.Succeeded,
		Failed:    r.Failed,
		Unmatched: r.Unmatched,
	}

	add := func(kind string, ms []Message) {
		for _, m := range ms {
			run.Messages = append(run.Messages, types.RunMessage{Row: m.Row, Kind: kind, Message: m.String()})
		}
	}
	add("ignored", r.Ignored)
	add("error", r.Errors)
	add("warning", r.Warnings)

	return run
}
