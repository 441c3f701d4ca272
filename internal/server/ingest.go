package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"bookshelf/internal/export"
	"bookshelf/internal/ingest"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/types"
)

const maxRuns = 100

type reportResponse struct {
	*ingest.Report
	Text string `json:"text"`
}

// upload returns the CSV body of a request: the "file" part of a multipart form, or the raw body.
func (a *api) upload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "multipart/form-data" {
		return r.Body, true
	}

	f, _, err := r.FormFile("file")
	if err != nil {
		a.uploadError(w, r, err)
		return nil, false
	}

	return f, true
}

func (a *api) uploadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooBig *http.MaxBytesError
	var fileErr *ingest.FileError

	switch {
	case errors.As(err, &tooBig):
		a.rr.RespondClientError(w, r.Context(), http.StatusRequestEntityTooLarge, "file is too large")
	case errors.As(err, &fileErr):
		a.rr.BadRequest(w, r.Context(), err.Error())
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		a.rr.BadRequest(w, r.Context(), "a CSV file is required in the \"file\" field")
	default:
		a.rr.RespondAndLogError(w, r.Context(), err)
	}
}

func (a *api) sendReport(w http.ResponseWriter, r *http.Request, report *ingest.Report) {
	if strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, report.String())
		return
	}

	a.rr.SendJson(w, r.Context(), reportResponse{Report: report, Text: report.String()})
}

type batchFunc func(*http.Request, io.Reader) (*ingest.Report, error)

func (a *api) batch(w http.ResponseWriter, r *http.Request, run batchFunc) {
	body, ok := a.upload(w, r)
	if !ok {
		return
	}
	defer body.Close()

	report, err := run(r, body)
	if report == nil {
		a.uploadError(w, r, err)
		return
	}

	// an interrupted batch still reports the rows it got through
	a.sendReport(w, r, report)
}

func (a *api) importBooks(w http.ResponseWriter, r *http.Request) {
	a.batch(w, r, func(r *http.Request, body io.Reader) (*ingest.Report, error) {
		return a.Ingest.Import(r.Context(), owner(r), body)
	})
}

func (a *api) updateBooks(w http.ResponseWriter, r *http.Request) {
	a.batch(w, r, func(r *http.Request, body io.Reader) (*ingest.Report, error) {
		return a.Ingest.Update(r.Context(), owner(r), body)
	})
}

func (a *api) searchForExport(w http.ResponseWriter, r *http.Request) ([]types.BookView, bool) {
	rows, err := a.Books.Search(r.Context(), owner(r), books.ParseFilter(r.URL.Query()))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return nil, false
	}

	return rows, true
}

func (a *api) exportCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := a.searchForExport(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(time.Now())+`"`)

	err := export.WriteCSV(w, rows, export.CSVOptions{IngestHeaders: r.URL.Query().Get("headers") == "ingest"})
	if err != nil {
		// headers are gone already
		a.rr.Log(r.Context(), "Failed to write CSV export: "+err.Error())
	}
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}

	return scheme + "://" + r.Host + "/api"
}

func (a *api) exportOPDS(w http.ResponseWriter, r *http.Request) {
	rows, ok := a.searchForExport(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/atom+xml;profile=opds-catalog;kind=acquisition")

	err := export.WriteOPDS(w, rows, export.FeedOptions{BaseURL: baseURL(r), Title: "Bookshelf"})
	if err != nil {
		a.rr.Log(r.Context(), "Failed to write OPDS export: "+err.Error())
	}
}

func (a *api) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := getIntOrDefault("limit", r.URL.Query(), 20)
	if limit <= 0 || limit > maxRuns {
		limit = maxRuns
	}

	rows, err := a.Runs.List(r.Context(), owner(r), uint(limit))
	if err != nil {
		a.rr.RespondAndLogError(w, r.Context(), err)
		return
	}

	if rows == nil {
		rows = make([]types.IngestRun, 0)
	}

	a.rr.SendJson(w, r.Context(), struct {
		Imports []types.IngestRun `json:"imports"`
	}{Imports: rows})
}
