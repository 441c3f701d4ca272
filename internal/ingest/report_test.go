package ingest_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/ingest"
)

func TestReportString(t *testing.T) {
	report := ingest.NewImportReport(
		&ingest.Validation{
			Valid:   []ingest.Row{ingest.NewRow(1, nil), ingest.NewRow(3, nil)},
			Invalid: []ingest.Rejection{{Row: ingest.NewRow(2, nil), Reason: "Missing title"}},
		},
		&ingest.Summary{
			Succeeded: 1,
			Failed:    1,
			Errors:    []ingest.Message{{Row: 3, Text: "boom"}},
			Warnings:  []ingest.Message{{Row: 1, Text: `country "Atlantis" does not exist, left empty`}},
		})

	want := "Valid rows: 2 | Ignored rows: 1\n" +
		"Upload completed: 1 successful, 1 failed\n" +
		"Ignored rows:\n" +
		"  1. Row 2: Missing title\n" +
		"Upload errors:\n" +
		"  1. Row 3: boom\n" +
		"Warnings:\n" +
		"  1. Row 1: country \"Atlantis\" does not exist, left empty\n"

	assert.Equal(t, want, report.String())
	assert.Equal(t, want, report.String())
}

func TestReportNothingValid(t *testing.T) {
	report := ingest.NewImportReport(
		&ingest.Validation{Invalid: []ingest.Rejection{{Row: ingest.NewRow(1, nil), Reason: "Missing status"}}},
		&ingest.Summary{})

	assert.Equal(t, "Valid rows: 0 | Ignored rows: 1\n"+
		"Ignored rows:\n"+
		"  1. Row 1: Missing status\n", report.String())
}

func TestUpdateReportString(t *testing.T) {
	report := ingest.NewUpdateReport(ingest.FieldPublisher, &ingest.Summary{Succeeded: 3})

	assert.Equal(t, "Update completed: 3 successful, 0 failed, 0 unmatched\n"+
		"Field updated: publisher\n", report.String())
}

func TestReportRun(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	report := ingest.NewUpdateReport(ingest.FieldStatus, &ingest.Summary{
		Succeeded: 1,
		Unmatched: 1,
		Errors:    []ingest.Message{{Row: 2, BookId: "7", Text: "no book with ID 7 in your collection"}},
		Warnings:  []ingest.Message{{Row: 1, BookId: "5", Text: "careful"}},
	})

	run := report.Run(owner, started, 1500*time.Millisecond)

	assert.Equal(t, owner, run.UserId)
	assert.Equal(t, "update", run.Kind)
	assert.Equal(t, "status", run.Field)
	assert.Equal(t, started, run.StartedAt)
	assert.Equal(t, 1500*time.Millisecond, run.Duration)
	assert.Equal(t, 1, run.Unmatched)
	require.Len(t, run.Messages, 2)
	assert.Equal(t, "error", run.Messages[0].Kind)
	assert.Equal(t, "Row 2 (BookId: 7): no book with ID 7 in your collection", run.Messages[0].Message)
	assert.Equal(t, "warning", run.Messages[1].Kind)
}

func TestReportJSON(t *testing.T) {
	report := ingest.NewUpdateReport(ingest.FieldNotes, &ingest.Summary{Failed: 1,
		Errors: []ingest.Message{{Row: 1, Text: "Missing bookId"}}})

	raw, err := json.Marshal(report)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "update", got["kind"])
	assert.Equal(t, "notes", got["field"])
	assert.EqualValues(t, 1, got["failed"])
	assert.Equal(t, []any{map[string]any{"row": float64(1), "message": "Missing bookId"}}, got["errors"])
}
