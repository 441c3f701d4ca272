package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey struct{}

func TestHandler(t *testing.T) {
	_, thisFile, _, _ := runtime.Caller(0)

	var buf bytes.Buffer
	h, err := NewHandler(&buf, "json", slog.LevelInfo, path.Dir(path.Dir(path.Dir(thisFile))), ctxKey{})
	require.NoError(t, err)

	l := slog.New(h).With(slog.String("component", "test"))
	ctx := context.WithValue(context.Background(), ctxKey{}, "req-1")

	l.DebugContext(ctx, "hidden")
	l.InfoContext(ctx, "Imported 3 rows")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))

	assert.Equal(t, "Imported 3 rows", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.Equal(t, "test", rec["component"])

	src, ok := rec["source"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "internal/logger/handler_test.go", src["file"])
}

func TestNewHandlerFormats(t *testing.T) {
	for _, format := range []string{"json", "text", "human"} {
		_, err := NewHandler(&bytes.Buffer{}, format, slog.LevelInfo, "/", nil)
		assert.NoError(t, err, format)
	}

	_, err := NewHandler(&bytes.Buffer{}, "xml", slog.LevelInfo, "/", nil)
	assert.Error(t, err)
}
