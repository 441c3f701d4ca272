package response

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

type Responder struct {
	DebugMode bool
}

// RespondAndLogError will respond with generic error code (500) and log with slog.LevelError level
func (rr *Responder) RespondAndLogError(w http.ResponseWriter, ctx context.Context, err error) {
	errId := uuid.NewString()
	log(ctx, slog.LevelError, err.Error(), slog.String("err_id", errId))
	rr.renderError(w, ctx, http.StatusInternalServerError, err.Error(), errId, false)
}

func (rr *Responder) RespondAndLogCustom(w http.ResponseWriter, ctx context.Context, err error, lvl slog.Level, status int) {
	errId := uuid.NewString()
	log(ctx, lvl, err.Error(), slog.String("err_id", errId))
	rr.renderError(w, ctx, status, err.Error(), errId, false)
}

// RespondClientError reports a problem with the request itself. The message is always shown.
func (rr *Responder) RespondClientError(w http.ResponseWriter, ctx context.Context, status int, message string) {
	errId := uuid.NewString()
	log(ctx, slog.LevelInfo, message, slog.String("err_id", errId), slog.Int("status", status))
	rr.renderError(w, ctx, status, message, errId, true)
}

func (rr *Responder) BadRequest(w http.ResponseWriter, ctx context.Context, message string) {
	rr.RespondClientError(w, ctx, http.StatusBadRequest, message)
}

func (rr *Responder) NotFound(w http.ResponseWriter, ctx context.Context, message string) {
	rr.RespondClientError(w, ctx, http.StatusNotFound, message)
}

func (rr *Responder) Unauthorized(w http.ResponseWriter, ctx context.Context, message string) {
	rr.RespondClientError(w, ctx, http.StatusUnauthorized, message)
}

func (rr *Responder) Conflict(w http.ResponseWriter, ctx context.Context, message string) {
	rr.RespondClientError(w, ctx, http.StatusConflict, message)
}

func (rr *Responder) SendJson(w http.ResponseWriter, ctx context.Context, data any) {
	rr.SendJsonStatus(w, ctx, http.StatusOK, data)
}

func (rr *Responder) SendJsonStatus(w http.ResponseWriter, ctx context.Context, status int, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		rr.RespondAndLogError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

// Log records an error that can no longer be reported to the client.
func (rr *Responder) Log(ctx context.Context, msg string) {
	log(ctx, slog.LevelError, msg)
}

func (rr *Responder) NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func (rr *Responder) renderError(w http.ResponseWriter, ctx context.Context, status int, message, errId string, public bool) {
	data := map[string]any{}

	if rr.DebugMode || public {
		r, s := utf8.DecodeRuneInString(message)
		data["error"] = string(unicode.ToUpper(r)) + message[s:]
	} else {
		data["error"] = "Unknown error occurred while processing your request. Error ID: " + errId
	}

	bs, err := json.Marshal(data)
	if err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		log(ctx, slog.LevelError, "cannot marshall error response body: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bs = []byte("unknown error")
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

// Needed because it skips one more frame item than the slog.Log
func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	l := slog.Default()

	if !l.Enabled(ctx, level) {
		return
	}

	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}
