package response

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRespondAndLogErrorHidesMessage(t *testing.T) {
	rr := &Responder{}
	w := httptest.NewRecorder()

	rr.RespondAndLogError(w, context.Background(), errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Unknown error occurred while processing your request. Error ID: ")
	assert.NotContains(t, w.Body.String(), "connection refused")
}

func TestRespondAndLogErrorDebug(t *testing.T) {
	rr := &Responder{DebugMode: true}
	w := httptest.NewRecorder()

	rr.RespondAndLogError(w, context.Background(), errors.New("connection refused"))

	assert.JSONEq(t, `{"error":"Connection refused"}`, w.Body.String())
}

func TestClientErrors(t *testing.T) {
	rr := &Responder{}

	w := httptest.NewRecorder()
	rr.BadRequest(w, context.Background(), "missing required columns: title")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing required columns: title"}`, w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = httptest.NewRecorder()
	rr.NotFound(w, context.Background(), "no such book")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSendJsonStatus(t *testing.T) {
	rr := &Responder{}
	w := httptest.NewRecorder()

	rr.SendJsonStatus(w, context.Background(), http.StatusCreated, map[string]int64{"id": 7})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":7}`, w.Body.String())
}
