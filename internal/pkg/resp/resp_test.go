package resp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resc/internal/pkg/errs"
)

func serve(t *testing.T, h http.HandlerFunc) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()

	w := httptest.NewRecorder()
	middleware.RequestID(h).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	var env Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestOKCarriesRequestID(t *testing.T) {
	w, env := serve(t, func(w http.ResponseWriter, r *http.Request) {
		OK(w, r, map[string]int{"servers": 2})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "success", env.Message)
	assert.Equal(t, map[string]any{"servers": float64(2)}, env.Data)
	assert.NotEmpty(t, env.RequestID)
}

func TestFailUsesErrorStatus(t *testing.T) {
	w, env := serve(t, func(w http.ResponseWriter, r *http.Request) {
		Fail(w, r, errs.NewError(errs.ErrNotAvailable))
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, errs.ErrNotAvailable, env.Code)
	assert.Nil(t, env.Data)
}

func TestFailNilIsUnknown(t *testing.T) {
	w, env := serve(t, func(w http.ResponseWriter, r *http.Request) {
		Fail(w, r, nil)
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errs.ErrUnknown, env.Code)
}

func TestFailErrFindsCustomError(t *testing.T) {
	wrapped := fmt.Errorf("announce: %w", errs.Wrap(errs.ErrInvalidParams, errors.New("body too long")))

	w, env := serve(t, func(w http.ResponseWriter, r *http.Request) {
		FailErr(w, r, wrapped)
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, errs.ErrInvalidParams, env.Code)

	w, env = serve(t, func(w http.ResponseWriter, r *http.Request) {
		FailErr(w, r, errors.New("disk on fire"))
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, errs.ErrUnknown, env.Code)
	assert.NotContains(t, env.Message, "disk")
}

func TestUnencodablePayload(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, httptest.NewRequest(http.MethodGet, "/", nil), make(chan int))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
