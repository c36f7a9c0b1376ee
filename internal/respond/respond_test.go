package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/standingcat/event-api/internal/apperr"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.ErrEventNotFound, http.StatusNotFound},
		{apperr.ErrUsernameTaken, http.StatusBadRequest},
		{apperr.ErrCapacityExceeded, http.StatusBadRequest},
		{apperr.Invalid("title is required"), http.StatusBadRequest},
		{apperr.ErrUnauthenticated, http.StatusUnauthorized},
		{apperr.ErrInvalidCredentials, http.StatusUnauthorized},
		{apperr.ErrForbidden, http.StatusForbidden},
		{apperr.Infrastructure("events.get", errors.New("timeout")), http.StatusServiceUnavailable},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestErrorBodyAndLogging(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	rec := httptest.NewRecorder()
	Error(rec, logger, apperr.ErrCapacityExceeded)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "CAPACITY_EXCEEDED", body.Code)
	assert.Equal(t, apperr.ErrCapacityExceeded.Error(), body.Error)
	assert.Equal(t, 0, logs.FilterLevelExact(zap.ErrorLevel).Len())

	rec = httptest.NewRecorder()
	Error(rec, logger, apperr.Infrastructure("events.list", errors.New("dial tcp: refused")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INFRASTRUCTURE_ERROR", body.Code)
	assert.NotContains(t, body.Error, "dial tcp")
	assert.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())
}
