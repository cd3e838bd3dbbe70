package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "stroll/internal/domain/errors"
)

func handleError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/plan", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	m := NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.HandleHTTPError(err, c)

	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) domainerrors.Response {
	t.Helper()

	var envelope domainerrors.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	return envelope
}

func TestHandleHTTPError_AppError(t *testing.T) {
	rec := handleError(t, domainerrors.ErrRouteUnsatisfiable)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.False(t, envelope.Success)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ROUTE_UNSATISFIABLE", envelope.Error.Code)
	assert.False(t, envelope.Error.Retryable)
}

func TestHandleHTTPError_RetryableAppError(t *testing.T) {
	rec := handleError(t, domainerrors.ErrDirectionsFailure.WithDetails("osrm throttled"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "DIRECTIONS_FAILURE", envelope.Error.Code)
	assert.Equal(t, "osrm throttled", envelope.Error.Details)
	assert.True(t, envelope.Error.Retryable)
}

func TestHandleHTTPError_WrappedAppError(t *testing.T) {
	rec := handleError(t, errors.Wrap(domainerrors.ErrSessionNotFound, "lookup"))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", envelope.Error.Code)
}

func TestHandleHTTPError_EchoHTTPError(t *testing.T) {
	rec := handleError(t, echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "HTTP_ERROR", envelope.Error.Code)
}

func TestHandleHTTPError_UnknownErrorIsInternal(t *testing.T) {
	rec := handleError(t, errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INTERNAL_ERROR", envelope.Error.Code)
}
