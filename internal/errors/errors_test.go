package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusBadRequest, "INVALID_REQUEST", "bad input")
	assert.Equal(t, "bad input", err.Error())

	var target *APIError
	wrapped := errors.Join(errors.New("context"), err)
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, "INVALID_REQUEST", target.ErrorCode)
}

func TestAPIError_Render(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	render.Render(w, r, ErrPayloadTooLarge)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", body.ErrorCode)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err    *APIError
		status int
		code   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{ErrMissingParameter, http.StatusBadRequest, "MISSING_PARAMETER"},
		{ErrInvalidParameter, http.StatusBadRequest, "INVALID_PARAMETER"},
		{ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{ErrSessionNotFound, http.StatusNotFound, "SESSION_NOT_FOUND"},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{ErrUnprocessableWorkbook, http.StatusUnprocessableEntity, "UNPROCESSABLE_WORKBOOK"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{ErrInternalServer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{ErrExportFailed, http.StatusInternalServerError, "EXPORT_FAILED"},
		{ErrWebSocketUpgrade, http.StatusInternalServerError, "WEBSOCKET_UPGRADE_FAILED"},
		{ErrFeatureDisabled, http.StatusNotImplemented, "FEATURE_DISABLED"},
		{ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.code, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(errors.New("unexpected EOF"))
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, "unexpected EOF", err.Details)
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("mode", "must be one of whole_class, individual")
	require.IsType(t, ValidationErrors{}, err.Details)

	details := err.Details.(ValidationErrors)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "mode", details.Errors[0].Field)
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError("chart")
	assert.Equal(t, http.StatusNotFound, err.StatusCode)
	assert.Equal(t, "chart not found", err.Message)
}

func TestNewValidationErrors(t *testing.T) {
	err := NewValidationErrors([]ValidationError{
		{Field: "subjects", Message: "unknown subject"},
		{Field: "student", Message: "required"},
	})
	details := err.Details.(ValidationErrors)
	assert.Len(t, details.Errors, 2)
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrRateLimitExceeded)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.ErrorCode)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/api/v1/sessions/x").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "abc", body["trace_id"])
	assert.Equal(t, float64(http.StatusNotFound), body["status"], "extensions cannot override standard members")
	assert.NotContains(t, body, "detail")
	assert.Equal(t, "/api/v1/sessions/x", body["instance"])
}
