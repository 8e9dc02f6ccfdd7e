package errors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gradereport/internal/dataprocessing"
	"gradereport/internal/infrastructure"
	"gradereport/internal/services"
	"gradereport/internal/validation"
)

func newTestHandler(includeStack bool) (*ErrorHandler, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewErrorHandler(logger, includeStack), &buf
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestNewErrorHandler(t *testing.T) {
	h := NewErrorHandler(nil, true)
	assert.NotNil(t, h.logger)
	assert.True(t, h.includeStack)
}

func TestErrorHandler_HandleError(t *testing.T) {
	type input struct {
		Student string `validate:"required"`
	}
	validationErr := validator.New().Struct(input{})
	require.Error(t, validationErr)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("export: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error passes through",
			err:        ErrRateLimitExceeded,
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["error_code"])
			},
		},
		{
			name:       "validator errors",
			err:        validationErr,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			check: func(t *testing.T, body map[string]interface{}) {
				fields := body["errors"].([]interface{})
				require.Len(t, fields, 1)
				assert.Equal(t, "Student", fields[0].(map[string]interface{})["field"])
			},
		},
		{
			name:       "upload too large",
			err:        fmt.Errorf("read upload: %w", &http.MaxBytesError{Limit: 1024}),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypePayloadTooLarge,
		},
		{
			name:       "missing sheet",
			err:        fmt.Errorf("parse: %w", &dataprocessing.MissingSheetError{Sheet: "Sheet1", Available: []string{"Lapas1"}}),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingSheet,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "Sheet1", body["sheet"])
				assert.Equal(t, []interface{}{"Lapas1"}, body["available_sheets"])
			},
		},
		{
			name:       "missing column",
			err:        &dataprocessing.MissingColumnError{Column: "Pažymių vidurkis", Position: 26},
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeMissingColumn,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, float64(26), body["position"])
			},
		},
		{
			name:       "empty dataset",
			err:        dataprocessing.ErrEmptyDataset,
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeEmptyDataset,
		},
		{
			name:       "invalid workbook",
			err:        fmt.Errorf("open: %w", dataprocessing.ErrInvalidWorkbook),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInvalidWorkbook,
		},
		{
			name:       "session not found",
			err:        services.ErrSessionNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeSessionNotFound,
		},
		{
			name:       "student required",
			err:        services.ErrStudentRequired,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeStudentRequired,
		},
		{
			name:       "invalid upload",
			err:        fmt.Errorf("%w: missing file field", services.ErrInvalidUpload),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "sheets disabled",
			err:        services.ErrSheetsDisabled,
			wantStatus: http.StatusNotImplemented,
			wantType:   TypeNotImplemented,
		},
		{
			name:       "too many sessions",
			err:        services.ErrTooManySessions,
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeServiceDown,
		},
		{
			name:       "export failed",
			err:        fmt.Errorf("%w: chrome exited", services.ErrExportFailed),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeExportFailed,
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(false)
			r := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/abc", nil)
			r = r.WithContext(infrastructure.WithTraceID(r.Context(), "trace-1"))
			w := httptest.NewRecorder()

			h.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/v1/sessions/abc", body["instance"])
			assert.Equal(t, "trace-1", body["trace_id"])
			assert.NotContains(t, body, "stack")
			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	h, logs := newTestHandler(false)
	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), nil)

	assert.Equal(t, 0, w.Body.Len())
	assert.Equal(t, 0, logs.Len())
}

func TestErrorHandler_StackOnServerErrors(t *testing.T) {
	h, logs := newTestHandler(true)

	w := httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))
	assert.Contains(t, decodeProblem(t, w), "stack")
	assert.Contains(t, logs.String(), `"level":"ERROR"`)

	logs.Reset()
	w = httptest.NewRecorder()
	h.HandleError(w, httptest.NewRequest(http.MethodGet, "/", nil), services.ErrSessionNotFound)
	assert.NotContains(t, decodeProblem(t, w), "stack")
	assert.Contains(t, logs.String(), `"level":"WARN"`)
}

func TestErrorHandler_apiErrorToProblem(t *testing.T) {
	h, _ := newTestHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", nil)

	problem := h.apiErrorToProblem(NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "bad", "details"), r)
	assert.Equal(t, TypeValidation, problem.Type)
	assert.Equal(t, "Bad Request", problem.Title)
	assert.Equal(t, "details", problem.Extensions["details"])

	problem = h.apiErrorToProblem(New(http.StatusTeapot, "SOMETHING_ELSE", "odd"), r)
	assert.Equal(t, TypeInternal, problem.Type)
	assert.NotContains(t, problem.Extensions, "details")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	tests := []struct {
		name         string
		includeStack bool
	}{
		{"without stack", false},
		{"with stack", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, logs := newTestHandler(tt.includeStack)
			w := httptest.NewRecorder()

			h.HandlePanic(w, httptest.NewRequest(http.MethodGet, "/panic", nil), "nil map")

			assert.Equal(t, http.StatusInternalServerError, w.Code)
			body := decodeProblem(t, w)
			if tt.includeStack {
				assert.Equal(t, "nil map", body["panic"])
			} else {
				assert.NotContains(t, body, "panic")
			}
			assert.Contains(t, logs.String(), "panic recovered")
		})
	}
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, w)["type"])

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/health", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, decodeProblem(t, w)["detail"], "DELETE")
}

func TestGetStackTrace(t *testing.T) {
	assert.Contains(t, getStackTrace(), "TestGetStackTrace")
}

func TestErrorHandler_UploadChecks(t *testing.T) {
	h, _ := newTestHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/api/uploads", nil)

	tooLarge := fmt.Errorf("%w: %w", services.ErrInvalidUpload, validation.ErrFileTooLarge)
	assert.Equal(t, http.StatusRequestEntityTooLarge, h.ErrorToProblem(tooLarge, r).Status)

	notWorkbook := fmt.Errorf("%w: %w", services.ErrInvalidUpload, validation.ErrNotWorkbook)
	problem := h.ErrorToProblem(notWorkbook, r)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	assert.Contains(t, problem.Detail, "not an xlsx workbook")
}
