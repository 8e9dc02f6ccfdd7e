package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apierrors "gradereport/internal/errors"
	"gradereport/internal/infrastructure"
	api "gradereport/pkg/contracts/api/v1"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func testErrorHandler() *apierrors.ErrorHandler {
	return apierrors.NewErrorHandler(infrastructure.DiscardLogger(), false)
}

func problemOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	var seen, traced string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		traced = infrastructure.GetTraceID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 36)
	assert.Equal(t, seen, traced)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "client-id")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "client-id", seen)
	assert.Equal(t, "client-id", w.Header().Get(RequestIDHeader))
}

func TestGetRequestIDFallsBackToTraceID(t *testing.T) {
	ctx := infrastructure.WithTraceID(context.Background(), "trace")
	assert.Equal(t, "trace", GetRequestID(ctx))
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestRecoverer(t *testing.T) {
	h := RequestID(Recoverer(testErrorHandler())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/x", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := problemOf(t, w)
	assert.Equal(t, apierrors.TypeInternal, body["type"])
	assert.Equal(t, w.Header().Get(RequestIDHeader), body["trace_id"])
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, infrastructure.DiscardLogger())
	h := rl.Handler(ok)

	send := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:1002"), "ports share one bucket")
	assert.Equal(t, http.StatusOK, send("10.0.0.2:1000"), "other clients are unaffected")
}

func TestTimeout(t *testing.T) {
	t.Run("handler ignores deadline", func(t *testing.T) {
		h := Timeout(10*time.Millisecond, infrastructure.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.Equal(t, apierrors.TypeTimeout, problemOf(t, w)["type"])
	})

	t.Run("handler already responded", func(t *testing.T) {
		h := Timeout(10*time.Millisecond, infrastructure.DiscardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("fast handler", func(t *testing.T) {
		h := Timeout(time.Second, infrastructure.DiscardLogger())(ok)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}})(ok)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://localhost:8080")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "http://localhost:8080", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/", nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecureHeaders(t *testing.T) {
	h := DefaultSecureHeaders().Handler(ok)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "img-src 'self' data:")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "no HSTS without TLS")

	r := httptest.NewRequest(http.MethodGet, "/ws/sessions/x", nil)
	r.Header.Set("Upgrade", "websocket")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Empty(t, w.Header().Get("X-Frame-Options"))
}

func TestValidationMiddleware_ValidateRequest(t *testing.T) {
	m := NewValidationMiddleware(infrastructure.DiscardLogger(), testErrorHandler(), 64)

	var got string
	h := m.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		got = string(b)
	}))

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"valid json", "application/json", `{"mode":"class"}`, http.StatusOK},
		{"json with charset", "application/json; charset=utf-8", `{}`, http.StatusOK},
		{"malformed json", "application/json", `{"mode":`, http.StatusBadRequest},
		{"too large", "application/json", `{"student":"` + strings.Repeat("a", 100) + `"}`, http.StatusRequestEntityTooLarge},
		{"multipart passes", "multipart/form-data; boundary=x", "not json", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = ""
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.body, got, "body must be restored")
			}
		})
	}
}

func TestValidationMiddleware_ValidateStruct(t *testing.T) {
	m := NewValidationMiddleware(infrastructure.DiscardLogger(), testErrorHandler(), 0)

	assert.NoError(t, m.ValidateStruct(api.ReportRequest{Mode: "individual", Student: "Ona"}))

	err := m.ValidateStruct(api.ReportRequest{Mode: "pdf"})
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	details := apiErr.Details.(apierrors.ValidationErrors)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "mode", details.Errors[0].Field)
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator(testErrorHandler(), "application/json")(ok)

	send := func(method, contentType string) int {
		r := httptest.NewRequest(method, "/", strings.NewReader("{}"))
		if contentType != "" {
			r.Header.Set("Content-Type", contentType)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodGet, ""))
	assert.Equal(t, http.StatusOK, send(http.MethodPost, "application/json"))
	assert.Equal(t, http.StatusBadRequest, send(http.MethodPost, ""))
	assert.Equal(t, http.StatusUnsupportedMediaType, send(http.MethodPost, "text/plain"))
}

func TestMaxBodySize(t *testing.T) {
	eh := testErrorHandler()
	h := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			eh.HandleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abc")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("abcdef")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestOTelMiddleware(t *testing.T) {
	metrics, err := infrastructure.CreateBusinessMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	providers := &infrastructure.OTelProviders{
		Tracer: tracenoop.NewTracerProvider().Tracer("test"),
		Logger: infrastructure.DiscardLogger(),
	}

	_, err = NewOTelMiddleware(nil, metrics)
	assert.Error(t, err)

	m, err := NewOTelMiddleware(providers, metrics)
	require.NoError(t, err)

	var fromCtx *infrastructure.BusinessMetrics
	router := chi.NewRouter()
	router.Use(m.Handler, BusinessMetricsMiddleware(metrics))
	router.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		fromCtx = GetBusinessMetricsFromContext(r.Context())
		RecordSystemError(r.Context(), "test", "middleware")
		w.WriteHeader(http.StatusAccepted)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Same(t, metrics, fromCtx)
	assert.Nil(t, GetBusinessMetricsFromContext(context.Background()))
}

func TestGetRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1:1234", GetRealIP(r))

	r.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", GetRealIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "203.0.113.9", GetRealIP(r))
}
