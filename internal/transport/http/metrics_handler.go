package http

import (
	"net/http"

	apierrors "gradereport/internal/errors"
)

// MetricsHandler serves the Prometheus exposition of the OpenTelemetry
// meter provider.
type MetricsHandler struct {
	exposition   http.Handler
	errorHandler *apierrors.ErrorHandler
}

// NewMetricsHandler creates a metrics handler. exposition may be nil when
// the Prometheus exporter is disabled.
func NewMetricsHandler(exposition http.Handler, errorHandler *apierrors.ErrorHandler) *MetricsHandler {
	return &MetricsHandler{exposition: exposition, errorHandler: errorHandler}
}

// ServeHTTP handles GET /metrics
func (h *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.exposition == nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrFeatureDisabled)
		return
	}
	h.exposition.ServeHTTP(w, r)
}
