package http

import (
	"net/http"
	"strconv"
)

// ReportPage handles GET /api/sessions/{sessionID}/report.html. It serves
// the same document the PDF export prints, with the charts inlined, so the
// report can be previewed without a browser on the server.
func (h *SessionHandler) ReportPage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.queryRequest(w, r)
	if !ok {
		return
	}

	page, err := h.service.ReportHTML(r.Context(), sessionFromContext(r.Context()).ID, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(page)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(page)
}
