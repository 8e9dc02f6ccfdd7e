package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "gradereport/internal/errors"
	"gradereport/internal/exporter"
	"gradereport/internal/middleware"
	"gradereport/internal/services"
	"gradereport/internal/validation"
	api "gradereport/pkg/contracts/api/v1"
	"gradereport/pkg/contracts/domain"
)

// UploadField is the multipart field carrying the workbook.
const UploadField = "file"

// CSVFileName is the download name of the long table.
const CSVFileName = "ivertinimai.csv"

// multipart headers and boundaries on top of the file itself
const multipartOverhead = 64 << 10

type sessionCtxKey struct{}

// SessionHandler serves uploads and everything derived from a session.
type SessionHandler struct {
	service      ReportServiceInterface
	validator    *validation.RequestValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxUpload    int64
}

// NewSessionHandler creates a session handler. maxUpload bounds the
// workbook size in bytes.
func NewSessionHandler(service ReportServiceInterface, logger *slog.Logger, errorHandler *apierrors.ErrorHandler, maxUpload int64) *SessionHandler {
	return &SessionHandler{
		service:      service,
		validator:    validation.NewRequestValidator(),
		logger:       logger.With(slog.String("component", "session_handler")),
		errorHandler: errorHandler,
		maxUpload:    maxUpload,
	}
}

// UploadRoutes returns the routes mounted at /api/uploads.
func (h *SessionHandler) UploadRoutes() chi.Router {
	r := chi.NewRouter()
	r.With(middleware.MaxBodySize(h.maxUpload+multipartOverhead)).Post("/", h.Upload)
	r.With(middleware.ContentTypeValidator(h.errorHandler, "application/json")).Post("/sheets", h.ImportSheets)
	return r
}

// SessionRoutes returns the routes mounted at /api/sessions.
func (h *SessionHandler) SessionRoutes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{sessionID}", func(r chi.Router) {
		r.Use(h.SessionCtx)
		r.Get("/", h.GetSession)
		r.Delete("/", h.DeleteSession)
		r.Get("/dashboard", h.Dashboard)
		r.Get("/charts/{kind}.svg", h.Chart)
		r.Get("/observations.csv", h.ObservationsCSV)
		r.Get("/report.html", h.ReportPage)
		r.Post("/export", h.Export)
	})
	return r
}

// SessionCtx loads the session named in the URL into the request context.
// Malformed IDs are reported as missing sessions.
func (h *SessionHandler) SessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := h.validator.Var(id, "required,uuid4"); err != nil {
			h.errorHandler.HandleError(w, r, services.ErrSessionNotFound)
			return
		}

		sess, err := h.service.Session(r.Context(), id)
		if err != nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) services.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(services.Session)
	return sess
}

// Upload handles POST /api/uploads
func (h *SessionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile(UploadField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.errorHandler.HandleError(w, r,
			fmt.Errorf("%w: multipart field %q is required", services.ErrInvalidUpload, UploadField))
		return
	}
	defer file.Close()

	sess, err := h.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		h.logger.WarnContext(r.Context(), "upload rejected",
			slog.String("file", header.Filename),
			slog.Int64("size", header.Size),
			slog.String("error", err.Error()),
			slog.String("request_id", middleware.GetRequestID(r.Context())))
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.created(w, r, sess)
}

// ImportSheets handles POST /api/uploads/sheets
func (h *SessionHandler) ImportSheets(w http.ResponseWriter, r *http.Request) {
	var req api.SheetsImportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	sess, err := h.service.ImportSheets(r.Context(), req.SpreadsheetID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.created(w, r, sess)
}

func (h *SessionHandler) created(w http.ResponseWriter, r *http.Request, sess services.Session) {
	w.Header().Set("Location", "/api/sessions/"+sess.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toSessionResponse(sess))
}

// GetSession handles GET /api/sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, toSessionResponse(sessionFromContext(r.Context())))
}

// DeleteSession handles DELETE /api/sessions/{sessionID}
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), sessionFromContext(r.Context()).ID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dashboard handles GET /api/sessions/{sessionID}/dashboard
func (h *SessionHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	req, ok := h.queryRequest(w, r)
	if !ok {
		return
	}

	sess := sessionFromContext(r.Context())
	criteria := req.Criteria()
	etag := services.ETag(sess.Dataset.Fingerprint, "dashboard", criteria.Student, criteria.Subject, req.Mode)
	if notModified(w, r, etag) {
		return
	}

	resp, err := h.service.Dashboard(r.Context(), sess.ID, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, resp)
}

// Chart handles GET /api/sessions/{sessionID}/charts/{kind}.svg
func (h *SessionHandler) Chart(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseChartKind(chi.URLParam(r, "kind"))
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.NotFoundError("chart"))
		return
	}
	req, ok := h.queryRequest(w, r)
	if !ok {
		return
	}

	sess := sessionFromContext(r.Context())
	criteria := req.Criteria()
	etag := services.ETag(sess.Dataset.Fingerprint, "chart", string(kind), criteria.Student, criteria.Subject)
	if notModified(w, r, etag) {
		return
	}

	svg, err := h.service.Chart(r.Context(), sess.ID, kind, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Length", strconv.Itoa(len(svg)))
	w.WriteHeader(http.StatusOK)
	w.Write(svg)
}

// ObservationsCSV handles GET /api/sessions/{sessionID}/observations.csv
func (h *SessionHandler) ObservationsCSV(w http.ResponseWriter, r *http.Request) {
	req, ok := h.queryRequest(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.service.ObservationsCSV(r.Context(), sessionFromContext(r.Context()).ID, req, &buf); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	attachment(w, "text/csv; charset=utf-8", CSVFileName, buf.Len())
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// Export handles POST /api/sessions/{sessionID}/export
func (h *SessionHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req api.ReportRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
		h.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	pdf, err := h.service.ExportPDF(r.Context(), sessionFromContext(r.Context()).ID, req)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	attachment(w, "application/pdf", exporter.ReportFileName, len(pdf))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

// queryRequest reads and validates the selection from the query string.
func (h *SessionHandler) queryRequest(w http.ResponseWriter, r *http.Request) (api.ReportRequest, bool) {
	q := r.URL.Query()
	req := api.ReportRequest{
		Student: q.Get("student"),
		Subject: q.Get("subject"),
		Mode:    q.Get("mode"),
	}
	if err := h.validator.Struct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return req, false
	}
	return req, true
}

func toSessionResponse(sess services.Session) api.SessionResponse {
	ds := sess.Dataset
	return api.SessionResponse{
		ID:           sess.ID,
		Source:       ds.Source,
		Fingerprint:  ds.Fingerprint,
		CreatedAt:    sess.CreatedAt,
		ExpiresAt:    sess.ExpiresAt,
		Students:     ds.StudentOptions(),
		Subjects:     ds.SubjectOptions(),
		Observations: len(ds.Observations),
		StudentCount: len(ds.Students),
	}
}

// notModified sets the ETag and answers 304 when the client already has it.
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "private, no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func attachment(w http.ResponseWriter, contentType, filename string, size int) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(size))
}
