package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/catalogimporter/internal/importer"
	"github.com/utafrali/catalogimporter/internal/service"
	"github.com/utafrali/catalogimporter/pkg/httputil"
	"github.com/utafrali/catalogimporter/pkg/pagination"
	"github.com/utafrali/catalogimporter/pkg/validator"
)

// ImportHandler handles HTTP requests for import endpoints.
type ImportHandler struct {
	service        *service.ImportService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewImportHandler creates a new import HTTP handler.
func NewImportHandler(svc *service.ImportService, maxUploadBytes int64, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		service:        svc,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// --- Request DTOs ---

// StartImportRequest holds the form fields sent with an upload.
type StartImportRequest struct {
	Culture   string `form:"culture" validate:"omitempty,bcp47_language_tag"`
	BatchSize int    `form:"batch_size" validate:"gte=0,lte=5000"`
}

// --- Handlers ---

// StartImport handles POST /api/v1/imports (multipart/form-data).
func (h *ImportHandler) StartImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "failed to parse multipart form: "+err.Error())
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "file is required: "+err.Error())
		return
	}
	defer file.Close()

	req := StartImportRequest{Culture: r.FormValue("culture")}
	if v := r.FormValue("batch_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_PARAMETER", "batch_size must be an integer")
			return
		}
		req.BatchSize = n
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	job, err := h.service.StartImport(r.Context(), &service.StartImportInput{
		FileName:  header.Filename,
		Data:      file,
		Culture:   req.Culture,
		BatchSize: req.BatchSize,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("Location", "/api/v1/imports/"+job.ID)
	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: job})
}

// GetImport handles GET /api/v1/imports/{id}.
func (h *ImportHandler) GetImport(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	job, err := h.service.GetImport(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.Header().Set("X-Import-Status", string(job.Status))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: job})
}

// ListMessages handles GET /api/v1/imports/{id}/messages.
func (h *ImportHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	severity := importer.Severity(r.URL.Query().Get("severity"))
	switch severity {
	case "", importer.SeverityInfo, importer.SeverityWarning, importer.SeverityError:
	default:
		httputil.WriteErrorCode(w, r, http.StatusBadRequest, "INVALID_PARAMETER",
			fmt.Sprintf("severity must be one of info, warning, error; got %q", severity))
		return
	}

	page, err := h.service.ListMessages(r.Context(), id.String(), severity, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, page)
}

// CancelImport handles POST /api/v1/imports/{id}/cancel.
func (h *ImportHandler) CancelImport(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	job, err := h.service.CancelImport(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{Data: job})
}
