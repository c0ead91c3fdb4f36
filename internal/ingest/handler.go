package ingest

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tenderprice/tenderprice/internal/observability"
	"github.com/tenderprice/tenderprice/internal/platform/httpx"
	"github.com/tenderprice/tenderprice/internal/shared"
)

// Handler manages upload, preview and commit endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	previews *PreviewStore
	metrics  *observability.Metrics
	validate *validator.Validate
	maxBytes int64
	currency string
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, previews *PreviewStore, metrics *observability.Metrics, maxBytes int64, defaultCurrency string) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		previews: previews,
		metrics:  metrics,
		validate: validator.New(),
		maxBytes: maxBytes,
		currency: defaultCurrency,
	}
}

// MountRoutes registers upload routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/uploads/preview", h.handlePreview)
	r.Post("/uploads/commit", h.handleCommit)
	r.Get("/uploads", h.handleList)
}

type previewResponse struct {
	Token   string        `json:"token,omitempty"`
	Preview PreviewResult `json:"preview"`
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", "could not read uploaded file")
		return
	}

	preview, err := h.service.Preview(r.Context(), data, header.Filename)
	if err != nil {
		h.metrics.ObservePreview("failed")
		h.logger.Warn("preview failed", slog.String("file", header.Filename), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	if preview.IsDuplicate {
		h.metrics.ObservePreview("duplicate")
		httpx.JSON(w, http.StatusOK, previewResponse{Preview: preview})
		return
	}

	token, err := h.previews.Put(r.Context(), preview)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.metrics.ObservePreview("ok")
	httpx.JSON(w, http.StatusOK, previewResponse{Token: token, Preview: preview})
}

type commitRequest struct {
	Token      string `json:"token" validate:"required,uuid4"`
	UploadedBy string `json:"uploaded_by" validate:"required,max=128"`
	Currency   string `json:"currency" validate:"omitempty,len=3,alpha"`
}

func (h *Handler) handleCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	preview, err := h.previews.Get(r.Context(), req.Token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "preview token unknown or expired")
			return
		}
		httpx.RespondError(w, err)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.currency
	}

	result, err := h.service.Commit(r.Context(), preview, req.UploadedBy, currency)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicateContent) {
			h.metrics.ObserveDuplicateCommit()
		}
		httpx.RespondError(w, err)
		return
	}

	if err := h.previews.Delete(r.Context(), req.Token); err != nil {
		h.logger.Warn("delete preview token", slog.String("token", req.Token), slog.Any("error", err))
	}
	h.metrics.ObserveCommit(result.RowsSaved)
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)

	docs, total, err := h.service.ListDocuments(r.Context(), pagination)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	type docItem struct {
		ID         int64  `json:"id"`
		FileName   string `json:"file_name"`
		ByteSize   int64  `json:"byte_size"`
		UploadedBy string `json:"uploaded_by"`
		UploadedAt string `json:"uploaded_at"`
		Status     string `json:"status"`
	}
	items := make([]docItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, docItem{
			ID:         d.ID,
			FileName:   d.FileName,
			ByteSize:   d.ByteSize,
			UploadedBy: d.UploadedBy,
			UploadedAt: d.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
			Status:     string(d.Status),
		})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      items,
		"pagination": shared.NewPagination(pagination.Page, pagination.PerPage, total),
	})
}
