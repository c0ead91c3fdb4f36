package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tenderprice/tenderprice/internal/platform/httpx"
	"github.com/tenderprice/tenderprice/internal/shared"
)

// Handler manages catalog browsing and pricing endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	currency string
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, defaultCurrency string) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), currency: defaultCurrency}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/catalog", h.handleGrid)
	r.Put("/catalog/{productID}/price", h.handleUpsertPrice)
	r.Get("/suppliers", h.handleListSuppliers)
}

func (h *Handler) handleGrid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)

	filters := ListFilters{Query: q.Get("q")}
	if raw := q.Get("supplier_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "supplier_id must be an integer")
			return
		}
		filters.SupplierID = &id
	}

	currency := q.Get("currency")
	if currency == "" {
		currency = h.currency
	}

	rows, total, err := h.service.GetPaged(r.Context(), q.Get("user_id"), filters, pagination, currency)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      rows,
		"pagination": shared.NewPagination(pagination.Page, pagination.PerPage, total),
	})
}

type priceRequest struct {
	UserID   string  `json:"user_id" validate:"required,max=128"`
	Currency string  `json:"currency" validate:"omitempty,len=3,alpha"`
	Price    float64 `json:"price" validate:"gte=0"`
}

func (h *Handler) handleUpsertPrice(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be an integer")
		return
	}

	var req priceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = h.currency
	}

	if err := h.service.UpsertPrice(r.Context(), req.UserID, productID, currency, req.Price); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"product_id": productID, "currency": currency, "price": req.Price})
}

func (h *Handler) handleListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	type supplierItem struct {
		ID      int64   `json:"id"`
		Name    string  `json:"name"`
		Country *string `json:"country,omitempty"`
	}
	items := make([]supplierItem, 0, len(suppliers))
	for _, s := range suppliers {
		items = append(items, supplierItem{ID: s.ID, Name: s.Name, Country: s.Country})
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}
