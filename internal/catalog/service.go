package catalog

import (
	"context"
	"fmt"

	"github.com/tenderprice/tenderprice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	GetEntry(ctx context.Context, id int64) (Entry, error)
	ListEntries(ctx context.Context, filters ListFilters, limit, offset int) ([]Entry, int, error)
	SupplierNames(ctx context.Context, ids []int64) (map[int64]string, error)
	UserPrices(ctx context.Context, userID, currency string, productIDs []int64) (map[int64]float64, error)
	UpsertUserPrice(ctx context.Context, price UserPrice) error
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	ReindexSearchText(ctx context.Context) (int64, error)
}

// Service provides catalog browsing and per-user pricing.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a catalog service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// GetPaged returns one page of the product grid for a user, resolving
// supplier names and the user's own prices in the requested currency.
func (s *Service) GetPaged(ctx context.Context, userID string, filters ListFilters, page shared.Pagination, currency string) ([]GridRow, int, error) {
	entries, total, err := s.repo.ListEntries(ctx, filters, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, err
	}

	var supplierIDs []int64
	productIDs := make([]int64, 0, len(entries))
	for _, e := range entries {
		productIDs = append(productIDs, e.ID)
		if e.SupplierID != nil {
			supplierIDs = append(supplierIDs, *e.SupplierID)
		}
	}

	suppliers, err := s.repo.SupplierNames(ctx, supplierIDs)
	if err != nil {
		return nil, 0, err
	}
	prices, err := s.repo.UserPrices(ctx, userID, currency, productIDs)
	if err != nil {
		return nil, 0, err
	}

	rows := make([]GridRow, 0, len(entries))
	for _, e := range entries {
		row := GridRow{
			ProductID:  e.ID,
			SKU:        e.SKU,
			Name:       e.Name,
			SearchText: e.SearchText,
			Currency:   currency,
		}
		if e.SupplierID != nil {
			if name, ok := suppliers[*e.SupplierID]; ok {
				row.Supplier = &name
			}
		}
		if price, ok := prices[e.ID]; ok {
			row.MyPrice = &price
		}
		rows = append(rows, row)
	}
	return rows, total, nil
}

// UpsertPrice records or replaces the user's price for one entry.
func (s *Service) UpsertPrice(ctx context.Context, userID string, productID int64, currency string, price float64) error {
	if price < 0 {
		return fmt.Errorf("%w: price must not be negative", shared.ErrValidation)
	}
	if len(currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", shared.ErrValidation)
	}
	if _, err := s.repo.GetEntry(ctx, productID); err != nil {
		return err
	}
	return s.repo.UpsertUserPrice(ctx, UserPrice{
		UserID:    userID,
		ProductID: productID,
		Currency:  currency,
		Price:     price,
	})
}

// ListSuppliers returns all known suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

// Reindex recomputes search text for all entries.
func (s *Service) Reindex(ctx context.Context) (int64, error) {
	return s.repo.ReindexSearchText(ctx)
}
