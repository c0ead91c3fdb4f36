package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderprice/tenderprice/internal/shared"
)

type fakeRepo struct {
	entries   []Entry
	suppliers map[int64]string
	prices    map[int64]float64
	upserted  []UserPrice
	reindexed int64
}

func (f *fakeRepo) GetEntry(_ context.Context, id int64) (Entry, error) {
	for _, e := range f.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return Entry{}, shared.ErrNotFound
}

func (f *fakeRepo) ListEntries(_ context.Context, _ ListFilters, _, _ int) ([]Entry, int, error) {
	return f.entries, len(f.entries), nil
}

func (f *fakeRepo) SupplierNames(_ context.Context, _ []int64) (map[int64]string, error) {
	return f.suppliers, nil
}

func (f *fakeRepo) UserPrices(_ context.Context, _, _ string, _ []int64) (map[int64]float64, error) {
	return f.prices, nil
}

func (f *fakeRepo) UpsertUserPrice(_ context.Context, price UserPrice) error {
	f.upserted = append(f.upserted, price)
	return nil
}

func (f *fakeRepo) ListSuppliers(context.Context) ([]Supplier, error) {
	return nil, nil
}

func (f *fakeRepo) ReindexSearchText(context.Context) (int64, error) {
	return f.reindexed, nil
}

func TestGetPagedResolvesSuppliersAndPrices(t *testing.T) {
	repo := &fakeRepo{
		entries: []Entry{
			{ID: 1, SKU: "CU-18", Name: strPtr("Kupferrohr"), SupplierID: idPtr(5)},
			{ID: 2, SKU: "AV-15", Name: strPtr("Absperrventil")},
		},
		suppliers: map[int64]string{5: "Viega"},
		prices:    map[int64]float64{1: 2.35},
	}
	svc := NewService(repo)

	rows, total, err := svc.GetPaged(context.Background(), "alex", ListFilters{}, shared.NewPagination(1, 20, 0), "EUR")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 2)

	assert.Equal(t, "Viega", *rows[0].Supplier)
	assert.Equal(t, 2.35, *rows[0].MyPrice)
	assert.Equal(t, "EUR", rows[0].Currency)

	assert.Nil(t, rows[1].Supplier)
	assert.Nil(t, rows[1].MyPrice)
}

func TestUpsertPriceValidation(t *testing.T) {
	repo := &fakeRepo{entries: []Entry{{ID: 1, SKU: "CU-18"}}}
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.UpsertPrice(ctx, "alex", 1, "EUR", -1)
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = svc.UpsertPrice(ctx, "alex", 1, "EURO", 2)
	assert.ErrorIs(t, err, shared.ErrValidation)

	err = svc.UpsertPrice(ctx, "alex", 99, "EUR", 2)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, svc.UpsertPrice(ctx, "alex", 1, "EUR", 2.35))
	require.Len(t, repo.upserted, 1)
	assert.Equal(t, "alex", repo.upserted[0].UserID)
	assert.Equal(t, 2.35, repo.upserted[0].Price)
}

func TestReindexDelegates(t *testing.T) {
	repo := &fakeRepo{reindexed: 42}
	svc := NewService(repo)
	n, err := svc.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}
