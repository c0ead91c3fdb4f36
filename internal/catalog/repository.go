package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tenderprice/tenderprice/internal/platform/db"
	"github.com/tenderprice/tenderprice/internal/shared"
)

// ListFilters narrows the paged catalog listing.
type ListFilters struct {
	Query      string
	SupplierID *int64
}

// Repository provides PostgreSQL backed persistence for the catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a catalog repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetEntry fetches one entry by id.
func (r *Repository) GetEntry(ctx context.Context, id int64) (Entry, error) {
	const query = `SELECT id, sku, name, brand, material, category, search_text, supplier_id, source_file_id, source_row_id, created_at, updated_at
		FROM product_descriptions WHERE id = $1`
	var e Entry
	err := r.pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.SKU, &e.Name, &e.Brand, &e.Material, &e.Category,
		&e.SearchText, &e.SupplierID, &e.SourceFileID, &e.SourceRowID, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, shared.ErrNotFound
	}
	return e, err
}

// ListEntries returns a page of catalog entries ordered by SKU, with optional
// free-text and supplier filters.
func (r *Repository) ListEntries(ctx context.Context, filters ListFilters, limit, offset int) ([]Entry, int, error) {
	countSQL := `SELECT COUNT(*) FROM product_descriptions p WHERE 1=1`
	dataSQL := `SELECT p.id, p.sku, p.name, p.brand, p.material, p.category, p.search_text, p.supplier_id, p.source_file_id, p.source_row_id, p.created_at, p.updated_at
		FROM product_descriptions p WHERE 1=1`

	args := []any{}
	argNum := 1
	filter := ""
	if filters.Query != "" {
		filter += ` AND (p.sku ILIKE $` + itoa(argNum) + ` OR p.name ILIKE $` + itoa(argNum) + ` OR p.search_text ILIKE $` + itoa(argNum) + `)`
		args = append(args, "%"+filters.Query+"%")
		argNum++
	}
	if filters.SupplierID != nil {
		filter += ` AND p.supplier_id = $` + itoa(argNum)
		args = append(args, *filters.SupplierID)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, countSQL+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL += filter + ` ORDER BY p.sku LIMIT $` + itoa(argNum) + ` OFFSET $` + itoa(argNum+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.SKU, &e.Name, &e.Brand, &e.Material, &e.Category, &e.SearchText,
			&e.SupplierID, &e.SourceFileID, &e.SourceRowID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// SupplierNames resolves supplier ids to names for one listing page.
func (r *Repository) SupplierNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	if len(ids) == 0 {
		return map[int64]string{}, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM suppliers WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// UserPrices returns the user's prices in one currency for a set of entries.
func (r *Repository) UserPrices(ctx context.Context, userID, currency string, productIDs []int64) (map[int64]float64, error) {
	if len(productIDs) == 0 {
		return map[int64]float64{}, nil
	}
	const query = `SELECT product_id, price FROM user_product_prices
		WHERE user_id = $1 AND currency = $2 AND product_id = ANY($3)`
	rows, err := r.pool.Query(ctx, query, userID, currency, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prices := make(map[int64]float64)
	for rows.Next() {
		var id int64
		var price float64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, err
		}
		prices[id] = price
	}
	return prices, rows.Err()
}

// UpsertUserPrice inserts or updates one (user, product, currency) price.
func (r *Repository) UpsertUserPrice(ctx context.Context, price UserPrice) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `INSERT INTO user_product_prices (user_id, product_id, currency, price, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (user_id, product_id, currency)
			DO UPDATE SET price = EXCLUDED.price, updated_at = $5`
		_, err := tx.Exec(ctx, query, price.UserID, price.ProductID, price.Currency, price.Price, time.Now())
		return err
	})
}

// ListSuppliers returns all suppliers ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, country, notes FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Country, &s.Notes); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// ReindexSearchText recomputes the search text of every entry from its own
// fields and the categories of its provenance row. Runs in one transaction so
// a reindex is all-or-nothing.
func (r *Repository) ReindexSearchText(ctx context.Context) (int64, error) {
	var updated int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `UPDATE product_descriptions p
			SET search_text = LOWER(TRIM(BOTH ' ' FROM
				CONCAT_WS(' ', p.sku, p.name, r.description, r.size, r.main_category, r.sub_category))),
			    updated_at = NOW()
			FROM uploaded_rows r
			WHERE r.id = p.source_row_id`
		tag, err := tx.Exec(ctx, query)
		if err != nil {
			return err
		}
		updated = tag.RowsAffected()
		return nil
	})
	return updated, err
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
