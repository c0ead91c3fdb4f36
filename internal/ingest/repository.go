package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tenderprice/tenderprice/internal/catalog"
	"github.com/tenderprice/tenderprice/internal/shared"
)

// DocumentRef identifies an already committed document.
type DocumentRef struct {
	ID       int64
	FileName string
}

// Repository provides PostgreSQL backed persistence for uploads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations of one commit transaction. Catalog
// operations are included because document, sheet, rows and catalog upserts
// must succeed or fail together.
type TxRepository interface {
	CreateDocument(ctx context.Context, doc SourceDocument) (int64, error)
	CreateSheet(ctx context.Context, sheet Sheet) (int64, error)
	InsertRow(ctx context.Context, row Row) (int64, error)

	FindEntriesBySKUs(ctx context.Context, skus []string) ([]catalog.Entry, error)
	CreateEntry(ctx context.Context, entry catalog.Entry) (int64, error)
	UpdateEntry(ctx context.Context, entry catalog.Entry) error
	InsertRowMatch(ctx context.Context, match catalog.RowMatch) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a transaction; a unique violation on the content
// hash surfaces as the canonical duplicate-content error.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("ingest: begin tx: %w", err)
	}
	if err := fn(ctx, &txRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return translateUniqueViolation(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translateUniqueViolation(fmt.Errorf("ingest: commit tx: %w", err))
	}
	return nil
}

func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		if pgErr.ConstraintName == "uploaded_files_content_hash_idx" {
			return fmt.Errorf("%w: content hash already committed", shared.ErrDuplicateContent)
		}
	}
	return err
}

// FindDocumentByHash returns the committed document carrying the digest, or
// ErrNotFound.
func (r *Repository) FindDocumentByHash(ctx context.Context, hash string) (DocumentRef, error) {
	const query = `SELECT id, file_name FROM uploaded_files WHERE content_hash = $1`
	var ref DocumentRef
	err := r.pool.QueryRow(ctx, query, hash).Scan(&ref.ID, &ref.FileName)
	if errors.Is(err, pgx.ErrNoRows) {
		return DocumentRef{}, shared.ErrNotFound
	}
	return ref, err
}

// ListFileNames returns the uploader's file names colliding with base+ext,
// either exactly or with a " (n)" suffix.
func (r *Repository) ListFileNames(ctx context.Context, uploadedBy, baseName, ext string) ([]string, error) {
	const query = `SELECT file_name FROM uploaded_files
		WHERE uploaded_by = $1 AND (file_name = $2 OR (file_name LIKE $3 AND file_name LIKE $4))`
	rows, err := r.pool.Query(ctx, query, uploadedBy, baseName+ext, baseName+" (%", "%)"+ext)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ListDocuments returns committed documents, newest first.
func (r *Repository) ListDocuments(ctx context.Context, limit, offset int) ([]SourceDocument, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM uploaded_files`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `SELECT id, file_name, normalized_name, content_hash, byte_size, uploaded_by, uploaded_at, status, notes
		FROM uploaded_files ORDER BY uploaded_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var docs []SourceDocument
	for rows.Next() {
		var doc SourceDocument
		if err := rows.Scan(&doc.ID, &doc.FileName, &doc.NormalizedName, &doc.ContentHash, &doc.ByteSize,
			&doc.UploadedBy, &doc.UploadedAt, &doc.Status, &doc.Notes); err != nil {
			return nil, 0, err
		}
		docs = append(docs, doc)
	}
	return docs, total, rows.Err()
}

func (tx *txRepo) CreateDocument(ctx context.Context, doc SourceDocument) (int64, error) {
	const query = `INSERT INTO uploaded_files (file_name, normalized_name, content_hash, byte_size, uploaded_by, uploaded_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	var id int64
	err := tx.tx.QueryRow(ctx, query, doc.FileName, doc.NormalizedName, doc.ContentHash, doc.ByteSize,
		doc.UploadedBy, doc.UploadedAt, string(doc.Status), doc.Notes).Scan(&id)
	return id, err
}

func (tx *txRepo) CreateSheet(ctx context.Context, sheet Sheet) (int64, error) {
	const query = `INSERT INTO uploaded_sheets (file_id, sheet_name, row_count, status)
		VALUES ($1, $2, $3, $4) RETURNING id`
	var id int64
	err := tx.tx.QueryRow(ctx, query, sheet.DocumentID, sheet.Name, sheet.RowCount, string(sheet.Status)).Scan(&id)
	return id, err
}

func (tx *txRepo) InsertRow(ctx context.Context, row Row) (int64, error) {
	payload, err := json.Marshal(row.Raw)
	if err != nil {
		return 0, fmt.Errorf("ingest: marshal raw payload: %w", err)
	}
	const query = `INSERT INTO uploaded_rows
		(sheet_id, row_index, position, main_category, sub_category, sku, name, description, size, brand, material, price, currency, json_payload, normalized_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16) RETURNING id`
	var id int64
	err = tx.tx.QueryRow(ctx, query, row.SheetID, row.RowIndex, row.Position, row.MainCategory, row.SubCategory,
		row.SKU, row.Name, row.Description, row.Size, row.Brand, row.Material, row.Price, row.Currency,
		payload, row.NormalizedText, time.Now()).Scan(&id)
	return id, err
}

func (tx *txRepo) FindEntriesBySKUs(ctx context.Context, skus []string) ([]catalog.Entry, error) {
	if len(skus) == 0 {
		return nil, nil
	}
	const query = `SELECT id, sku, name, brand, material, category, search_text, supplier_id, source_file_id, source_row_id, created_at, updated_at
		FROM product_descriptions WHERE LOWER(sku) = ANY($1)`
	lowered := make([]string, len(skus))
	for i, s := range skus {
		lowered[i] = toLowerSKU(s)
	}
	rows, err := tx.tx.Query(ctx, query, lowered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		var e catalog.Entry
		if err := rows.Scan(&e.ID, &e.SKU, &e.Name, &e.Brand, &e.Material, &e.Category, &e.SearchText,
			&e.SupplierID, &e.SourceFileID, &e.SourceRowID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (tx *txRepo) CreateEntry(ctx context.Context, entry catalog.Entry) (int64, error) {
	const query = `INSERT INTO product_descriptions (sku, name, brand, material, category, search_text, supplier_id, source_file_id, source_row_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	var id int64
	err := tx.tx.QueryRow(ctx, query, entry.SKU, entry.Name, entry.Brand, entry.Material, entry.Category,
		entry.SearchText, entry.SupplierID, entry.SourceFileID, entry.SourceRowID, time.Now()).Scan(&id)
	return id, err
}

func (tx *txRepo) UpdateEntry(ctx context.Context, entry catalog.Entry) error {
	const query = `UPDATE product_descriptions
		SET name = $1, brand = $2, material = $3, search_text = $4, source_file_id = $5, source_row_id = $6, updated_at = $7
		WHERE id = $8`
	_, err := tx.tx.Exec(ctx, query, entry.Name, entry.Brand, entry.Material, entry.SearchText,
		entry.SourceFileID, entry.SourceRowID, time.Now(), entry.ID)
	return err
}

func (tx *txRepo) InsertRowMatch(ctx context.Context, match catalog.RowMatch) error {
	const query = `INSERT INTO uploaded_row_matches (row_id, product_id, score, match_details, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := tx.tx.Exec(ctx, query, match.RowID, match.ProductID, match.Score, match.Details, time.Now())
	return err
}
