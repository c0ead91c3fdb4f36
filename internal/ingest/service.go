package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tenderprice/tenderprice/internal/catalog"
	"github.com/tenderprice/tenderprice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	FindDocumentByHash(ctx context.Context, hash string) (DocumentRef, error)
	ListFileNames(ctx context.Context, uploadedBy, baseName, ext string) ([]string, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]SourceDocument, int, error)
}

// ReindexEnqueuer schedules a catalog search-text rebuild after commits.
type ReindexEnqueuer interface {
	EnqueueCatalogReindex(ctx context.Context) error
}

// Service orchestrates the preview and commit pipeline.
type Service struct {
	repo     RepositoryPort
	enqueuer ReindexEnqueuer
	logger   *slog.Logger
}

// NewService constructs the ingestion service.
func NewService(repo RepositoryPort, enqueuer ReindexEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, enqueuer: enqueuer, logger: logger}
}

// CommitResult reports what one commit persisted.
type CommitResult struct {
	DocumentID int64  `json:"document_id"`
	SheetID    int64  `json:"sheet_id"`
	FileName   string `json:"file_name"`
	RowsSaved  int    `json:"rows_saved"`
}

// Preview hashes the upload, short-circuits on known content, and otherwise
// parses the first worksheet into an ordered item list. Nothing is persisted.
func (s *Service) Preview(ctx context.Context, data []byte, fileName string) (PreviewResult, error) {
	hash := HashContent(data)
	size := int64(len(data))

	// Cheap pre-check; the authoritative check runs again at commit time.
	existing, err := s.repo.FindDocumentByHash(ctx, hash)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return PreviewResult{}, err
	}
	if err == nil {
		return PreviewResult{
			FileName:          fileName,
			ContentHash:       hash,
			SizeBytes:         size,
			IsDuplicate:       true,
			DuplicateFileID:   existing.ID,
			DuplicateFileName: existing.FileName,
		}, nil
	}

	grid, err := openWorkbook(data)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("%w: %v", shared.ErrUnparsable, err)
	}

	st, err := detectStructure(grid)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("%w: %v", shared.ErrUnparsable, err)
	}

	rows, err := parseRows(ctx, grid, st)
	if err != nil {
		return PreviewResult{}, err
	}

	return PreviewResult{
		FileName:    fileName,
		SheetName:   grid.name,
		Rows:        rows,
		ContentHash: hash,
		SizeBytes:   size,
	}, nil
}

// Commit persists a previously produced preview: the document record, its
// sheet, every extracted row, and the catalog upserts, in one transaction.
func (s *Service) Commit(ctx context.Context, preview PreviewResult, uploadedBy, defaultCurrency string) (CommitResult, error) {
	if preview.IsDuplicate {
		return CommitResult{}, duplicateError(preview.DuplicateFileID, preview.DuplicateFileName)
	}

	hash := preview.ContentHash
	if strings.TrimSpace(hash) == "" {
		// Previews produced elsewhere may lack a hash; derive one from the
		// canonical serialization so dedup still holds.
		data, err := json.Marshal(preview)
		if err != nil {
			return CommitResult{}, fmt.Errorf("ingest: hash preview: %w", err)
		}
		hash = HashContent(data)
	}

	// Authoritative duplicate check. The unique index on the content hash
	// closes the remaining race between this check and the insert.
	if existing, err := s.repo.FindDocumentByHash(ctx, hash); err == nil {
		return CommitResult{}, duplicateError(existing.ID, existing.FileName)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return CommitResult{}, err
	}

	baseName, ext := splitFileName(preview.FileName)
	names, err := s.repo.ListFileNames(ctx, uploadedBy, baseName, ext)
	if err != nil {
		return CommitResult{}, err
	}
	storedName := DisambiguateFileName(baseName, ext, names)

	var result CommitResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		docID, err := tx.CreateDocument(ctx, SourceDocument{
			FileName:       storedName,
			NormalizedName: baseName + ext,
			ContentHash:    hash,
			ByteSize:       preview.SizeBytes,
			UploadedBy:     uploadedBy,
			UploadedAt:     time.Now().UTC(),
			Status:         ParseStatusParsed,
			Notes:          "Imported via preview pipeline",
		})
		if err != nil {
			return err
		}

		sheetID, err := tx.CreateSheet(ctx, Sheet{
			DocumentID: docID,
			Name:       preview.SheetName,
			RowCount:   len(preview.Rows),
			Status:     ParseStatusParsed,
		})
		if err != nil {
			return err
		}

		entries, err := loadBatchEntries(ctx, tx, preview.Rows)
		if err != nil {
			return err
		}

		for _, item := range preview.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}

			normalized := NormalizedText(item)
			row := Row{
				SheetID:        sheetID,
				RowIndex:       item.RowIndex,
				Position:       item.Position,
				MainCategory:   item.MainCategory,
				SubCategory:    item.SubCategory,
				SKU:            item.SKU,
				Name:           item.Name,
				Description:    item.Description,
				Size:           item.Size,
				Brand:          item.Brand,
				Material:       item.Material,
				Price:          item.Price,
				Raw:            item.Raw,
				NormalizedText: normalized,
			}
			if item.Price != nil {
				currency := defaultCurrency
				if item.Currency != nil {
					currency = *item.Currency
				}
				row.Currency = &currency
			}

			rowID, err := tx.InsertRow(ctx, row)
			if err != nil {
				return err
			}

			if item.SKU == nil || strings.TrimSpace(*item.SKU) == "" {
				continue
			}
			if err := reconcileEntry(ctx, tx, entries, item, normalized, docID, rowID); err != nil {
				return err
			}
		}

		result = CommitResult{DocumentID: docID, SheetID: sheetID, FileName: storedName, RowsSaved: len(preview.Rows)}
		return nil
	})
	if err != nil {
		return CommitResult{}, err
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueCatalogReindex(ctx); err != nil && s.logger != nil {
			s.logger.Warn("enqueue catalog reindex", slog.Any("error", err))
		}
	}
	return result, nil
}

// ListDocuments returns committed documents for browsing.
func (s *Service) ListDocuments(ctx context.Context, page shared.Pagination) ([]SourceDocument, int, error) {
	return s.repo.ListDocuments(ctx, page.PerPage, page.Offset())
}

// loadBatchEntries fetches the catalog entries matching any SKU in the batch,
// keyed by lowercase SKU. One load per commit; later sightings within the
// batch reuse entries created earlier in the same transaction.
func loadBatchEntries(ctx context.Context, tx TxRepository, rows []PreviewRow) (map[string]*catalog.Entry, error) {
	var skus []string
	seen := make(map[string]struct{})
	for _, r := range rows {
		if r.SKU == nil {
			continue
		}
		key := toLowerSKU(*r.SKU)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		skus = append(skus, *r.SKU)
	}

	found, err := tx.FindEntriesBySKUs(ctx, skus)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]*catalog.Entry, len(found))
	for i := range found {
		entries[toLowerSKU(found[i].SKU)] = &found[i]
	}
	return entries, nil
}

// reconcileEntry creates a catalog entry on first sighting of a SKU, or fills
// only the missing fields of the existing one, and records the provenance
// link either way.
func reconcileEntry(ctx context.Context, tx TxRepository, entries map[string]*catalog.Entry, item PreviewRow, normalized string, docID, rowID int64) error {
	key := toLowerSKU(*item.SKU)

	incoming := catalog.Entry{
		SKU:          strings.TrimSpace(*item.SKU),
		Name:         item.Name,
		Brand:        item.Brand,
		Material:     item.Material,
		SearchText:   &normalized,
		SourceFileID: &docID,
		SourceRowID:  &rowID,
	}

	existing, ok := entries[key]
	if !ok {
		id, err := tx.CreateEntry(ctx, incoming)
		if err != nil {
			return err
		}
		incoming.ID = id
		entries[key] = &incoming
		return tx.InsertRowMatch(ctx, catalog.RowMatch{
			RowID:     rowID,
			ProductID: id,
			Score:     1.0,
			Details:   "exact sku match on first sighting",
		})
	}

	merged, changed := catalog.Merge(*existing, incoming)
	if changed {
		if err := tx.UpdateEntry(ctx, merged); err != nil {
			return err
		}
		*existing = merged
	}
	return tx.InsertRowMatch(ctx, catalog.RowMatch{
		RowID:     rowID,
		ProductID: existing.ID,
		Score:     1.0,
		Details:   "exact sku match",
	})
}

func duplicateError(id int64, name string) error {
	return fmt.Errorf("%w: already uploaded as file #%d (%s)", shared.ErrDuplicateContent, id, name)
}

func toLowerSKU(sku string) string {
	return strings.ToLower(strings.TrimSpace(sku))
}
