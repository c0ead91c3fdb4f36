package ingest

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tenderprice/tenderprice/internal/catalog"
	"github.com/tenderprice/tenderprice/internal/shared"
)

// memoryRepo implements RepositoryPort and TxRepository in memory. WithTx is
// not transactional; tests only exercise the happy-path bookkeeping.
type memoryRepo struct {
	nextID  int64
	docs    []SourceDocument
	sheets  []Sheet
	rows    []Row
	entries []catalog.Entry
	matches []catalog.RowMatch
}

func newMemoryRepo() *memoryRepo { return &memoryRepo{nextID: 0} }

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) FindDocumentByHash(_ context.Context, hash string) (DocumentRef, error) {
	for _, d := range m.docs {
		if d.ContentHash == hash {
			return DocumentRef{ID: d.ID, FileName: d.FileName}, nil
		}
	}
	return DocumentRef{}, shared.ErrNotFound
}

func (m *memoryRepo) ListFileNames(_ context.Context, uploadedBy, _, _ string) ([]string, error) {
	var names []string
	for _, d := range m.docs {
		if d.UploadedBy == uploadedBy {
			names = append(names, d.FileName)
		}
	}
	return names, nil
}

func (m *memoryRepo) ListDocuments(_ context.Context, limit, offset int) ([]SourceDocument, int, error) {
	return m.docs, len(m.docs), nil
}

func (m *memoryRepo) CreateDocument(_ context.Context, doc SourceDocument) (int64, error) {
	doc.ID = m.id()
	m.docs = append(m.docs, doc)
	return doc.ID, nil
}

func (m *memoryRepo) CreateSheet(_ context.Context, sheet Sheet) (int64, error) {
	sheet.ID = m.id()
	m.sheets = append(m.sheets, sheet)
	return sheet.ID, nil
}

func (m *memoryRepo) InsertRow(_ context.Context, row Row) (int64, error) {
	row.ID = m.id()
	m.rows = append(m.rows, row)
	return row.ID, nil
}

func (m *memoryRepo) FindEntriesBySKUs(_ context.Context, skus []string) ([]catalog.Entry, error) {
	want := make(map[string]struct{}, len(skus))
	for _, s := range skus {
		want[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	var out []catalog.Entry
	for _, e := range m.entries {
		if _, ok := want[strings.ToLower(e.SKU)]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) CreateEntry(_ context.Context, entry catalog.Entry) (int64, error) {
	entry.ID = m.id()
	m.entries = append(m.entries, entry)
	return entry.ID, nil
}

func (m *memoryRepo) UpdateEntry(_ context.Context, entry catalog.Entry) error {
	for i := range m.entries {
		if m.entries[i].ID == entry.ID {
			m.entries[i] = entry
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *memoryRepo) InsertRowMatch(_ context.Context, match catalog.RowMatch) error {
	match.ID = m.id()
	m.matches = append(m.matches, match)
	return nil
}

type fakeEnqueuer struct {
	calls int
}

func (f *fakeEnqueuer) EnqueueCatalogReindex(context.Context) error {
	f.calls++
	return nil
}

func testWorkbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, cell, v))
		}
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func newTestService(repo RepositoryPort, enq ReindexEnqueuer) *Service {
	return NewService(repo, enq, slog.Default())
}

func TestPreviewParsesWorkbook(t *testing.T) {
	data := testWorkbook(t, [][]any{
		{"Pos.", "Bezeichnung", "Menge", "Einheit"},
		{"1", "Sanitär"},
		{"1.1", "Rohrleitungen"},
		{"1.1.10", "Kupferrohr\nArtikelnr: CU-18", 25, "m"},
	})

	svc := newTestService(newMemoryRepo(), nil)
	preview, err := svc.Preview(context.Background(), data, "angebot.xlsx")
	require.NoError(t, err)

	assert.False(t, preview.IsDuplicate)
	assert.Equal(t, "angebot.xlsx", preview.FileName)
	assert.Equal(t, HashContent(data), preview.ContentHash)
	assert.Equal(t, int64(len(data)), preview.SizeBytes)
	require.Len(t, preview.Rows, 1)
	assert.Equal(t, "Kupferrohr", *preview.Rows[0].Name)
	assert.Equal(t, "CU-18", *preview.Rows[0].SKU)
	assert.Equal(t, "Sanitär", *preview.Rows[0].MainCategory)
}

func TestPreviewFlagsKnownContent(t *testing.T) {
	data := testWorkbook(t, [][]any{
		{"Pos.", "Bezeichnung", "Menge"},
		{"1.1.10", "Kupferrohr", 25},
	})

	repo := newMemoryRepo()
	_, err := repo.CreateDocument(context.Background(), SourceDocument{
		FileName:    "original.xlsx",
		ContentHash: HashContent(data),
		UploadedBy:  "alex",
	})
	require.NoError(t, err)

	svc := newTestService(repo, nil)
	preview, err := svc.Preview(context.Background(), data, "copy.xlsx")
	require.NoError(t, err)

	assert.True(t, preview.IsDuplicate)
	assert.Equal(t, "original.xlsx", preview.DuplicateFileName)
	assert.Empty(t, preview.Rows)
}

func TestPreviewRejectsUnparsableData(t *testing.T) {
	svc := newTestService(newMemoryRepo(), nil)
	_, err := svc.Preview(context.Background(), []byte("not a workbook"), "broken.xlsx")
	assert.ErrorIs(t, err, shared.ErrUnparsable)
}

func samplePreview() PreviewResult {
	return PreviewResult{
		FileName:    "angebot.xlsx",
		SheetName:   "Tabelle1",
		ContentHash: "hash-1",
		SizeBytes:   1024,
		Rows: []PreviewRow{
			{
				RowIndex:     4,
				Position:     strPtr("1.1.10"),
				Name:         strPtr("Kupferrohr"),
				SKU:          strPtr("CU-18"),
				Size:         strPtr("18"),
				MainCategory: strPtr("Sanitär"),
			},
			{
				RowIndex: 6,
				Position: strPtr("1.1.20"),
				Name:     strPtr("Absperrventil"),
			},
		},
	}
}

func TestCommitPersistsDocumentSheetRowsAndCatalog(t *testing.T) {
	repo := newMemoryRepo()
	enq := &fakeEnqueuer{}
	svc := newTestService(repo, enq)

	result, err := svc.Commit(context.Background(), samplePreview(), "alex", "EUR")
	require.NoError(t, err)

	assert.Equal(t, "angebot.xlsx", result.FileName)
	assert.Equal(t, 2, result.RowsSaved)

	require.Len(t, repo.docs, 1)
	assert.Equal(t, "hash-1", repo.docs[0].ContentHash)
	assert.Equal(t, "alex", repo.docs[0].UploadedBy)
	assert.Equal(t, ParseStatusParsed, repo.docs[0].Status)

	require.Len(t, repo.sheets, 1)
	assert.Equal(t, 2, repo.sheets[0].RowCount)

	require.Len(t, repo.rows, 2)
	assert.Equal(t, "cu-18 kupferrohr 18 sanitär", repo.rows[0].NormalizedText)

	// Only the row with a SKU reaches the catalog.
	require.Len(t, repo.entries, 1)
	assert.Equal(t, "CU-18", repo.entries[0].SKU)
	require.NotNil(t, repo.entries[0].SourceFileID)
	require.Len(t, repo.matches, 1)
	assert.Equal(t, 1.0, repo.matches[0].Score)

	assert.Equal(t, 1, enq.calls)
}

func TestCommitFillsOnlyMissingEntryFields(t *testing.T) {
	repo := newMemoryRepo()
	existingName := "Kupferrohr alt"
	_, err := repo.CreateEntry(context.Background(), catalog.Entry{
		SKU:  "cu-18",
		Name: &existingName,
	})
	require.NoError(t, err)

	svc := newTestService(repo, nil)
	_, err = svc.Commit(context.Background(), samplePreview(), "alex", "EUR")
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	// Present values survive, missing ones are filled.
	assert.Equal(t, "Kupferrohr alt", *repo.entries[0].Name)
	require.NotNil(t, repo.entries[0].SearchText)
	require.NotNil(t, repo.entries[0].SourceRowID)
}

func TestCommitReusesEntryForRepeatedSKUInBatch(t *testing.T) {
	preview := samplePreview()
	preview.Rows[1].SKU = strPtr("cu-18") // same SKU, different case

	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	_, err := svc.Commit(context.Background(), preview, "alex", "EUR")
	require.NoError(t, err)

	require.Len(t, repo.entries, 1)
	require.Len(t, repo.matches, 2)
	assert.Equal(t, repo.matches[0].ProductID, repo.matches[1].ProductID)
}

func TestCommitRejectsDuplicateFlaggedPreview(t *testing.T) {
	preview := samplePreview()
	preview.IsDuplicate = true
	preview.DuplicateFileID = 7
	preview.DuplicateFileName = "original.xlsx"

	svc := newTestService(newMemoryRepo(), nil)
	_, err := svc.Commit(context.Background(), preview, "alex", "EUR")
	assert.ErrorIs(t, err, shared.ErrDuplicateContent)
}

func TestCommitRejectsAlreadyCommittedHash(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.CreateDocument(context.Background(), SourceDocument{
		FileName:    "original.xlsx",
		ContentHash: "hash-1",
		UploadedBy:  "alex",
	})
	require.NoError(t, err)

	svc := newTestService(repo, nil)
	_, err = svc.Commit(context.Background(), samplePreview(), "alex", "EUR")
	assert.ErrorIs(t, err, shared.ErrDuplicateContent)
	require.Len(t, repo.docs, 1)
}

func TestCommitDisambiguatesFileName(t *testing.T) {
	repo := newMemoryRepo()
	_, err := repo.CreateDocument(context.Background(), SourceDocument{
		FileName:    "angebot.xlsx",
		ContentHash: "other-hash",
		UploadedBy:  "alex",
	})
	require.NoError(t, err)

	svc := newTestService(repo, nil)
	result, err := svc.Commit(context.Background(), samplePreview(), "alex", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "angebot (1).xlsx", result.FileName)

	// A different uploader keeps the plain name.
	preview := samplePreview()
	preview.ContentHash = "hash-2"
	result, err = svc.Commit(context.Background(), preview, "kim", "EUR")
	require.NoError(t, err)
	assert.Equal(t, "angebot.xlsx", result.FileName)
}

func TestCommitDerivesHashWhenAbsent(t *testing.T) {
	preview := samplePreview()
	preview.ContentHash = ""

	repo := newMemoryRepo()
	svc := newTestService(repo, nil)
	_, err := svc.Commit(context.Background(), preview, "alex", "EUR")
	require.NoError(t, err)
	require.Len(t, repo.docs, 1)
	assert.NotEmpty(t, repo.docs[0].ContentHash)
}
