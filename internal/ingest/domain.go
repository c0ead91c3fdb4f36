package ingest

import (
	"errors"
	"time"
)

// Parse lifecycle of a committed document and its sheet.
type ParseStatus string

const (
	ParseStatusQueued ParseStatus = "QUEUED"
	ParseStatusParsed ParseStatus = "PARSED"
	ParseStatusFailed ParseStatus = "FAILED"
)

// SourceDocument is one committed spreadsheet upload.
type SourceDocument struct {
	ID             int64
	FileName       string
	NormalizedName string
	ContentHash    string
	ByteSize       int64
	UploadedBy     string
	UploadedAt     time.Time
	Status         ParseStatus
	Notes          string
}

// Sheet is one worksheet within a committed document.
type Sheet struct {
	ID         int64
	DocumentID int64
	Name       string
	RowCount   int
	Status     ParseStatus
}

// Row is one logical line-item row after continuation folding.
type Row struct {
	ID             int64
	SheetID        int64
	RowIndex       int
	Position       *string
	MainCategory   *string
	SubCategory    *string
	SKU            *string
	Name           *string
	Description    *string
	Size           *string
	Brand          *string
	Material       *string
	Price          *float64
	Currency       *string
	Raw            map[string]string
	NormalizedText string
	CreatedAt      time.Time
}

// PreviewRow is one extracted item as shown to the caller before commit.
type PreviewRow struct {
	RowIndex     int               `json:"row_index"`
	Position     *string           `json:"position,omitempty"`
	MainCategory *string           `json:"main_category,omitempty"`
	SubCategory  *string           `json:"sub_category,omitempty"`
	SKU          *string           `json:"sku,omitempty"`
	Name         *string           `json:"name,omitempty"`
	Description  *string           `json:"description,omitempty"`
	Size         *string           `json:"size,omitempty"`
	Brand        *string           `json:"brand,omitempty"`
	Material     *string           `json:"material,omitempty"`
	Price        *float64          `json:"price,omitempty"`
	Currency     *string           `json:"currency,omitempty"`
	Raw          map[string]string `json:"raw,omitempty"`
}

// PreviewResult is the outcome of parsing an upload without persisting it.
type PreviewResult struct {
	FileName          string       `json:"file_name"`
	SheetName         string       `json:"sheet_name"`
	Rows              []PreviewRow `json:"rows"`
	ContentHash       string       `json:"content_hash"`
	SizeBytes         int64        `json:"size_bytes"`
	IsDuplicate       bool         `json:"is_duplicate"`
	DuplicateFileID   int64        `json:"duplicate_file_id,omitempty"`
	DuplicateFileName string       `json:"duplicate_file_name,omitempty"`
}

// Parse failures that abort a preview.
var (
	ErrNoWorksheet      = errors.New("ingest: no worksheet found")
	ErrNoHeaderRow      = errors.New("ingest: header row not found")
	ErrNameColumnAbsent = errors.New("ingest: name column not found")
)
