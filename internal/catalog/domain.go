package catalog

import "time"

// Entry is one deduplicated product known across all uploads. SKU is the
// reconciliation key; it is a soft-unique lookup key, not enforced by the
// database.
type Entry struct {
	ID           int64
	SKU          string
	Name         *string
	Brand        *string
	Material     *string
	Category     *string
	SearchText   *string
	SupplierID   *int64
	SourceFileID *int64
	SourceRowID  *int64
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}

// RowMatch links an uploaded row to the catalog entry it contributed to or
// matched. The (row, product) pair is unique.
type RowMatch struct {
	ID        int64
	RowID     int64
	ProductID int64
	Score     float64
	Details   string
	CreatedAt time.Time
}

// Supplier is an optional vendor reference for catalog entries.
type Supplier struct {
	ID      int64
	Name    string
	Country *string
	Notes   *string
}

// GridRow is one line of the paged catalog listing.
type GridRow struct {
	ProductID  int64    `json:"product_id"`
	SKU        string   `json:"sku"`
	Name       *string  `json:"name,omitempty"`
	Supplier   *string  `json:"supplier,omitempty"`
	SearchText *string  `json:"search_text,omitempty"`
	MyPrice    *float64 `json:"my_price,omitempty"`
	Currency   string   `json:"currency"`
}

// UserPrice is a per-user, per-currency price for a catalog entry.
type UserPrice struct {
	ID        int64
	ProductID int64
	UserID    string
	Currency  string
	Price     float64
	CreatedAt time.Time
	UpdatedAt *time.Time
}
