package pantry

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a user-owned catalog entry
type Product struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Barcode     string          `json:"barcode,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"category_id"`
	UnitID      string          `json:"unit_id"`
	BrandID     string          `json:"brand_id,omitempty"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Category is a shared lookup entry identified by name
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// Brand is a shared lookup entry identified by name
type Brand struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// MeasurementUnit is a shared lookup entry such as "Quilograma (kg)"
type MeasurementUnit struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation"`
	CreatedAt    time.Time `json:"created_at"`
}

// PantryItem tracks how much of a product the user has at home
type PantryItem struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// FiscalReceipt is a purchase receipt fetched from the fiscal authority
type FiscalReceipt struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	StoreName     string              `json:"store_name"`
	StoreTaxID    string              `json:"store_tax_id,omitempty"`
	Number        string              `json:"number"`
	AccessKey     string              `json:"access_key,omitempty"`
	// SourceCode is the scanned code of a receipt without an access key,
	// such as a SAT coupon
	SourceCode    string              `json:"source_code,omitempty"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PurchasedAt   time.Time           `json:"purchased_at"`
	Items         []FiscalReceiptItem `json:"items"`
	IsProcessed   bool                `json:"is_processed"`
	ImageFilename string              `json:"image_filename,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// FiscalReceiptItem is one line of a fiscal receipt. Code, Name, Quantity,
// Unit and UnitPrice come from the remote source; Category and Brand are
// inferred; the import fields are set once the item produced a Product.
type FiscalReceiptItem struct {
	Code              string          `json:"code,omitempty"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              string          `json:"unit,omitempty"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	Category          string          `json:"category,omitempty"`
	Brand             string          `json:"brand,omitempty"`
	IsImported        bool            `json:"is_imported"`
	ImportedProductID string          `json:"imported_product_id,omitempty"`
}

// Kind names a lookup table that supports dedup and populate
type Kind string

const (
	KindCategories Kind = "categories"
	KindBrands     Kind = "brands"
	KindUnits      Kind = "units"
)

// ParseKind maps a path segment to a Kind
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindCategories, KindBrands, KindUnits:
		return Kind(s), true
	}
	return "", false
}
