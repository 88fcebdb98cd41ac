package fiscal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/zombor/pantry-manager/internal/pantry"
)

// Catalog is the part of the pantry service the importer writes through
type Catalog interface {
	FindOrCreateCategory(ctx context.Context, name string) (*pantry.Category, error)
	FindOrCreateBrand(ctx context.Context, name string) (*pantry.Brand, error)
	FindOrCreateUnit(ctx context.Context, name, abbreviation string) (*pantry.MeasurementUnit, error)
	FindOrCreateProduct(ctx context.Context, userID string, in pantry.ProductInput) (*pantry.Product, bool, error)
	AddStock(ctx context.Context, userID, productID string, quantity decimal.Decimal) (*pantry.PantryItem, error)
	SaveFiscalReceipt(ctx context.Context, receipt *pantry.FiscalReceipt) error
}

// ImporterConfig tunes the item importer. Zero values use the defaults.
type ImporterConfig struct {
	CategoryRules    []CategoryRule
	Brands           []string
	FallbackCategory string
	// DefaultUnit is used for items that carry no unit code
	DefaultUnit string
	// AddToPantry adds each imported item's quantity to the user's stock
	AddToPantry bool
}

// ItemError describes an item that could not be imported
type ItemError struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ImportResult summarises an import run. Items imported by an earlier run
// are counted in neither Imported nor Failed.
type ImportResult struct {
	ReceiptID string      `json:"receipt_id"`
	Imported  int         `json:"imported"`
	Failed    int         `json:"failed"`
	Errors    []ItemError `json:"errors,omitempty"`
}

// Importer turns receipt lines into catalog products
type Importer struct {
	catalog  Catalog
	inferrer *Inferrer
	cfg      ImporterConfig
}

// NewImporter creates an Importer
func NewImporter(catalog Catalog, cfg ImporterConfig) *Importer {
	if cfg.FallbackCategory == "" {
		cfg.FallbackCategory = pantry.FallbackCategory
	}
	if cfg.DefaultUnit == "" {
		cfg.DefaultUnit = "UN"
	}
	return &Importer{
		catalog:  catalog,
		inferrer: NewInferrer(cfg.CategoryRules, cfg.Brands),
		cfg:      cfg,
	}
}

// Import finds or creates a product for every item not yet imported and
// links the item to it. A failing item is recorded and the run continues.
// The receipt is saved as processed once all items were tried.
func (im *Importer) Import(ctx context.Context, userID string, receipt *pantry.FiscalReceipt) (*ImportResult, error) {
	result := &ImportResult{ReceiptID: receipt.ID}

	for i := range receipt.Items {
		item := &receipt.Items[i]
		if item.IsImported {
			continue
		}
		if item.Category == "" {
			item.Category = im.inferrer.Category(item.Name)
		}
		if item.Brand == "" {
			item.Brand = im.inferrer.Brand(item.Name)
		}

		productID, err := im.importItem(ctx, userID, item)
		if err != nil {
			slog.Warn("Failed to import receipt item",
				"receipt_id", receipt.ID,
				"index", i,
				"name", item.Name,
				"error", err,
			)
			result.Failed++
			result.Errors = append(result.Errors, ItemError{Index: i, Name: item.Name, Message: err.Error()})
			continue
		}
		item.IsImported = true
		item.ImportedProductID = productID
		result.Imported++
	}

	receipt.IsProcessed = true
	if err := im.catalog.SaveFiscalReceipt(ctx, receipt); err != nil {
		return result, fmt.Errorf("saving processed receipt: %w", err)
	}

	slog.Info("Imported receipt",
		"receipt_id", receipt.ID,
		"imported", result.Imported,
		"failed", result.Failed,
	)
	return result, nil
}

func (im *Importer) importItem(ctx context.Context, userID string, item *pantry.FiscalReceiptItem) (string, error) {
	categoryName := item.Category
	if categoryName == "" {
		categoryName = im.cfg.FallbackCategory
	}
	category, err := im.catalog.FindOrCreateCategory(ctx, categoryName)
	if err != nil {
		return "", fmt.Errorf("finding category %q: %w", categoryName, err)
	}

	unitCode := item.Unit
	if unitCode == "" {
		unitCode = im.cfg.DefaultUnit
	}
	unit, err := im.catalog.FindOrCreateUnit(ctx, unitCode, unitCode)
	if err != nil {
		return "", fmt.Errorf("finding unit %q: %w", unitCode, err)
	}

	var brandID string
	if item.Brand != "" {
		brand, err := im.catalog.FindOrCreateBrand(ctx, item.Brand)
		if err != nil {
			return "", fmt.Errorf("finding brand %q: %w", item.Brand, err)
		}
		brandID = brand.ID
	}

	in := pantry.ProductInput{
		Name:       item.Name,
		CategoryID: category.ID,
		UnitID:     unit.ID,
		BrandID:    brandID,
		Price:      item.UnitPrice,
	}
	if IsGTIN(item.Code) {
		in.Barcode = item.Code
	}

	product, _, err := im.catalog.FindOrCreateProduct(ctx, userID, in)
	if err != nil {
		return "", fmt.Errorf("finding product: %w", err)
	}

	if im.cfg.AddToPantry {
		if _, err := im.catalog.AddStock(ctx, userID, product.ID, item.Quantity); err != nil {
			slog.Warn("Failed to add imported item to pantry", "product_id", product.ID, "error", err)
		}
	}
	return product.ID, nil
}

// IsGTIN reports whether code looks like a retail barcode: 8, 12, 13 or 14
// digits. Receipts also carry internal store codes, which are not barcodes.
func IsGTIN(code string) bool {
	switch len(code) {
	case 8, 12, 13, 14:
	default:
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
