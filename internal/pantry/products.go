package pantry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductInput holds the user-editable fields of a product
type ProductInput struct {
	Barcode     string          `json:"barcode" validate:"max=50"`
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=1000"`
	CategoryID  string          `json:"category_id" validate:"required"`
	UnitID      string          `json:"unit_id" validate:"required"`
	BrandID     string          `json:"brand_id"`
	Price       decimal.Decimal `json:"price"`
}

func (in *ProductInput) normalize() {
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
}

// checkProduct validates the input and the references it holds. excludeID is
// the product being updated, which may keep its own barcode.
func (s *Service) checkProduct(userID, excludeID string, in ProductInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}
	if _, err := s.db.GetCategory(in.CategoryID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationError{Field: "category_id", Message: "does not exist"}
		}
		return fmt.Errorf("getting category: %w", err)
	}
	if _, err := s.db.GetUnit(in.UnitID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return &ValidationError{Field: "unit_id", Message: "does not exist"}
		}
		return fmt.Errorf("getting unit: %w", err)
	}
	if in.BrandID != "" {
		if _, err := s.db.GetBrand(in.BrandID); err != nil {
			if errors.Is(err, ErrNotFound) {
				return &ValidationError{Field: "brand_id", Message: "does not exist"}
			}
			return fmt.Errorf("getting brand: %w", err)
		}
	}
	if in.Barcode != "" {
		existing, err := s.findByBarcode(userID, in.Barcode)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if existing != nil && existing.ID != excludeID {
			return &ValidationError{Field: "barcode", Message: "is already in use"}
		}
	}
	return nil
}

// CreateProduct adds a product to the user's catalog
func (s *Service) CreateProduct(ctx context.Context, userID string, in ProductInput) (*Product, error) {
	in.normalize()
	if err := s.checkProduct(userID, "", in); err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	product := &Product{
		ID:          s.idGenerator.Generate(),
		UserID:      userID,
		Barcode:     in.Barcode,
		Name:        in.Name,
		Description: in.Description,
		CategoryID:  in.CategoryID,
		UnitID:      in.UnitID,
		BrandID:     in.BrandID,
		Price:       in.Price,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.SaveProduct(product); err != nil {
		return nil, fmt.Errorf("saving product: %w", err)
	}
	s.mirrorSave(ctx, KindProducts, product.ID, product)
	return product, nil
}

// UpdateProduct replaces the editable fields of a product
func (s *Service) UpdateProduct(ctx context.Context, userID, id string, in ProductInput) (*Product, error) {
	product, err := s.GetProduct(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	in.normalize()
	if err := s.checkProduct(userID, id, in); err != nil {
		return nil, err
	}

	product.Barcode = in.Barcode
	product.Name = in.Name
	product.Description = in.Description
	product.CategoryID = in.CategoryID
	product.UnitID = in.UnitID
	product.BrandID = in.BrandID
	product.Price = in.Price
	product.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveProduct(product); err != nil {
		return nil, fmt.Errorf("updating product: %w", err)
	}
	s.mirrorSave(ctx, KindProducts, product.ID, product)
	return product, nil
}

// GetProduct retrieves one of the user's products
func (s *Service) GetProduct(ctx context.Context, userID, id string) (*Product, error) {
	product, err := s.db.GetProduct(id)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	if product.UserID != userID {
		return nil, fmt.Errorf("getting product: %w", notFound("product", id))
	}
	return product, nil
}

// ListProducts returns the user's products
func (s *Service) ListProducts(ctx context.Context, userID string) ([]*Product, error) {
	products, err := s.db.ListProducts(userID)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return products, nil
}

// DeleteProduct removes a product and the pantry stock that refers to it
func (s *Service) DeleteProduct(ctx context.Context, userID, id string) error {
	if _, err := s.GetProduct(ctx, userID, id); err != nil {
		return fmt.Errorf("getting product for deletion: %w", err)
	}

	items, err := s.db.ListPantryItems(userID)
	if err != nil {
		return fmt.Errorf("listing pantry items: %w", err)
	}
	for _, item := range items {
		if item.ProductID != id {
			continue
		}
		if err := s.db.DeletePantryItem(item.ID); err != nil {
			return fmt.Errorf("deleting pantry item %s: %w", item.ID, err)
		}
		s.mirrorRemove(ctx, KindPantryItems, item.ID)
	}

	if err := s.db.DeleteProduct(id); err != nil {
		return fmt.Errorf("deleting product: %w", err)
	}
	s.mirrorRemove(ctx, KindProducts, id)
	return nil
}

// FindProductByBarcode returns the user's product with the given barcode
func (s *Service) FindProductByBarcode(ctx context.Context, userID, barcode string) (*Product, error) {
	return s.findByBarcode(userID, strings.TrimSpace(barcode))
}

func (s *Service) findByBarcode(userID, barcode string) (*Product, error) {
	products, err := s.db.ListProducts(userID)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if barcode != "" {
		for _, p := range products {
			if p.Barcode == barcode {
				return p, nil
			}
		}
	}
	return nil, notFound("product with barcode", barcode)
}

// FindOrCreateProduct returns the user's product matching the input barcode,
// or failing that its case-insensitive name, and creates one when neither
// matches. created reports whether a new product was stored.
func (s *Service) FindOrCreateProduct(ctx context.Context, userID string, in ProductInput) (product *Product, created bool, err error) {
	in.normalize()
	products, err := s.db.ListProducts(userID)
	if err != nil {
		return nil, false, fmt.Errorf("listing products: %w", err)
	}
	if in.Barcode != "" {
		for _, p := range products {
			if p.Barcode == in.Barcode {
				return p, false, nil
			}
		}
	}
	key := NameKey(in.Name)
	if key != "" {
		for _, p := range products {
			if NameKey(p.Name) == key {
				return p, false, nil
			}
		}
	}

	product, err = s.CreateProduct(ctx, userID, in)
	if err != nil {
		return nil, false, err
	}
	return product, true, nil
}
