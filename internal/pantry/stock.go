package pantry

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PantryItemInput holds the fields needed to stock a product
type PantryItemInput struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	ExpiresAt *time.Time      `json:"expires_at"`
}

// AddPantryItem stores a new pantry entry for one of the user's products
func (s *Service) AddPantryItem(ctx context.Context, userID string, in PantryItemInput) (*PantryItem, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if !in.Quantity.IsPositive() {
		return nil, &ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if _, err := s.GetProduct(ctx, userID, in.ProductID); err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	item := &PantryItem{
		ID:        s.idGenerator.Generate(),
		UserID:    userID,
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		ExpiresAt: in.ExpiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.SavePantryItem(item); err != nil {
		return nil, fmt.Errorf("saving pantry item: %w", err)
	}
	s.mirrorSave(ctx, KindPantryItems, item.ID, item)
	return item, nil
}

// ListPantryItems returns the user's pantry
func (s *Service) ListPantryItems(ctx context.Context, userID string) ([]*PantryItem, error) {
	items, err := s.db.ListPantryItems(userID)
	if err != nil {
		return nil, fmt.Errorf("listing pantry items: %w", err)
	}
	return items, nil
}

func (s *Service) getPantryItem(userID, id string) (*PantryItem, error) {
	item, err := s.db.GetPantryItem(id)
	if err != nil {
		return nil, fmt.Errorf("getting pantry item: %w", err)
	}
	if item.UserID != userID {
		return nil, fmt.Errorf("getting pantry item: %w", notFound("pantry item", id))
	}
	return item, nil
}

// AdjustPantryQuantity adds delta (which may be negative) to a pantry entry.
// An entry that drops to zero or below is removed and nil is returned.
func (s *Service) AdjustPantryQuantity(ctx context.Context, userID, id string, delta decimal.Decimal) (*PantryItem, error) {
	item, err := s.getPantryItem(userID, id)
	if err != nil {
		return nil, err
	}

	item.Quantity = item.Quantity.Add(delta)
	if !item.Quantity.IsPositive() {
		if err := s.db.DeletePantryItem(id); err != nil {
			return nil, fmt.Errorf("deleting empty pantry item: %w", err)
		}
		s.mirrorRemove(ctx, KindPantryItems, id)
		return nil, nil
	}

	item.UpdatedAt = s.timeSource.Now()
	if err := s.db.SavePantryItem(item); err != nil {
		return nil, fmt.Errorf("saving pantry item: %w", err)
	}
	s.mirrorSave(ctx, KindPantryItems, item.ID, item)
	return item, nil
}

// DeletePantryItem removes a pantry entry
func (s *Service) DeletePantryItem(ctx context.Context, userID, id string) error {
	if _, err := s.getPantryItem(userID, id); err != nil {
		return err
	}
	if err := s.db.DeletePantryItem(id); err != nil {
		return fmt.Errorf("deleting pantry item: %w", err)
	}
	s.mirrorRemove(ctx, KindPantryItems, id)
	return nil
}

// AddStock increases the stock of a product, reusing the user's existing
// entry for it when there is one
func (s *Service) AddStock(ctx context.Context, userID, productID string, quantity decimal.Decimal) (*PantryItem, error) {
	if !quantity.IsPositive() {
		quantity = decimal.NewFromInt(1)
	}
	items, err := s.db.ListPantryItems(userID)
	if err != nil {
		return nil, fmt.Errorf("listing pantry items: %w", err)
	}
	for _, item := range items {
		if item.ProductID == productID {
			return s.AdjustPantryQuantity(ctx, userID, item.ID, quantity)
		}
	}
	return s.AddPantryItem(ctx, userID, PantryItemInput{ProductID: productID, Quantity: quantity})
}
