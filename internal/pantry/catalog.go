package pantry

import (
	"context"
	"fmt"
	"strings"
)

type nameInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type unitInput struct {
	Name         string `json:"name" validate:"required,max=100"`
	Abbreviation string `json:"abbreviation" validate:"max=20"`
}

// CreateCategory inserts a category without checking for an existing name
func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	in := nameInput{Name: strings.TrimSpace(name)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	category := &Category{
		ID:        s.idGenerator.Generate(),
		Name:      in.Name,
		Color:     s.colors.Pick(AccentColors),
		CreatedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveCategory(category); err != nil {
		return nil, fmt.Errorf("saving category: %w", err)
	}
	s.mirrorSave(ctx, KindCategories, category.ID, category)
	return category, nil
}

// ListCategories returns all categories
func (s *Service) ListCategories(ctx context.Context) ([]*Category, error) {
	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by ID
func (s *Service) GetCategory(ctx context.Context, id string) (*Category, error) {
	category, err := s.db.GetCategory(id)
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return category, nil
}

// DeleteCategory removes a category
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.db.GetCategory(id); err != nil {
		return fmt.Errorf("getting category for deletion: %w", err)
	}
	if err := s.db.DeleteCategory(id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	s.mirrorRemove(ctx, KindCategories, id)
	return nil
}

// FindOrCreateCategory returns the category whose name matches
// case-insensitively, creating it when absent
func (s *Service) FindOrCreateCategory(ctx context.Context, name string) (*Category, error) {
	categories, err := s.db.ListCategories()
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	key := NameKey(name)
	for _, c := range categories {
		if NameKey(c.Name) == key {
			return c, nil
		}
	}
	return s.CreateCategory(ctx, name)
}

// CreateBrand inserts a brand without checking for an existing name
func (s *Service) CreateBrand(ctx context.Context, name string) (*Brand, error) {
	in := nameInput{Name: strings.TrimSpace(name)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	brand := &Brand{
		ID:        s.idGenerator.Generate(),
		Name:      in.Name,
		CreatedAt: s.timeSource.Now(),
	}
	if err := s.db.SaveBrand(brand); err != nil {
		return nil, fmt.Errorf("saving brand: %w", err)
	}
	s.mirrorSave(ctx, KindBrands, brand.ID, brand)
	return brand, nil
}

// ListBrands returns all brands
func (s *Service) ListBrands(ctx context.Context) ([]*Brand, error) {
	brands, err := s.db.ListBrands()
	if err != nil {
		return nil, fmt.Errorf("listing brands: %w", err)
	}
	return brands, nil
}

// GetBrand retrieves a brand by ID
func (s *Service) GetBrand(ctx context.Context, id string) (*Brand, error) {
	brand, err := s.db.GetBrand(id)
	if err != nil {
		return nil, fmt.Errorf("getting brand: %w", err)
	}
	return brand, nil
}

// DeleteBrand removes a brand
func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	if _, err := s.db.GetBrand(id); err != nil {
		return fmt.Errorf("getting brand for deletion: %w", err)
	}
	if err := s.db.DeleteBrand(id); err != nil {
		return fmt.Errorf("deleting brand: %w", err)
	}
	s.mirrorRemove(ctx, KindBrands, id)
	return nil
}

// FindOrCreateBrand returns the brand whose name matches case-insensitively,
// creating it when absent
func (s *Service) FindOrCreateBrand(ctx context.Context, name string) (*Brand, error) {
	brands, err := s.db.ListBrands()
	if err != nil {
		return nil, fmt.Errorf("listing brands: %w", err)
	}
	key := NameKey(name)
	for _, b := range brands {
		if NameKey(b.Name) == key {
			return b, nil
		}
	}
	return s.CreateBrand(ctx, name)
}

// CreateUnit inserts a measurement unit without checking for an existing
// name. An empty abbreviation defaults to the lower-cased name.
func (s *Service) CreateUnit(ctx context.Context, name, abbreviation string) (*MeasurementUnit, error) {
	in := unitInput{Name: strings.TrimSpace(name), Abbreviation: strings.TrimSpace(abbreviation)}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.Abbreviation == "" {
		in.Abbreviation = strings.ToLower(in.Name)
	}
	unit := &MeasurementUnit{
		ID:           s.idGenerator.Generate(),
		Name:         in.Name,
		Abbreviation: in.Abbreviation,
		CreatedAt:    s.timeSource.Now(),
	}
	if err := s.db.SaveUnit(unit); err != nil {
		return nil, fmt.Errorf("saving unit: %w", err)
	}
	s.mirrorSave(ctx, KindUnits, unit.ID, unit)
	return unit, nil
}

// ListUnits returns all measurement units
func (s *Service) ListUnits(ctx context.Context) ([]*MeasurementUnit, error) {
	units, err := s.db.ListUnits()
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	return units, nil
}

// GetUnit retrieves a measurement unit by ID
func (s *Service) GetUnit(ctx context.Context, id string) (*MeasurementUnit, error) {
	unit, err := s.db.GetUnit(id)
	if err != nil {
		return nil, fmt.Errorf("getting unit: %w", err)
	}
	return unit, nil
}

// DeleteUnit removes a measurement unit
func (s *Service) DeleteUnit(ctx context.Context, id string) error {
	if _, err := s.db.GetUnit(id); err != nil {
		return fmt.Errorf("getting unit for deletion: %w", err)
	}
	if err := s.db.DeleteUnit(id); err != nil {
		return fmt.Errorf("deleting unit: %w", err)
	}
	s.mirrorRemove(ctx, KindUnits, id)
	return nil
}

// FindOrCreateUnit returns the unit whose name or abbreviation matches name
// case-insensitively, creating it when absent. Receipts carry unit codes
// like "KG" or "UN", which match on abbreviation.
func (s *Service) FindOrCreateUnit(ctx context.Context, name, abbreviation string) (*MeasurementUnit, error) {
	units, err := s.db.ListUnits()
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	key := NameKey(name)
	for _, u := range units {
		if NameKey(u.Name) == key {
			return u, nil
		}
	}
	for _, u := range units {
		if NameKey(u.Abbreviation) == key {
			return u, nil
		}
	}
	return s.CreateUnit(ctx, name, abbreviation)
}

// SeedDefaults fills empty category and unit tables with the default lists
func (s *Service) SeedDefaults(ctx context.Context) error {
	categories, err := s.db.ListCategories()
	if err != nil {
		return fmt.Errorf("listing categories: %w", err)
	}
	if len(categories) == 0 {
		for _, name := range DefaultCategories {
			if _, err := s.CreateCategory(ctx, name); err != nil {
				return fmt.Errorf("seeding category %q: %w", name, err)
			}
		}
	}

	units, err := s.db.ListUnits()
	if err != nil {
		return fmt.Errorf("listing units: %w", err)
	}
	if len(units) == 0 {
		for _, u := range DefaultUnits {
			if _, err := s.CreateUnit(ctx, u.Name, u.Abbreviation); err != nil {
				return fmt.Errorf("seeding unit %q: %w", u.Name, err)
			}
		}
	}
	return nil
}
