package pantry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// named is the part of a lookup row that dedup works on
type named struct {
	id   string
	name string
}

// duplicates groups rows by NameKey and returns, for every duplicate ID, the
// ID of the row that is kept. The lowest ID of each group wins.
func duplicates(rows []named) map[string]string {
	sorted := make([]named, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].id < sorted[j].id })

	keepers := make(map[string]string)
	out := make(map[string]string)
	for _, r := range sorted {
		key := NameKey(r.name)
		if keeper, ok := keepers[key]; ok {
			out[r.id] = keeper
			continue
		}
		keepers[key] = r.id
	}
	return out
}

// Dedup removes rows of kind whose normalised name repeats an earlier row and
// returns how many were removed
func (s *Service) Dedup(ctx context.Context, kind Kind) (int, error) {
	switch kind {
	case KindCategories:
		return s.DedupCategories(ctx)
	case KindBrands:
		return s.DedupBrands(ctx)
	case KindUnits:
		return s.DedupUnits(ctx)
	}
	return 0, &ValidationError{Field: "kind", Message: "is invalid (" + string(kind) + ")"}
}

// DedupCategories removes duplicate categories
func (s *Service) DedupCategories(ctx context.Context) (int, error) {
	categories, err := s.db.ListCategories()
	if err != nil {
		return 0, fmt.Errorf("listing categories: %w", err)
	}
	rows := make([]named, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, named{id: c.ID, name: c.Name})
	}
	return s.removeDuplicates(ctx, KindCategories, rows, s.db.DeleteCategory, func(p *Product, from, to string) bool {
		if p.CategoryID != from {
			return false
		}
		p.CategoryID = to
		return true
	})
}

// DedupBrands removes duplicate brands
func (s *Service) DedupBrands(ctx context.Context) (int, error) {
	brands, err := s.db.ListBrands()
	if err != nil {
		return 0, fmt.Errorf("listing brands: %w", err)
	}
	rows := make([]named, 0, len(brands))
	for _, b := range brands {
		rows = append(rows, named{id: b.ID, name: b.Name})
	}
	return s.removeDuplicates(ctx, KindBrands, rows, s.db.DeleteBrand, func(p *Product, from, to string) bool {
		if p.BrandID != from {
			return false
		}
		p.BrandID = to
		return true
	})
}

// DedupUnits removes duplicate measurement units
func (s *Service) DedupUnits(ctx context.Context) (int, error) {
	units, err := s.db.ListUnits()
	if err != nil {
		return 0, fmt.Errorf("listing units: %w", err)
	}
	rows := make([]named, 0, len(units))
	for _, u := range units {
		rows = append(rows, named{id: u.ID, name: u.Name})
	}
	return s.removeDuplicates(ctx, KindUnits, rows, s.db.DeleteUnit, func(p *Product, from, to string) bool {
		if p.UnitID != from {
			return false
		}
		p.UnitID = to
		return true
	})
}

// removeDuplicates re-points products at the kept row and deletes each
// duplicate. A failure on one row is logged and the pass continues.
func (s *Service) removeDuplicates(
	ctx context.Context,
	kind Kind,
	rows []named,
	remove func(id string) error,
	repoint func(p *Product, from, to string) bool,
) (int, error) {
	dups := duplicates(rows)
	if len(dups) == 0 {
		return 0, nil
	}

	products, err := s.db.ListAllProducts()
	if err != nil {
		return 0, fmt.Errorf("listing products: %w", err)
	}

	removed := 0
	for _, r := range rows {
		keeper, ok := dups[r.id]
		if !ok {
			continue
		}
		for _, p := range products {
			if !repoint(p, r.id, keeper) {
				continue
			}
			p.UpdatedAt = s.timeSource.Now()
			if err := s.db.SaveProduct(p); err != nil {
				slog.Warn("Failed to re-point product", "kind", kind, "product_id", p.ID, "from", r.id, "to", keeper, "error", err)
				continue
			}
			s.mirrorSave(ctx, KindProducts, p.ID, p)
		}
		if err := remove(r.id); err != nil {
			slog.Warn("Failed to delete duplicate", "kind", kind, "id", r.id, "name", r.name, "error", err)
			continue
		}
		s.mirrorRemove(ctx, kind, r.id)
		removed++
	}

	slog.Info("Removed duplicates", "kind", kind, "count", removed)
	return removed, nil
}
