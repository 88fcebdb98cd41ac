package pantry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/zombor/pantry-manager/internal/scanning"
)

// ErrNoGenerator is returned by populate when no LLM provider is configured
var ErrNoGenerator = errors.New("no text generator configured")

// Populate asks the generator for values of kind and inserts the ones not
// already present. It returns how many rows were inserted.
func (s *Service) Populate(ctx context.Context, kind Kind) (int, error) {
	switch kind {
	case KindCategories:
		return s.PopulateCategories(ctx)
	case KindBrands:
		return s.PopulateBrands(ctx)
	case KindUnits:
		return s.PopulateUnits(ctx)
	}
	return 0, &ValidationError{Field: "kind", Message: "is invalid (" + string(kind) + ")"}
}

// PopulateCategories inserts category names suggested by the generator
func (s *Service) PopulateCategories(ctx context.Context) (int, error) {
	candidates, err := s.candidates(ctx, scanning.CategoriesPrompt(s.populate.Limit), scanning.ParseCandidates)
	if err != nil {
		return 0, err
	}
	categories, err := s.db.ListCategories()
	if err != nil {
		return 0, fmt.Errorf("listing categories: %w", err)
	}
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		seen[NameKey(c.Name)] = true
	}

	inserted := 0
	for _, c := range candidates {
		key := NameKey(c.Name)
		if seen[key] {
			continue
		}
		if _, err := s.CreateCategory(ctx, c.Name); err != nil {
			slog.Warn("Failed to insert suggested category", "name", c.Name, "error", err)
			continue
		}
		seen[key] = true
		inserted++
	}
	return inserted, nil
}

// PopulateBrands inserts brand names suggested by the generator
func (s *Service) PopulateBrands(ctx context.Context) (int, error) {
	candidates, err := s.candidates(ctx, scanning.BrandsPrompt(s.populate.Limit), scanning.ParseCandidates)
	if err != nil {
		return 0, err
	}
	brands, err := s.db.ListBrands()
	if err != nil {
		return 0, fmt.Errorf("listing brands: %w", err)
	}
	seen := make(map[string]bool, len(brands))
	for _, b := range brands {
		seen[NameKey(b.Name)] = true
	}

	inserted := 0
	for _, c := range candidates {
		key := NameKey(c.Name)
		if seen[key] {
			continue
		}
		if _, err := s.CreateBrand(ctx, c.Name); err != nil {
			slog.Warn("Failed to insert suggested brand", "name", c.Name, "error", err)
			continue
		}
		seen[key] = true
		inserted++
	}
	return inserted, nil
}

// PopulateUnits inserts measurement units suggested by the generator
func (s *Service) PopulateUnits(ctx context.Context) (int, error) {
	candidates, err := s.candidates(ctx, scanning.UnitsPrompt(s.populate.Limit), scanning.ParseUnitCandidates)
	if err != nil {
		return 0, err
	}
	units, err := s.db.ListUnits()
	if err != nil {
		return 0, fmt.Errorf("listing units: %w", err)
	}
	seen := make(map[string]bool, len(units))
	for _, u := range units {
		seen[NameKey(u.Name)] = true
	}

	inserted := 0
	for _, c := range candidates {
		key := NameKey(c.Name)
		if seen[key] {
			continue
		}
		if _, err := s.CreateUnit(ctx, c.Name, c.Abbreviation); err != nil {
			slog.Warn("Failed to insert suggested unit", "name", c.Name, "error", err)
			continue
		}
		seen[key] = true
		inserted++
	}
	return inserted, nil
}

// candidates sends one prompt and parses every completion it returns
func (s *Service) candidates(ctx context.Context, prompt scanning.Prompt, parse func(string) []scanning.Candidate) ([]scanning.Candidate, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}
	prompt.MaxTokens = s.populate.MaxTokens
	prompt.Temperature = s.populate.Temperature

	completions, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generating suggestions: %w", err)
	}

	var out []scanning.Candidate
	for _, text := range completions {
		parsed := parse(text)
		if len(parsed) == 0 {
			slog.Warn("Could not parse suggestions", "response", text)
		}
		out = append(out, parsed...)
	}
	return out, nil
}
