package pantry

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/pantry-manager/internal/scanning"
)

// Record kinds mirrored to the remote store besides the lookup tables
const (
	KindProducts       Kind = "products"
	KindPantryItems    Kind = "pantry_items"
	KindFiscalReceipts Kind = "fiscal_receipts"
)

// IDGenerator generates unique IDs for records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// ColorPicker chooses an accent colour for a new category
type ColorPicker interface {
	Pick(palette []string) string
}

// Mirror copies local writes to the remote document store
type Mirror interface {
	Mirror(ctx context.Context, kind Kind, id string, doc any) error
	Remove(ctx context.Context, kind Kind, id string) error
}

// defaultIDGenerator generates time-ordered UUIDv7 strings, so sorting IDs
// sorts records by insertion
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

type randomColorPicker struct{}

func (randomColorPicker) Pick(palette []string) string {
	if len(palette) == 0 {
		return ""
	}
	return palette[rand.IntN(len(palette))]
}

// PopulateOptions are the sampling parameters used for populate prompts
type PopulateOptions struct {
	Limit       int
	MaxTokens   int
	Temperature float32
}

// DefaultPopulateOptions asks for a short list with some variety
var DefaultPopulateOptions = PopulateOptions{
	Limit:       30,
	MaxTokens:   1024,
	Temperature: 0.7,
}

// Service handles catalog, pantry and receipt operations
type Service struct {
	db          DB
	generator   scanning.Generator
	mirror      Mirror
	idGenerator IDGenerator
	timeSource  TimeSource
	colors      ColorPicker
	populate    PopulateOptions
}

// NewService creates a new Service with default ID generator, time source
// and colour picker. generator and mirror may be nil.
func NewService(db DB, generator scanning.Generator, mirror Mirror) *Service {
	return NewServiceWithDeps(db, generator, mirror, &defaultIDGenerator{}, &defaultTimeSource{}, randomColorPicker{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, generator scanning.Generator, mirror Mirror, idGen IDGenerator, timeSrc TimeSource, colors ColorPicker) *Service {
	return &Service{
		db:          db,
		generator:   generator,
		mirror:      mirror,
		idGenerator: idGen,
		timeSource:  timeSrc,
		colors:      colors,
		populate:    DefaultPopulateOptions,
	}
}

// SetPopulateOptions overrides the sampling parameters for populate prompts
func (s *Service) SetPopulateOptions(opts PopulateOptions) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultPopulateOptions.Limit
	}
	s.populate = opts
}

func (s *Service) mirrorSave(ctx context.Context, kind Kind, id string, doc any) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Mirror(ctx, kind, id, doc); err != nil {
		slog.Warn("Failed to mirror record", "kind", kind, "id", id, "error", err)
	}
}

func (s *Service) mirrorRemove(ctx context.Context, kind Kind, id string) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.Remove(ctx, kind, id); err != nil {
		slog.Warn("Failed to remove mirrored record", "kind", kind, "id", id, "error", err)
	}
}
