package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kingrea/storefront/internal/apperr"
)

// ErrProductNotFound is returned when an id is not in the catalog.
var ErrProductNotFound = errors.New("catalog: product not found")

// Source is the read-only catalog resource.
type Source interface {
	Products(ctx context.Context) ([]Product, error)
	Product(ctx context.Context, id int) (Product, error)
}

// FileSource reads the static products.json resource.
type FileSource struct {
	path    string
	latency time.Duration
}

// SourceOption customizes a FileSource during construction.
type SourceOption func(*FileSource)

// WithLatency simulates a network round-trip on every fetch.
func WithLatency(d time.Duration) SourceOption {
	return func(s *FileSource) {
		s.latency = d
	}
}

// NewFileSource builds a source over the JSON file at path.
func NewFileSource(path string, opts ...SourceOption) *FileSource {
	src := &FileSource{path: path}
	for _, opt := range opts {
		opt(src)
	}
	return src
}

// Path returns the backing file.
func (s *FileSource) Path() string {
	return s.path
}

// Products reads and validates the whole catalog.
func (s *FileSource) Products(ctx context.Context) ([]Product, error) {
	if err := s.wait(ctx); err != nil {
		return nil, apperr.Load("catalog.fetch", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperr.Load("catalog.fetch", err)
	}
	return Decode(data)
}

// Product reads the catalog and returns a single entry.
func (s *FileSource) Product(ctx context.Context, id int) (Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return Product{}, err
	}
	p, ok := Find(products, id)
	if !ok {
		return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return p, nil
}

func (s *FileSource) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var validate = validator.New()

// Decode parses and validates a catalog document. Any malformed entry fails
// the whole load.
func Decode(data []byte) ([]Product, error) {
	var products []Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, apperr.Load("catalog.parse", err)
	}
	seen := make(map[int]struct{}, len(products))
	for i, p := range products {
		if err := validate.Struct(p); err != nil {
			return nil, apperr.Load("catalog.parse", fmt.Errorf("products[%d]: %w", i, err))
		}
		if p.Price.IsNegative() {
			return nil, apperr.Load("catalog.parse", fmt.Errorf("products[%d]: price cannot be negative", i))
		}
		if _, dup := seen[p.ID]; dup {
			return nil, apperr.Load("catalog.parse", fmt.Errorf("products[%d]: duplicate id %d", i, p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	return products, nil
}

// StaticSource serves a fixed product slice.
type StaticSource []Product

func (s StaticSource) Products(ctx context.Context) ([]Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Load("catalog.fetch", err)
	}
	return append([]Product(nil), s...), nil
}

func (s StaticSource) Product(ctx context.Context, id int) (Product, error) {
	if err := ctx.Err(); err != nil {
		return Product{}, apperr.Load("catalog.fetch", err)
	}
	p, ok := Find(s, id)
	if !ok {
		return Product{}, fmt.Errorf("%w: %d", ErrProductNotFound, id)
	}
	return p, nil
}

// Load fetches the full catalog once. Failures come back as Load errors.
func Load(ctx context.Context, src Source) ([]Product, error) {
	products, err := src.Products(ctx)
	if err != nil {
		if _, ok := apperr.KindOf(err); !ok {
			err = apperr.Load("catalog.load", err)
		}
		return nil, err
	}
	return products, nil
}
