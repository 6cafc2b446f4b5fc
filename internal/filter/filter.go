// Package filter narrows and orders product collections for display.
package filter

import (
	"cmp"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/catalog"
)

// SortKey names an ordering.
type SortKey string

const (
	SortFeatured  SortKey = "featured"
	SortNewest    SortKey = "newest"
	SortPriceAsc  SortKey = "price-asc"
	SortPriceDesc SortKey = "price-desc"
	SortNameAsc   SortKey = "name-asc"
	SortNameDesc  SortKey = "name-desc"
	SortPopular   SortKey = "popular"
)

// SortKeys lists every ordering in menu order.
var SortKeys = []SortKey{SortFeatured, SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc, SortPopular}

// ParseSortKey resolves a sort key, accepting the legacy price-low and
// price-high aliases. An empty string means featured.
func ParseSortKey(s string) (SortKey, error) {
	switch key := strings.ToLower(strings.TrimSpace(s)); key {
	case "":
		return SortFeatured, nil
	case "price-low":
		return SortPriceAsc, nil
	case "price-high":
		return SortPriceDesc, nil
	default:
		if slices.Contains(SortKeys, SortKey(key)) {
			return SortKey(key), nil
		}
		return "", apperr.Validationf("filter.sort", "unknown sort key %q", s)
	}
}

// PriceRange is an inclusive price window in the base currency.
type PriceRange struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// Contains reports whether price lies inside the range.
func (r PriceRange) Contains(price decimal.Decimal) bool {
	return price.GreaterThanOrEqual(r.Min) && price.LessThanOrEqual(r.Max)
}

// Criteria selects and orders products. Empty sets and a nil Price mean no
// restriction.
type Criteria struct {
	Categories []string
	Sizes      []string
	Colors     []string
	Price      *PriceRange
	Query      string
	Sort       SortKey
}

// IsZero reports whether the criteria restrict or reorder nothing.
func (c Criteria) IsZero() bool {
	return len(c.Categories) == 0 && len(c.Sizes) == 0 && len(c.Colors) == 0 &&
		c.Price == nil && strings.TrimSpace(c.Query) == "" &&
		(c.Sort == "" || c.Sort == SortFeatured || c.Sort == SortPopular)
}

// Validate checks the price range and sort key.
func (c Criteria) Validate() error {
	if c.Price != nil && c.Price.Min.GreaterThan(c.Price.Max) {
		return apperr.Validation("filter.price", "minimum price exceeds maximum")
	}
	if c.Sort != "" {
		if _, err := ParseSortKey(string(c.Sort)); err != nil {
			return err
		}
	}
	return nil
}

// Apply returns the products matching criteria, ordered by its sort key.
// The input is never modified and the result is always a subset of it.
func Apply(products []catalog.Product, c Criteria) ([]catalog.Product, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if matches(p, c) {
			out = append(out, p)
		}
	}
	if q := strings.TrimSpace(c.Query); q != "" {
		out = search(out, q)
	}

	key, _ := ParseSortKey(string(c.Sort))
	sortProducts(out, key)
	return out, nil
}

func matches(p catalog.Product, c Criteria) bool {
	if len(c.Categories) > 0 && !containsFold(c.Categories, p.Category) {
		return false
	}
	if len(c.Sizes) > 0 && !slices.ContainsFunc(c.Sizes, p.OffersSize) {
		return false
	}
	if len(c.Colors) > 0 && !slices.ContainsFunc(c.Colors, p.OffersColor) {
		return false
	}
	if c.Price != nil && !c.Price.Contains(p.Price) {
		return false
	}
	return true
}

type names []catalog.Product

func (n names) String(i int) string { return n[i].Name }
func (n names) Len() int            { return len(n) }

// search keeps the products whose name fuzzy-matches query, in their
// existing order.
func search(products []catalog.Product, query string) []catalog.Product {
	found := fuzzy.FindFrom(query, names(products))
	if len(found) == 0 {
		return products[:0]
	}
	keep := make([]bool, len(products))
	for _, m := range found {
		keep[m.Index] = true
	}
	out := products[:0]
	for i, p := range products {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}

func sortProducts(products []catalog.Product, key SortKey) {
	var less func(a, b catalog.Product) int
	switch key {
	case SortNewest:
		less = func(a, b catalog.Product) int { return cmp.Compare(b.ID, a.ID) }
	case SortPriceAsc:
		less = func(a, b catalog.Product) int { return a.Price.Cmp(b.Price) }
	case SortPriceDesc:
		less = func(a, b catalog.Product) int { return b.Price.Cmp(a.Price) }
	case SortNameAsc:
		less = func(a, b catalog.Product) int { return compareNames(a.Name, b.Name) }
	case SortNameDesc:
		less = func(a, b catalog.Product) int { return compareNames(b.Name, a.Name) }
	default:
		// featured and popular keep catalog order
		return
	}
	slices.SortStableFunc(products, less)
}

func compareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return true
		}
	}
	return false
}
