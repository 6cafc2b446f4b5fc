package filter

import (
	"github.com/shopspring/decimal"

	"github.com/kingrea/storefront/internal/catalog"
)

// Facets summarizes the filter options a collection offers. Values keep
// first-seen order.
type Facets struct {
	Categories []string
	Sizes      []string
	Colors     []string
	Price      PriceRange
}

// CollectFacets gathers the categories, sizes, colors and price bounds
// present in products.
func CollectFacets(products []catalog.Product) Facets {
	var f Facets
	seen := map[string]struct{}{}
	add := func(dst *[]string, axis, v string) {
		k := axis + "\x00" + v
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		*dst = append(*dst, v)
	}
	for i, p := range products {
		add(&f.Categories, "category", p.Category)
		for _, s := range p.Sizes {
			add(&f.Sizes, "size", s)
		}
		for _, c := range p.Colors {
			add(&f.Colors, "color", c)
		}
		if i == 0 {
			f.Price = PriceRange{Min: p.Price, Max: p.Price}
			continue
		}
		f.Price.Min = decimal.Min(f.Price.Min, p.Price)
		f.Price.Max = decimal.Max(f.Price.Max, p.Price)
	}
	return f
}
