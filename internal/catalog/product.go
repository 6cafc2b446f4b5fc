// Package catalog holds the product model and everything that reads the
// static product resource: the file source, the read-through cache, and a
// few pure helpers over product collections.
package catalog

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the closed set of product kinds.
type Kind int

const (
	KindGeneral Kind = iota
	KindClothing
	KindAccessory
)

func (k Kind) String() string {
	switch k {
	case KindClothing:
		return "clothing"
	case KindAccessory:
		return "accessory"
	default:
		return "general"
	}
}

// Categories is the closed set of storefront categories, in menu order.
var Categories = []string{"T-Shirts", "Shirts", "Pants", "Jeans", "Dresses", "Sweaters", "Jackets", "Accessories"}

var clothingCategories = map[string]struct{}{
	"clothing": {},
	"t-shirts": {},
	"shirts":   {},
	"pants":    {},
	"jeans":    {},
	"dresses":  {},
	"sweaters": {},
	"jackets":  {},
}

// Classify maps a category to its product kind.
func Classify(category string) Kind {
	c := strings.ToLower(strings.TrimSpace(category))
	if _, ok := clothingCategories[c]; ok {
		return KindClothing
	}
	if c == "accessories" || c == "accessory" {
		return KindAccessory
	}
	return KindGeneral
}

// Review is a customer review attached to a product.
type Review struct {
	ID      string    `json:"id" validate:"required"`
	UserID  int       `json:"user_id,omitempty"`
	User    string    `json:"user" validate:"required"`
	Rating  int       `json:"rating" validate:"min=1,max=5"`
	Comment string    `json:"comment"`
	Date    time.Time `json:"date"`
}

// Product is a catalog entry. Prices are in the base currency. Products are
// immutable once loaded; other stores keep value copies.
type Product struct {
	ID          int             `json:"id" validate:"gt=0"`
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description,omitempty"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category" validate:"required"`
	Sizes       []string        `json:"sizes,omitempty" validate:"dive,required"`
	Colors      []string        `json:"colors,omitempty" validate:"dive,required"`
	Material    string          `json:"material,omitempty"`
	Reviews     []Review        `json:"reviews,omitempty" validate:"dive"`
}

// Kind classifies the product by its category.
func (p Product) Kind() Kind {
	return Classify(p.Category)
}

// Attributes returns the kind-specific attribute bag: size/color axes for
// clothing, material for accessories, nothing for general goods.
func (p Product) Attributes() map[string][]string {
	switch p.Kind() {
	case KindClothing:
		attrs := map[string][]string{}
		if len(p.Sizes) > 0 {
			attrs["size"] = append([]string(nil), p.Sizes...)
		}
		if len(p.Colors) > 0 {
			attrs["color"] = append([]string(nil), p.Colors...)
		}
		return attrs
	case KindAccessory:
		if p.Material == "" {
			return map[string][]string{}
		}
		return map[string][]string{"material": {p.Material}}
	default:
		return nil
	}
}

// RequiresSize reports whether a size must be chosen before adding to cart.
func (p Product) RequiresSize() bool { return len(p.Sizes) > 0 }

// RequiresColor reports whether a color must be chosen before adding to cart.
func (p Product) RequiresColor() bool { return len(p.Colors) > 0 }

// OffersSize reports whether size is one of the product's sizes.
func (p Product) OffersSize(size string) bool { return containsFold(p.Sizes, size) }

// OffersColor reports whether color is one of the product's colors.
func (p Product) OffersColor(color string) bool { return containsFold(p.Colors, color) }

// AverageRating returns the mean rating rounded to one decimal place, or 0
// when there are no reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return math.Round(float64(sum)/float64(len(reviews))*10) / 10
}

// Find returns the product with id.
func Find(products []Product, id int) (Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Related returns up to limit products sharing p's category, excluding p,
// in catalog order.
func Related(products []Product, p Product, limit int) []Product {
	var out []Product
	for _, candidate := range products {
		if len(out) >= limit {
			break
		}
		if candidate.ID == p.ID || candidate.Category != p.Category {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func containsFold(values []string, target string) bool {
	target = strings.TrimSpace(target)
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}
