package filter

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/catalog"
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func fixture() []catalog.Product {
	return []catalog.Product{
		{ID: 1, Name: "Basic Tee", Price: price("29.99"), Category: "T-Shirts", Sizes: []string{"S", "M"}, Colors: []string{"Black"}},
		{ID: 2, Name: "Slim Jeans", Price: price("49.99"), Category: "Jeans", Sizes: []string{"30", "32"}, Colors: []string{"Blue"}},
		{ID: 3, Name: "Leather Belt", Price: price("19.50"), Category: "Accessories", Material: "Leather"},
		{ID: 4, Name: "V-Neck Tee", Price: price("29.99"), Category: "T-Shirts", Sizes: []string{"M", "L"}, Colors: []string{"White", "Black"}},
		{ID: 5, Name: "Wool Sweater", Price: price("79.00"), Category: "Sweaters", Sizes: []string{"M"}, Colors: []string{"Grey"}},
	}
}

func ids(products []catalog.Product) []int {
	out := make([]int, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestEmptyCriteriaIsIdentity(t *testing.T) {
	got, err := Apply(fixture(), Criteria{})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(got))
	assert.True(t, Criteria{Sort: SortPopular}.IsZero())
}

func TestApplyFilters(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []int
	}{
		{"category", Criteria{Categories: []string{"t-shirts"}}, []int{1, 4}},
		{"categories", Criteria{Categories: []string{"Jeans", "Sweaters"}}, []int{2, 5}},
		{"size", Criteria{Sizes: []string{"M"}}, []int{1, 4, 5}},
		{"color", Criteria{Colors: []string{"black"}}, []int{1, 4}},
		{"size and color", Criteria{Sizes: []string{"L"}, Colors: []string{"Black"}}, []int{4}},
		{"price inclusive", Criteria{Price: &PriceRange{Min: price("19.50"), Max: price("29.99")}}, []int{1, 3, 4}},
		{"query", Criteria{Query: "jeans"}, []int{2}},
		{"no match", Criteria{Categories: []string{"Dresses"}}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(fixture(), tt.criteria)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApplySorts(t *testing.T) {
	tests := []struct {
		key  SortKey
		want []int
	}{
		{SortFeatured, []int{1, 2, 3, 4, 5}},
		{SortPopular, []int{1, 2, 3, 4, 5}},
		{SortNewest, []int{5, 4, 3, 2, 1}},
		{SortPriceAsc, []int{3, 1, 4, 2, 5}},
		{SortPriceDesc, []int{5, 2, 1, 4, 3}},
		{SortNameAsc, []int{1, 3, 2, 4, 5}},
		{SortNameDesc, []int{5, 4, 2, 3, 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got, err := Apply(fixture(), Criteria{Sort: tt.key})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestSortIsStableAndRepeatable(t *testing.T) {
	c := Criteria{Sort: SortPriceAsc}
	first, err := Apply(fixture(), c)
	require.NoError(t, err)
	second, err := Apply(first, c)
	require.NoError(t, err)
	// products 1 and 4 share a price and keep catalog order
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, []int{3, 1, 4, 2, 5}, ids(second))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	products := fixture()
	_, err := Apply(products, Criteria{Sort: SortNewest, Query: "tee"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, ids(products))
}

func TestApplyRejectsInvertedRange(t *testing.T) {
	_, err := Apply(fixture(), Criteria{Price: &PriceRange{Min: price("50"), Max: price("10")}})
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestParseSortKey(t *testing.T) {
	for in, want := range map[string]SortKey{
		"":           SortFeatured,
		"price-low":  SortPriceAsc,
		"price-high": SortPriceDesc,
		"Name-Desc":  SortNameDesc,
	} {
		got, err := ParseSortKey(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseSortKey("cheapest")
	assert.True(t, apperr.IsValidation(err))
}

func TestCollectFacets(t *testing.T) {
	f := CollectFacets(fixture())
	assert.Equal(t, []string{"T-Shirts", "Jeans", "Accessories", "Sweaters"}, f.Categories)
	assert.Equal(t, []string{"S", "M", "30", "32", "L"}, f.Sizes)
	assert.Equal(t, []string{"Black", "Blue", "White", "Grey"}, f.Colors)
	assert.True(t, f.Price.Min.Equal(price("19.50")))
	assert.True(t, f.Price.Max.Equal(price("79")))

	assert.Empty(t, CollectFacets(nil).Categories)
}
