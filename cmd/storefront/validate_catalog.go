package main

import (
	"fmt"
	"os"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/filter"
)

func handleValidateCatalogCommand() bool {
	if len(os.Args) < 2 || os.Args[1] != "validate-catalog" {
		return false
	}
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: storefront validate-catalog /path/to/products.json")
		os.Exit(2)
	}
	data, err := os.ReadFile(os.Args[2])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	products, err := catalog.Decode(data)
	if err != nil {
		fmt.Printf("Invalid: %s\n- %v\n", os.Args[2], err)
		os.Exit(1)
	}
	facets := filter.CollectFacets(products)
	fmt.Printf("OK: %s (%d products, %d categories, price %s-%s)\n",
		os.Args[2], len(products), len(facets.Categories),
		facets.Price.Min.StringFixed(2), facets.Price.Max.StringFixed(2))
	os.Exit(0)
	return true
}
