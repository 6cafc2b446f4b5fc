package catalog

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"
)

const productsKey = "products"

// Cache is a read-through cache in front of a Source, keyed by resource id
// ("products" for the full list, "product-<id>" for single entries).
// Concurrent misses on one key share a single fetch. Failed fetches are not
// cached.
type Cache struct {
	src     Source
	entries *lru.Cache
	group   singleflight.Group
}

// NewCache wraps src with a cache holding up to size resources.
func NewCache(src Source, size int) (*Cache, error) {
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("catalog: cache: %w", err)
	}
	return &Cache{src: src, entries: entries}, nil
}

// Products returns the full catalog.
func (c *Cache) Products(ctx context.Context) ([]Product, error) {
	v, err := c.load(productsKey, func() (any, error) {
		return c.src.Products(ctx)
	})
	if err != nil {
		return nil, err
	}
	return append([]Product(nil), v.([]Product)...), nil
}

// Product returns one catalog entry.
func (c *Cache) Product(ctx context.Context, id int) (Product, error) {
	v, err := c.load(productKey(id), func() (any, error) {
		return c.src.Product(ctx, id)
	})
	if err != nil {
		return Product{}, err
	}
	return v.(Product), nil
}

// Cached reports whether key is currently held.
func (c *Cache) Cached(key string) bool {
	return c.entries.Contains(key)
}

// Len returns the number of cached resources.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// Clear drops every cached resource.
func (c *Cache) Clear() {
	c.entries.Purge()
}

func (c *Cache) load(key string, fetch func() (any, error)) (any, error) {
	if v, ok := c.entries.Get(key); ok {
		return v, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		v, err := fetch()
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, v)
		return v, nil
	})
	return v, err
}

func productKey(id int) string {
	return fmt.Sprintf("product-%d", id)
}

var _ Source = (*Cache)(nil)
