package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/storefront/internal/apperr"
)

const sampleCatalog = `[
  {"id": 1, "name": "Basic Tee", "price": 29.99, "category": "T-Shirts", "sizes": ["S","M","L"], "colors": ["Black","White"],
   "reviews": [{"id": "r1", "user": "Ann", "rating": 5, "comment": "great"}, {"id": "r2", "user": "Bo", "rating": 4, "comment": "ok"}, {"id": "r3", "user": "Cy", "rating": 4, "comment": "fine"}]},
  {"id": 2, "name": "Slim Jeans", "price": 49.99, "category": "Jeans", "sizes": ["30","32"], "colors": ["Blue"]},
  {"id": 3, "name": "Leather Belt", "price": 19.5, "category": "Accessories", "material": "Leather"},
  {"id": 4, "name": "V-Neck Tee", "price": 24, "category": "T-Shirts", "sizes": ["M"], "colors": ["Grey"]}
]`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestClassify(t *testing.T) {
	cases := map[string]Kind{
		"T-Shirts":    KindClothing,
		"jeans":       KindClothing,
		"Accessories": KindAccessory,
		"Gadgets":     KindGeneral,
		"":            KindGeneral,
	}
	for category, want := range cases {
		assert.Equal(t, want, Classify(category), category)
	}
}

func TestFileSourceDecodesCatalog(t *testing.T) {
	src := NewFileSource(writeCatalog(t, sampleCatalog))
	products, err := src.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 4)

	tee := products[0]
	assert.True(t, tee.Price.Equal(decimal.RequireFromString("29.99")))
	assert.Equal(t, KindClothing, tee.Kind())
	assert.True(t, tee.RequiresSize())
	assert.True(t, tee.OffersColor("white"))
	assert.Equal(t, []string{"S", "M", "L"}, tee.Attributes()["size"])

	belt, err := src.Product(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"material": {"Leather"}}, belt.Attributes())
	assert.False(t, belt.RequiresSize())

	_, err = src.Product(context.Background(), 99)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestFileSourceLoadFailures(t *testing.T) {
	cases := map[string]string{
		"malformed":   `[{"id": 1,`,
		"missing":     "",
		"bad rating":  `[{"id": 1, "name": "x", "price": 1, "category": "Jeans", "reviews": [{"id": "r", "user": "u", "rating": 9}]}]`,
		"no name":     `[{"id": 1, "price": 1, "category": "Jeans"}]`,
		"negative":    `[{"id": 1, "name": "x", "price": -1, "category": "Jeans"}]`,
		"duplicate":   `[{"id": 1, "name": "x", "price": 1, "category": "Jeans"}, {"id": 1, "name": "y", "price": 2, "category": "Jeans"}]`,
		"zero id":     `[{"id": 0, "name": "x", "price": 1, "category": "Jeans"}]`,
		"empty color": `[{"id": 1, "name": "x", "price": 1, "category": "Jeans", "colors": [""]}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "absent.json")
			if body != "" {
				path = writeCatalog(t, body)
			}
			_, err := Load(context.Background(), NewFileSource(path))
			require.Error(t, err)
			assert.True(t, apperr.IsLoad(err), "want load error, got %v", err)
		})
	}
}

func TestFileSourceLatencyHonoursContext(t *testing.T) {
	src := NewFileSource(writeCatalog(t, sampleCatalog), WithLatency(time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := src.Products(ctx)
	require.Error(t, err)
	assert.True(t, apperr.IsLoad(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAverageRating(t *testing.T) {
	products, err := Decode([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 4.3, AverageRating(products[0].Reviews))
	assert.Equal(t, 0.0, AverageRating(nil))
}

func TestRelated(t *testing.T) {
	products, err := Decode([]byte(sampleCatalog))
	require.NoError(t, err)

	related := Related(products, products[0], 4)
	require.Len(t, related, 1)
	assert.Equal(t, 4, related[0].ID)

	assert.Empty(t, Related(products, products[2], 4))

	many := []Product{}
	for id := 1; id <= 8; id++ {
		many = append(many, Product{ID: id, Category: "Jeans"})
	}
	assert.Len(t, Related(many, many[0], 4), 4)
}

type countingSource struct {
	calls   atomic.Int32
	release chan struct{}
	fail    atomic.Bool
	inner   StaticSource
}

func (s *countingSource) Products(ctx context.Context) ([]Product, error) {
	s.calls.Add(1)
	if s.release != nil {
		<-s.release
	}
	if s.fail.Load() {
		return nil, apperr.Load("catalog.fetch", errors.New("offline"))
	}
	return s.inner.Products(ctx)
}

func (s *countingSource) Product(ctx context.Context, id int) (Product, error) {
	s.calls.Add(1)
	if s.fail.Load() {
		return Product{}, apperr.Load("catalog.fetch", errors.New("offline"))
	}
	return s.inner.Product(ctx, id)
}

func TestCacheServesRepeatReadsFromMemory(t *testing.T) {
	products, err := Decode([]byte(sampleCatalog))
	require.NoError(t, err)
	src := &countingSource{inner: products}
	cache, err := NewCache(src, 16)
	require.NoError(t, err)

	for range 3 {
		got, err := cache.Products(context.Background())
		require.NoError(t, err)
		assert.Len(t, got, 4)
	}
	assert.Equal(t, int32(1), src.calls.Load())
	assert.True(t, cache.Cached("products"))

	p, err := cache.Product(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Slim Jeans", p.Name)
	assert.True(t, cache.Cached("product-2"))
	assert.Equal(t, 2, cache.Len())

	cache.Clear()
	assert.Zero(t, cache.Len())
	_, err = cache.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), src.calls.Load())
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	src := &countingSource{inner: StaticSource{{ID: 1, Name: "x", Category: "Jeans"}}}
	src.fail.Store(true)
	cache, err := NewCache(src, 4)
	require.NoError(t, err)

	_, err = cache.Products(context.Background())
	assert.True(t, apperr.IsLoad(err))
	assert.False(t, cache.Cached("products"))

	src.fail.Store(false)
	got, err := cache.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestCacheCoalescesConcurrentMisses(t *testing.T) {
	src := &countingSource{inner: StaticSource{{ID: 1, Name: "x", Category: "Jeans"}}, release: make(chan struct{})}
	cache, err := NewCache(src, 4)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Products(context.Background())
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestCacheReturnsIndependentSlices(t *testing.T) {
	cache, err := NewCache(StaticSource{{ID: 1, Name: "x", Category: "Jeans"}}, 4)
	require.NoError(t, err)
	first, err := cache.Products(context.Background())
	require.NoError(t, err)
	first[0].Name = "mutated"
	second, err := cache.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "x", second[0].Name)
}

func TestBundledSampleIsValid(t *testing.T) {
	data, err := SampleData()
	require.NoError(t, err)
	products, err := Decode(data)
	require.NoError(t, err)
	assert.Len(t, products, 12)

	path := filepath.Join(t.TempDir(), "data", "products.json")
	wrote, err := EnsureSample(path)
	require.NoError(t, err)
	assert.True(t, wrote)
	wrote, err = EnsureSample(path)
	require.NoError(t, err)
	assert.False(t, wrote)
}
