// Package cart is the shopping cart state container.
//
// Lines are keyed by product id plus the chosen size and color, so the same
// shirt in two sizes occupies two lines. Every mutation is persisted through
// an optional kv binding and returns a fresh Snapshot for rendering.
package cart

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/kv"
	"github.com/kingrea/storefront/internal/notice"
	"github.com/kingrea/storefront/internal/promo"
)

// LineKey identifies a cart line.
type LineKey struct {
	ProductID int    `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

func (k LineKey) String() string {
	parts := []string{fmt.Sprintf("#%d", k.ProductID)}
	if k.Size != "" {
		parts = append(parts, k.Size)
	}
	if k.Color != "" {
		parts = append(parts, k.Color)
	}
	return strings.Join(parts, "/")
}

// Line is one product variant in the cart. Product is a value copy taken
// when the line was first added.
type Line struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Size     string          `json:"size,omitempty"`
	Color    string          `json:"color,omitempty"`
}

// Key returns the line's identity.
func (l Line) Key() LineKey {
	return LineKey{ProductID: l.Product.ID, Size: l.Size, Color: l.Color}
}

// Total is price times quantity.
func (l Line) Total() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot is a read-only view of the cart with its derived totals.
type Snapshot struct {
	Lines        []Line
	ItemCount    int
	Subtotal     decimal.Decimal
	PromoCode    string
	PromoPercent int
	Discount     decimal.Decimal
	Total        decimal.Decimal
}

// IsEmpty reports whether the snapshot has no lines.
func (s Snapshot) IsEmpty() bool {
	return len(s.Lines) == 0
}

type persisted struct {
	Lines     []Line `json:"lines"`
	PromoCode string `json:"promo_code,omitempty"`
}

// Store holds the single cart of the session.
type Store struct {
	mu        sync.Mutex
	lines     []Line
	promoCode string
	percent   int
	engine    *promo.Engine
	binding   *kv.Binding
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithPersistence loads the cart from store and saves it after every
// mutation.
func WithPersistence(store kv.Store, reporter notice.Reporter) Option {
	return func(s *Store) {
		s.binding = kv.Bind(store, kv.KeyCart, reporter)
	}
}

// New builds an empty cart resolving promo codes through engine, or the
// default code table when engine is nil.
func New(engine *promo.Engine, opts ...Option) *Store {
	if engine == nil {
		engine = promo.Default()
	}
	s := &Store{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	s.restore()
	return s
}

func (s *Store) restore() {
	var saved persisted
	if !s.binding.Load(&saved) {
		return
	}
	for _, line := range saved.Lines {
		if line.Quantity < 1 || line.Product.ID <= 0 {
			continue
		}
		s.lines = append(s.lines, line)
	}
	if saved.PromoCode != "" {
		if pct, err := s.engine.Apply(saved.PromoCode); err == nil {
			s.promoCode = strings.ToUpper(strings.TrimSpace(saved.PromoCode))
			s.percent = pct
		}
	}
}

// Add puts quantity units of a product variant into the cart, merging with
// an existing line of the same key.
func (s *Store) Add(product catalog.Product, quantity int, size, color string) (Snapshot, error) {
	if quantity < 1 {
		return s.Snapshot(), apperr.Validation("cart.add", "quantity must be at least 1")
	}
	size, err := pickVariant(product.Sizes, size, "size")
	if err != nil {
		return s.Snapshot(), err
	}
	color, err = pickVariant(product.Colors, color, "color")
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := LineKey{ProductID: product.ID, Size: size, Color: color}
	if i := s.indexOf(key); i >= 0 {
		s.lines[i].Quantity += quantity
	} else {
		s.lines = append(s.lines, Line{Product: product, Quantity: quantity, Size: size, Color: color})
	}
	return s.commit(), nil
}

// pickVariant resolves a requested size or color against what the product
// offers, returning the product's own spelling.
func pickVariant(offered []string, requested, axis string) (string, error) {
	requested = strings.TrimSpace(requested)
	if len(offered) == 0 {
		if requested != "" {
			return "", apperr.Validationf("cart.add", "product has no %s options", axis)
		}
		return "", nil
	}
	if requested == "" {
		return "", apperr.Validationf("cart.add", "please select a %s", axis)
	}
	for _, v := range offered {
		if strings.EqualFold(v, requested) {
			return v, nil
		}
	}
	return "", apperr.Validationf("cart.add", "%s %q is not available", axis, requested)
}

// UpdateQuantity sets a line's quantity. Anything below 1 removes the line;
// an unknown key changes nothing.
func (s *Store) UpdateQuantity(key LineKey, quantity int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(key)
	if i < 0 {
		return s.snapshot()
	}
	if quantity < 1 {
		s.lines = slices.Delete(s.lines, i, i+1)
	} else {
		s.lines[i].Quantity = quantity
	}
	return s.commit()
}

// Remove deletes a line. Removing an absent key is a no-op.
func (s *Store) Remove(key LineKey) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(key)
	if i < 0 {
		return s.snapshot()
	}
	s.lines = slices.Delete(s.lines, i, i+1)
	return s.commit()
}

// Clear empties the cart and drops any applied promo code.
func (s *Store) Clear() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
	s.promoCode = ""
	s.percent = 0
	return s.commit()
}

// Settle removes purchased quantities after a checkout and drops the promo
// that was spent on them. Lines added since the purchase snapshot survive,
// as does any quantity above what was bought.
func (s *Store) Settle(purchased []Line) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range purchased {
		i := s.indexOf(p.Key())
		if i < 0 {
			continue
		}
		if s.lines[i].Quantity <= p.Quantity {
			s.lines = slices.Delete(s.lines, i, i+1)
		} else {
			s.lines[i].Quantity -= p.Quantity
		}
	}
	s.promoCode = ""
	s.percent = 0
	return s.commit()
}

// ApplyPromo resolves code and, when valid, replaces any previous promo.
// An invalid code leaves the cart untouched.
func (s *Store) ApplyPromo(code string) (int, error) {
	pct, err := s.engine.Apply(code)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promoCode = strings.ToUpper(strings.TrimSpace(code))
	s.percent = pct
	s.commit()
	return pct, nil
}

// ClearPromo removes the applied promo code.
func (s *Store) ClearPromo() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.promoCode = ""
	s.percent = 0
	return s.commit()
}

// Snapshot returns the current cart view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Lines returns a copy of the cart lines in insertion order.
func (s *Store) Lines() []Line {
	return s.Snapshot().Lines
}

// Subtotal is the sum of price times quantity over every line.
func (s *Store) Subtotal() decimal.Decimal {
	return s.Snapshot().Subtotal
}

// ItemCount is the total number of units in the cart.
func (s *Store) ItemCount() int {
	return s.Snapshot().ItemCount
}

// IsEmpty reports whether the cart has no lines.
func (s *Store) IsEmpty() bool {
	return s.Snapshot().IsEmpty()
}

// Discount is the promo discount on the current subtotal.
func (s *Store) Discount() decimal.Decimal {
	return s.Snapshot().Discount
}

// Total is subtotal minus discount.
func (s *Store) Total() decimal.Decimal {
	return s.Snapshot().Total
}

// PromoCode returns the applied code and its percentage.
func (s *Store) PromoCode() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.promoCode, s.percent
}

func (s *Store) indexOf(key LineKey) int {
	return slices.IndexFunc(s.lines, func(l Line) bool { return l.Key() == key })
}

func (s *Store) snapshot() Snapshot {
	snap := Snapshot{
		Lines:        slices.Clone(s.lines),
		Subtotal:     decimal.Zero,
		PromoCode:    s.promoCode,
		PromoPercent: s.percent,
	}
	for _, line := range s.lines {
		snap.ItemCount += line.Quantity
		snap.Subtotal = snap.Subtotal.Add(line.Total())
	}
	snap.Discount = promo.Discount(snap.Subtotal, s.percent)
	snap.Total = snap.Subtotal.Sub(snap.Discount)
	return snap
}

// commit persists the current state and returns its snapshot. Callers hold
// the lock.
func (s *Store) commit() Snapshot {
	s.binding.Save(persisted{Lines: s.lines, PromoCode: s.promoCode})
	return s.snapshot()
}
