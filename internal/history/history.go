// Package history is the append-only purchase log.
package history

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/kv"
	"github.com/kingrea/storefront/internal/notice"
)

// StatusCompleted is the only status a purchase can have.
const StatusCompleted = "completed"

// Item is a purchased line, priced at the moment of purchase.
type Item struct {
	ProductID int             `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	Color     string          `json:"color,omitempty"`
}

// Totals are the money figures of a purchase in the base currency.
type Totals struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
	PromoCode string
}

// Record is one completed purchase. Records are never modified after they
// are written.
type Record struct {
	ID        string          `json:"id"`
	UserID    int             `json:"user_id"`
	Items     []Item          `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Discount  decimal.Decimal `json:"discount"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	PromoCode string          `json:"promo_code,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	Status    string          `json:"status"`
}

// ItemCount is the number of units purchased.
func (r Record) ItemCount() int {
	n := 0
	for _, it := range r.Items {
		n += it.Quantity
	}
	return n
}

func (r Record) clone() Record {
	r.Items = slices.Clone(r.Items)
	return r
}

// Store holds every purchase made on this device.
type Store struct {
	mu      sync.Mutex
	records []Record
	binding *kv.Binding
	now     func() time.Time
	newID   func() string
}

// Option customizes a Store during construction.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithIDGenerator overrides the record id source.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New loads the purchase log from store. A nil store keeps it in memory.
func New(store kv.Store, reporter notice.Reporter, opts ...Option) *Store {
	s := &Store{
		binding: kv.Bind(store, kv.KeyPurchaseHistory, reporter),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	var saved []Record
	if s.binding.Load(&saved) {
		s.records = saved
	}
	return s
}

// Record appends a completed purchase for userID.
func (s *Store) Record(userID int, items []Item, totals Totals) (Record, error) {
	if userID <= 0 {
		return Record{}, apperr.Validation("history.record", "a signed-in user is required")
	}
	if len(items) == 0 {
		return Record{}, apperr.Validation("history.record", "a purchase needs at least one item")
	}
	for _, it := range items {
		if it.Quantity < 1 {
			return Record{}, apperr.Validationf("history.record", "item %d has quantity %d", it.ProductID, it.Quantity)
		}
	}
	rec := Record{
		ID:        s.newID(),
		UserID:    userID,
		Items:     slices.Clone(items),
		Subtotal:  totals.Subtotal,
		Discount:  totals.Discount,
		Shipping:  totals.Shipping,
		Total:     totals.Total,
		PromoCode: totals.PromoCode,
		CreatedAt: s.now().UTC(),
		Status:    StatusCompleted,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	s.binding.Save(s.records)
	return rec.clone(), nil
}

// ForUser returns userID's purchases in the order they were made.
func (s *Store) ForUser(userID int) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Record{}
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, r.clone())
		}
	}
	return out
}

// HasPurchased reports whether userID ever bought productID.
func (s *Store) HasPurchased(userID, productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.UserID != userID {
			continue
		}
		for _, it := range r.Items {
			if it.ProductID == productID {
				return true
			}
		}
	}
	return false
}

// All returns every purchase in insertion order.
func (s *Store) All() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	for i, r := range s.records {
		out[i] = r.clone()
	}
	return out
}

// Len returns the number of purchases.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
