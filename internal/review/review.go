// Package review stores customer reviews submitted from this device.
// Only signed-in users who bought a product may review it.
package review

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/history"
	"github.com/kingrea/storefront/internal/kv"
	"github.com/kingrea/storefront/internal/notice"
	"github.com/kingrea/storefront/internal/session"
)

var (
	// ErrLoginRequired is returned when nobody is signed in.
	ErrLoginRequired = session.ErrLoginRequired
	// ErrNotPurchased is returned when the user never bought the product.
	ErrNotPurchased = errors.New("review: only customers who purchased this product can review it")
)

type entry struct {
	ProductID int            `json:"product_id"`
	Review    catalog.Review `json:"review"`
}

// Book holds submitted reviews keyed by product.
type Book struct {
	mu      sync.Mutex
	entries []entry
	session *session.Session
	history *history.Store
	binding *kv.Binding
	now     func() time.Time
}

// Option customizes a Book during construction.
type Option func(*Book)

// WithClock overrides the review date source.
func WithClock(clock func() time.Time) Option {
	return func(b *Book) {
		if clock != nil {
			b.now = clock
		}
	}
}

// New loads submitted reviews from store.
func New(sess *session.Session, h *history.Store, store kv.Store, reporter notice.Reporter, opts ...Option) *Book {
	b := &Book{
		session: sess,
		history: h,
		binding: kv.Bind(store, kv.KeyReviews, reporter),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	var saved []entry
	if b.binding.Load(&saved) {
		b.entries = saved
	}
	return b
}

// CanReview reports why the current user may not review productID, or nil.
func (b *Book) CanReview(productID int) error {
	_, err := b.eligible(productID)
	return err
}

func (b *Book) eligible(productID int) (session.User, error) {
	user, err := b.session.Require()
	if err != nil {
		return session.User{}, err
	}
	if !b.history.HasPurchased(user.ID, productID) {
		return session.User{}, ErrNotPurchased
	}
	return user, nil
}

// Submit adds a review for productID by the current user.
func (b *Book) Submit(productID, rating int, comment string) (catalog.Review, error) {
	user, err := b.eligible(productID)
	if err != nil {
		return catalog.Review{}, err
	}
	if rating < 1 || rating > 5 {
		return catalog.Review{}, apperr.Validation("review.submit", "rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return catalog.Review{}, apperr.Validation("review.submit", "comment is required")
	}
	r := catalog.Review{
		ID:      uuid.NewString(),
		UserID:  user.ID,
		User:    user.Name,
		Rating:  rating,
		Comment: comment,
		Date:    b.now().UTC(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry{ProductID: productID, Review: r})
	b.binding.Save(b.entries)
	return r, nil
}

// For returns the reviews submitted for productID, oldest first.
func (b *Book) For(productID int) []catalog.Review {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []catalog.Review
	for _, e := range b.entries {
		if e.ProductID == productID {
			out = append(out, e.Review)
		}
	}
	return out
}

// Merged returns the product's catalog reviews followed by local ones.
func (b *Book) Merged(p catalog.Product) []catalog.Review {
	return append(slices.Clone(p.Reviews), b.For(p.ID)...)
}
