// Package checkout turns the cart into a completed purchase.
//
// Payment is simulated: the Gateway waits for a configured delay and
// approves. Only one checkout may be in flight per session; a second
// attempt while the first is pending fails fast with ErrInProgress.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/semaphore"

	"github.com/kingrea/storefront/internal/cart"
	"github.com/kingrea/storefront/internal/history"
	"github.com/kingrea/storefront/internal/logging"
	"github.com/kingrea/storefront/internal/session"
)

var (
	// ErrInProgress is returned when a checkout is already pending.
	ErrInProgress = errors.New("checkout: already in progress")
	// ErrEmptyCart is returned when there is nothing to buy.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrLoginRequired is returned when nobody is signed in.
	ErrLoginRequired = session.ErrLoginRequired
)

// DefaultShipping is the flat shipping fee in the base currency.
var DefaultShipping = decimal.RequireFromString("5.99")

// Service runs checkouts against one cart, session and purchase log.
type Service struct {
	cart     *cart.Store
	history  *history.Store
	session  *session.Session
	gateway  Gateway
	shipping decimal.Decimal
	logger   *logging.Logger

	guard   *semaphore.Weighted
	pending atomic.Bool
}

// Option customizes a Service during construction.
type Option func(*Service)

// WithGateway replaces the default instant gateway.
func WithGateway(g Gateway) Option {
	return func(s *Service) {
		if g != nil {
			s.gateway = g
		}
	}
}

// WithShipping sets the flat shipping fee.
func WithShipping(fee decimal.Decimal) Option {
	return func(s *Service) {
		if !fee.IsNegative() {
			s.shipping = fee
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// New builds a checkout service.
func New(c *cart.Store, h *history.Store, sess *session.Session, opts ...Option) *Service {
	s := &Service{
		cart:     c,
		history:  h,
		session:  sess,
		gateway:  &SimulatedGateway{},
		shipping: DefaultShipping,
		guard:    semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending reports whether a checkout is currently in flight.
func (s *Service) Pending() bool {
	return s.pending.Load()
}

// Shipping returns the flat shipping fee.
func (s *Service) Shipping() decimal.Decimal {
	return s.shipping
}

// Quote returns the totals the current cart would be charged.
func (s *Service) Quote() history.Totals {
	return s.quote(s.cart.Snapshot())
}

func (s *Service) quote(snap cart.Snapshot) history.Totals {
	shipping := s.shipping
	if snap.IsEmpty() {
		shipping = decimal.Zero
	}
	return history.Totals{
		Subtotal:  snap.Subtotal,
		Discount:  snap.Discount,
		Shipping:  shipping,
		Total:     snap.Total.Add(shipping),
		PromoCode: snap.PromoCode,
	}
}

// Checkout charges the cart and records the purchase. On any failure the
// cart is left exactly as it was and nothing is recorded. On success only
// the charged lines leave the cart.
func (s *Service) Checkout(ctx context.Context, d Details) (history.Record, error) {
	if !s.guard.TryAcquire(1) {
		return history.Record{}, ErrInProgress
	}
	s.pending.Store(true)
	defer func() {
		s.pending.Store(false)
		s.guard.Release(1)
	}()

	user, err := s.session.Require()
	if err != nil {
		return history.Record{}, err
	}
	snap := s.cart.Snapshot()
	if snap.IsEmpty() {
		return history.Record{}, ErrEmptyCart
	}
	d = d.normalized()
	if err := d.Validate(); err != nil {
		return history.Record{}, err
	}

	totals := s.quote(snap)
	charge := Charge{
		UserID:   user.ID,
		Amount:   totals.Total,
		CardLast: d.Payment.last4(),
	}
	s.logger.Info("checkout started", "user", user.ID, "total", totals.Total.StringFixed(2), "items", snap.ItemCount)
	if err := s.gateway.Charge(ctx, charge); err != nil {
		s.logger.Warn("checkout failed", "user", user.ID, "error", err)
		return history.Record{}, fmt.Errorf("checkout: payment: %w", err)
	}

	rec, err := s.history.Record(user.ID, itemsFrom(snap.Lines), totals)
	if err != nil {
		s.logger.Error("checkout record failed", "user", user.ID, "error", err)
		return history.Record{}, err
	}
	s.cart.Settle(snap.Lines)
	s.logger.Info("checkout completed", "user", user.ID, "record", rec.ID, "total", rec.Total.StringFixed(2))
	return rec, nil
}

func itemsFrom(lines []cart.Line) []history.Item {
	items := make([]history.Item, 0, len(lines))
	for _, l := range lines {
		items = append(items, history.Item{
			ProductID: l.Product.ID,
			Name:      l.Product.Name,
			Price:     l.Product.Price,
			Quantity:  l.Quantity,
			Size:      l.Size,
			Color:     l.Color,
		})
	}
	return items
}
