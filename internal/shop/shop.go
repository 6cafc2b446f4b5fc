// Package shop assembles the storefront from its parts: configuration,
// logging, the notice board, the side-store, the catalog cache and every
// state container. The TUI and the acceptance tests both drive the store
// through a *Shop.
package shop

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kingrea/storefront/internal/cart"
	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/checkout"
	"github.com/kingrea/storefront/internal/config"
	"github.com/kingrea/storefront/internal/currency"
	"github.com/kingrea/storefront/internal/filter"
	"github.com/kingrea/storefront/internal/history"
	"github.com/kingrea/storefront/internal/kv"
	"github.com/kingrea/storefront/internal/logging"
	"github.com/kingrea/storefront/internal/notice"
	"github.com/kingrea/storefront/internal/promo"
	"github.com/kingrea/storefront/internal/review"
	"github.com/kingrea/storefront/internal/session"
	"github.com/kingrea/storefront/internal/wishlist"
)

// RelatedLimit is how many related products a detail view shows.
const RelatedLimit = 4

// DemoProfile is the account Login signs in as when none is configured.
var DemoProfile = session.User{ID: 1, Name: "Demo Shopper", Email: "demo@example.com"}

// Options wires a Shop. Zero values fall back to in-memory defaults.
type Options struct {
	Config     *config.Config
	Source     catalog.Source
	Store      kv.Store
	Logger     *logging.Logger
	Notices    *notice.Board
	Gateway    checkout.Gateway
	Rates      map[string]float64
	PromoCodes map[string]int
	Shipping   *decimal.Decimal
	CacheSize  int
	Currency   string
	Profile    session.User
}

// Shop is the assembled storefront.
type Shop struct {
	cfg     *config.Config
	logger  *logging.Logger
	notices *notice.Board
	profile session.User

	Catalog   *catalog.Cache
	Converter *currency.Converter
	Promo     *promo.Engine
	Cart      *cart.Store
	Wishlist  *wishlist.Store
	History   *history.Store
	Session   *session.Session
	Reviews   *review.Book
	Checkout  *checkout.Service

	mu      sync.Mutex
	display currency.Code
}

// newShop is swapped in tests to exercise Open's failure cleanup.
var newShop = New

// Open prepares projectDir/.storefront and assembles a Shop from its
// configuration, seeding the bundled sample catalog when none exists yet.
func Open(projectDir string) (*Shop, error) {
	if err := config.InitStorefrontDir(projectDir); err != nil {
		return nil, fmt.Errorf("shop: init %s: %w", config.StorefrontDir, err)
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(projectDir)
	if err != nil {
		return nil, err
	}
	board, err := notice.New(filepath.Join(cfg.LogsDir(), "notices.log"))
	if err != nil {
		logger.Close()
		return nil, fmt.Errorf("shop: notices: %w", err)
	}

	if inside(cfg.StorefrontProjectDir, cfg.CatalogPath()) {
		if wrote, err := catalog.EnsureSample(cfg.CatalogPath()); err != nil {
			board.Warn("catalog", "could not write sample catalog: %v", err)
		} else if wrote {
			logger.Info("wrote sample catalog", "path", cfg.CatalogPath())
		}
	}

	shipping := decimal.NewFromFloat(cfg.Shipping())
	s, err := newShop(Options{
		Config:     cfg,
		Source:     catalog.NewFileSource(cfg.CatalogPath(), catalog.WithLatency(cfg.CatalogLatency())),
		Store:      kv.NewFileStore(cfg.StateDir()),
		Logger:     logger,
		Notices:    board,
		Gateway:    &checkout.SimulatedGateway{Delay: cfg.CheckoutDelay()},
		Rates:      cfg.Rates(),
		PromoCodes: cfg.PromoCodes(),
		Shipping:   &shipping,
		CacheSize:  cfg.CacheSize(),
		Currency:   cfg.DefaultCurrency(),
		Profile: session.User{
			ID:    cfg.Project.Profile.ID,
			Name:  cfg.Project.Profile.Name,
			Email: cfg.Project.Profile.Email,
		},
	})
	if err != nil {
		logger.Close()
		return nil, err
	}
	return s, nil
}

// New assembles a Shop from explicit parts.
func New(opts Options) (*Shop, error) {
	if opts.Source == nil {
		return nil, errors.New("shop: catalog source is required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Notices == nil {
		opts.Notices = notice.NewMemory()
	}
	if opts.Rates == nil {
		opts.Rates = currency.DefaultRates()
	}
	if opts.PromoCodes == nil {
		opts.PromoCodes = promo.DefaultCodes()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 128
	}
	if opts.Profile == (session.User{}) {
		opts.Profile = DemoProfile
	}

	converter, err := currency.NewConverter(opts.Rates)
	if err != nil {
		return nil, fmt.Errorf("shop: %w", err)
	}
	engine, err := promo.NewEngine(opts.PromoCodes)
	if err != nil {
		return nil, fmt.Errorf("shop: %w", err)
	}
	cache, err := catalog.NewCache(opts.Source, opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("shop: %w", err)
	}

	s := &Shop{
		cfg:       opts.Config,
		logger:    opts.Logger,
		notices:   opts.Notices,
		profile:   opts.Profile,
		Catalog:   cache,
		Converter: converter,
		Promo:     engine,
		display:   currency.Base,
	}
	s.Cart = cart.New(engine, cart.WithPersistence(opts.Store, opts.Notices))
	s.Wishlist = wishlist.New(opts.Store, opts.Notices)
	s.History = history.New(opts.Store, opts.Notices)
	s.Session = session.New(opts.Store, opts.Notices)
	s.Reviews = review.New(s.Session, s.History, opts.Store, opts.Notices)

	checkoutOpts := []checkout.Option{checkout.WithLogger(opts.Logger), checkout.WithGateway(opts.Gateway)}
	if opts.Shipping != nil {
		checkoutOpts = append(checkoutOpts, checkout.WithShipping(*opts.Shipping))
	}
	s.Checkout = checkout.New(s.Cart, s.History, s.Session, checkoutOpts...)

	if opts.Currency != "" {
		s.display = currency.Code(strings.ToUpper(opts.Currency))
	}
	s.logger.Info("storefront ready", "currency", s.display, "promo_codes", len(engine.Codes()))
	return s, nil
}

// Close releases the log file.
func (s *Shop) Close() error {
	return s.logger.Close()
}

// Logger returns the shop's logger.
func (s *Shop) Logger() *logging.Logger {
	return s.logger
}

// Notices returns the notice board.
func (s *Shop) Notices() *notice.Board {
	return s.notices
}

// Products loads the catalog through the cache. A failed load is posted to
// the notice board and returned so the caller can show an empty catalog.
func (s *Shop) Products(ctx context.Context) ([]catalog.Product, error) {
	products, err := catalog.Load(ctx, s.Catalog)
	if err != nil {
		s.notices.Report("catalog", err)
		s.logger.Error("catalog load failed", "error", err)
		return nil, err
	}
	return products, nil
}

// Browse loads the catalog and applies criteria.
func (s *Shop) Browse(ctx context.Context, c filter.Criteria) ([]catalog.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Apply(products, c)
}

// Product returns a single product.
func (s *Shop) Product(ctx context.Context, id int) (catalog.Product, error) {
	return s.Catalog.Product(ctx, id)
}

// Related returns products sharing p's category.
func (s *Shop) Related(ctx context.Context, p catalog.Product) []catalog.Product {
	products, err := s.Products(ctx)
	if err != nil {
		return nil
	}
	return catalog.Related(products, p, RelatedLimit)
}

// Reload drops every cached catalog resource.
func (s *Shop) Reload() {
	s.Catalog.Clear()
	s.logger.Info("catalog cache cleared")
}

// DisplayCurrency returns the currency prices are shown in.
func (s *Shop) DisplayCurrency() currency.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// SetCurrency changes the display currency and persists the choice.
func (s *Shop) SetCurrency(code currency.Code) error {
	if !slices.Contains(s.Converter.Codes(), code) {
		return fmt.Errorf("shop: no rate configured for %s", code)
	}
	s.mu.Lock()
	s.display = code
	s.mu.Unlock()
	if s.cfg != nil {
		if err := s.cfg.SetCurrency(string(code)); err != nil {
			s.notices.Report("config", err)
			return err
		}
	}
	return nil
}

// CycleCurrency advances to the next configured currency.
func (s *Shop) CycleCurrency() currency.Code {
	next := s.Converter.Next(s.DisplayCurrency())
	_ = s.SetCurrency(next)
	return next
}

// Price formats a base-currency amount in the display currency. A
// misconfigured currency falls back to the base and is reported.
func (s *Shop) Price(amount decimal.Decimal) string {
	text, err := s.Converter.FormatPrice(amount, s.DisplayCurrency())
	if err != nil {
		var cfgErr *currency.ConfigError
		if errors.As(err, &cfgErr) {
			s.logger.Warn("currency fallback", "code", cfgErr.Code)
			return text
		}
		return "-"
	}
	return text
}

// Login signs in as the configured profile.
func (s *Shop) Login() error {
	if err := s.Session.Login(s.profile); err != nil {
		return err
	}
	s.logger.Info("signed in", "user", s.profile.ID)
	return nil
}

// Logout ends the session.
func (s *Shop) Logout() {
	s.Session.Logout()
	s.logger.Info("signed out")
}

// MyPurchases returns the signed-in user's history.
func (s *Shop) MyPurchases() ([]history.Record, error) {
	user, err := s.Session.Require()
	if err != nil {
		return nil, err
	}
	return s.History.ForUser(user.ID), nil
}

func inside(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
