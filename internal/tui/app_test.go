package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/checkout"
	"github.com/kingrea/storefront/internal/currency"
	"github.com/kingrea/storefront/internal/history"
	"github.com/kingrea/storefront/internal/kv"
	"github.com/kingrea/storefront/internal/shop"
)

var testProducts = catalog.StaticSource{
	{ID: 1, Name: "Basic Tee", Price: decimal.RequireFromString("29.99"), Category: "T-Shirts", Sizes: []string{"M", "L"}, Colors: []string{"Black"}},
	{ID: 2, Name: "Slim Jeans", Price: decimal.RequireFromString("49.99"), Category: "Jeans", Sizes: []string{"32"}, Colors: []string{"Blue"}},
	{ID: 3, Name: "Leather Belt", Price: decimal.RequireFromString("19.50"), Category: "Accessories"},
}

type failingSource struct{}

func (failingSource) Products(context.Context) ([]catalog.Product, error) {
	return nil, apperr.Load("catalog.fetch", errors.New("offline"))
}

func (failingSource) Product(context.Context, int) (catalog.Product, error) {
	return catalog.Product{}, apperr.Load("catalog.fetch", errors.New("offline"))
}

// countingSource counts catalog fetches that reach the underlying source.
type countingSource struct {
	catalog.StaticSource
	fetches int
}

func (c *countingSource) Products(ctx context.Context) ([]catalog.Product, error) {
	c.fetches++
	return c.StaticSource.Products(ctx)
}

func (c *countingSource) Product(ctx context.Context, id int) (catalog.Product, error) {
	c.fetches++
	return c.StaticSource.Product(ctx, id)
}

func newTestApp(t *testing.T, src catalog.Source) *App {
	t.Helper()
	s, err := shop.New(shop.Options{
		Source:  src,
		Store:   kv.NewMemoryStore(),
		Gateway: &checkout.SimulatedGateway{},
	})
	if err != nil {
		t.Fatalf("new shop: %v", err)
	}
	app := NewApp(s)
	app.input.Cursor.SetMode(cursor.CursorStatic)
	app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return runCommands(t, app, app.Init())
}

// runCommands drives cmd to completion, fanning out batches. Spinner ticks
// are dropped so tests never wait on animation frames.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			nextModel, nextCmd := app.Update(msg)
			app, ok = nextModel.(*App)
			if !ok {
				t.Fatalf("unexpected model type: %T", nextModel)
			}
			queue = append(queue, nextCmd)
		}
	}
	return app
}

func press(t *testing.T, app *App, keys ...string) *App {
	t.Helper()
	for _, k := range keys {
		model, cmd := app.Update(keyMsg(k))
		app = runCommands(t, model, cmd)
	}
	return app
}

func typeText(t *testing.T, app *App, text string) *App {
	t.Helper()
	for _, r := range text {
		model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		app = model.(*App)
	}
	return app
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func TestInitLoadsCatalog(t *testing.T) {
	app := newTestApp(t, testProducts)
	if app.loading {
		t.Fatalf("expected loading to finish")
	}
	if len(app.visible) != 3 {
		t.Fatalf("expected 3 visible products, got %d", len(app.visible))
	}
	if got := len(app.facets.Categories); got != 3 {
		t.Fatalf("expected 3 category facets, got %d", got)
	}
	view := app.View()
	if !strings.Contains(view, "STOREFRONT") || !strings.Contains(view, "Basic Tee") {
		t.Fatalf("catalog view missing content:\n%s", view)
	}
}

func TestCatalogFailureIsShown(t *testing.T) {
	app := newTestApp(t, failingSource{})
	if app.err == nil {
		t.Fatalf("expected load error")
	}
	if !strings.Contains(app.statusMsg, "retry") {
		t.Fatalf("expected retry hint, got %q", app.statusMsg)
	}
	view := app.View()
	if !strings.Contains(view, "Could not load the catalog") {
		t.Fatalf("expected failure message in view")
	}
	if !strings.Contains(view, "NOTICES") || !strings.Contains(view, "offline") {
		t.Fatalf("expected the load failure on the notice panel:\n%s", view)
	}
}

func TestSearchCategoryAndSort(t *testing.T) {
	app := newTestApp(t, testProducts)

	app = press(t, app, "/")
	if app.inputMode != inputSearch {
		t.Fatalf("expected search input")
	}
	app = typeText(t, app, "jeans")
	app = press(t, app, "enter")
	if app.criteria.Query != "jeans" {
		t.Fatalf("expected query to be stored, got %q", app.criteria.Query)
	}
	if len(app.visible) != 1 || app.visible[0].ID != 2 {
		t.Fatalf("expected only jeans, got %v", app.visible)
	}

	app = press(t, app, "x", "c")
	if len(app.criteria.Categories) != 1 || app.criteria.Categories[0] != "T-Shirts" {
		t.Fatalf("expected first category, got %v", app.criteria.Categories)
	}
	if len(app.visible) != 1 || app.visible[0].ID != 1 {
		t.Fatalf("expected only tees, got %v", app.visible)
	}

	app = press(t, app, "x", "s", "s")
	if app.criteria.Sort != "price-asc" {
		t.Fatalf("expected price-asc, got %q", app.criteria.Sort)
	}
	if app.visible[0].ID != 3 || app.visible[2].ID != 2 {
		t.Fatalf("expected ascending prices, got %v", app.visible)
	}
}

func TestAddToCartFromDetail(t *testing.T) {
	app := newTestApp(t, testProducts)
	app = press(t, app, "enter")
	if app.state != stateDetail || app.selected.ID != 1 {
		t.Fatalf("expected detail of product 1, got state %d id %d", app.state, app.selected.ID)
	}
	app = press(t, app, "z", "a", "a")
	lines := app.shop.Cart.Lines()
	if len(lines) != 1 || lines[0].Quantity != 2 || lines[0].Size != "L" {
		t.Fatalf("unexpected cart lines: %+v", lines)
	}
	app = press(t, app, "w")
	if !app.shop.Wishlist.Contains(1) {
		t.Fatalf("expected product on wishlist")
	}
	app = press(t, app, "esc")
	if app.state != stateCatalog {
		t.Fatalf("esc should return to catalog")
	}
}

func TestDetailRenderDoesNotFetch(t *testing.T) {
	src := &countingSource{StaticSource: append(catalog.StaticSource{
		{ID: 4, Name: "Pocket Tee", Price: decimal.RequireFromString("24.00"), Category: "T-Shirts"},
	}, testProducts...)}
	app := newTestApp(t, src)
	app = press(t, app, "enter")
	if app.state != stateDetail || app.selected.ID != 4 {
		t.Fatalf("expected detail of product 4, got state %d id %d", app.state, app.selected.ID)
	}
	before := src.fetches
	app.shop.Reload()
	for i := 0; i < 5; i++ {
		view := app.View()
		if !strings.Contains(view, "You may also like") || !strings.Contains(view, "Basic Tee") {
			t.Fatalf("detail view missing related products:\n%s", view)
		}
	}
	if src.fetches != before {
		t.Fatalf("rendering fetched the catalog %d time(s)", src.fetches-before)
	}
}

func TestCartPromoAndQuantity(t *testing.T) {
	app := newTestApp(t, testProducts)
	app = press(t, app, "enter", "a", "2", "+")
	if got := app.shop.Cart.ItemCount(); got != 2 {
		t.Fatalf("expected 2 items, got %d", got)
	}

	app = press(t, app, "p")
	app = typeText(t, app, "bogus")
	app = press(t, app, "enter")
	if app.statusMsg != "invalid code" {
		t.Fatalf("expected invalid code message, got %q", app.statusMsg)
	}

	app = press(t, app, "p")
	app = typeText(t, app, "welcome10")
	app = press(t, app, "enter")
	if code, pct := app.shop.Cart.PromoCode(); code != "WELCOME10" || pct != 10 {
		t.Fatalf("expected WELCOME10 applied, got %s %d", code, pct)
	}

	app = press(t, app, "-", "d")
	if !app.shop.Cart.IsEmpty() {
		t.Fatalf("expected empty cart")
	}
}

func TestCheckoutRequiresLogin(t *testing.T) {
	app := newTestApp(t, testProducts)
	app = press(t, app, "enter", "a", "2", "C")
	if app.state != stateCart {
		t.Fatalf("expected to stay on cart")
	}
	if !strings.Contains(app.statusMsg, "Sign in") {
		t.Fatalf("expected sign-in hint, got %q", app.statusMsg)
	}
}

func TestCheckoutFlow(t *testing.T) {
	app := newTestApp(t, testProducts)
	app = press(t, app, "L", "enter", "a", "2", "C")
	if app.state != stateCheckout {
		t.Fatalf("expected checkout form, got state %d", app.state)
	}

	app = press(t, app, "enter")
	if app.form.err == "" {
		t.Fatalf("expected validation error for empty form")
	}

	values := []string{"4242 4242 4242 4242", "Demo Shopper", "12/30", "123", "1 Nile St", "Cairo", "Egypt", "11511"}
	for i, v := range values {
		app.form.fields[i].input.SetValue(v)
	}
	app = press(t, app, "enter")
	if app.state != stateOrders {
		t.Fatalf("expected orders view after checkout, got state %d (%s)", app.state, app.statusMsg)
	}
	if !app.shop.Cart.IsEmpty() {
		t.Fatalf("cart should be cleared")
	}
	purchases, err := app.shop.MyPurchases()
	if err != nil || len(purchases) != 1 {
		t.Fatalf("expected one purchase, got %d (%v)", len(purchases), err)
	}
	if !strings.Contains(app.View(), "Basic Tee") {
		t.Fatalf("orders view should list the purchased item")
	}

	app = press(t, app, "1", "enter", "r")
	if app.inputMode != inputReview {
		t.Fatalf("expected review input after purchase, status %q", app.statusMsg)
	}
	app = typeText(t, app, "5 fits well")
	app = press(t, app, "enter")
	reviews := app.shop.Reviews.For(1)
	if len(reviews) != 1 || reviews[0].Rating != 5 || reviews[0].Comment != "fits well" {
		t.Fatalf("unexpected reviews: %+v", reviews)
	}
}

func TestStaleCheckoutResultIsIgnored(t *testing.T) {
	app := newTestApp(t, testProducts)
	app = press(t, app, "L", "enter", "a", "2", "C")
	if app.state != stateCheckout {
		t.Fatalf("expected checkout form, got state %d", app.state)
	}
	cancelled := false
	app.cancelCheckout = func() { cancelled = true }
	app.checkoutSeq = 2
	app.statusMsg = "Processing payment..."

	model, _ := app.Update(checkoutDoneMsg{seq: 1, err: context.Canceled})
	app = model.(*App)
	if app.cancelCheckout == nil {
		t.Fatalf("an earlier run must not clear the pending checkout")
	}
	if app.state != stateCheckout || app.statusMsg != "Processing payment..." {
		t.Fatalf("an earlier run changed the view: state %d status %q", app.state, app.statusMsg)
	}
	if cancelled {
		t.Fatalf("an earlier run must not cancel the pending checkout")
	}

	model, _ = app.Update(checkoutDoneMsg{seq: 2, record: history.Record{ID: "0123456789abcdef"}})
	app = model.(*App)
	if app.cancelCheckout != nil || app.state != stateOrders {
		t.Fatalf("expected the current run to finish the checkout, got state %d", app.state)
	}
	if !strings.Contains(app.statusMsg, "01234567") {
		t.Fatalf("expected order id in status, got %q", app.statusMsg)
	}
}

func TestReviewNeedsPurchase(t *testing.T) {
	app := newTestApp(t, testProducts)
	app = press(t, app, "L", "enter", "r")
	if app.inputMode != inputNone {
		t.Fatalf("review input should stay closed without a purchase")
	}
	if app.statusMsg == "" {
		t.Fatalf("expected an explanation in the status line")
	}
}

func TestGlobalKeys(t *testing.T) {
	app := newTestApp(t, testProducts)
	app = press(t, app, "$")
	if app.shop.DisplayCurrency() != currency.EUR {
		t.Fatalf("expected EUR, got %s", app.shop.DisplayCurrency())
	}
	app = press(t, app, "L")
	if !app.shop.Session.Authenticated() {
		t.Fatalf("expected login")
	}
	app = press(t, app, "L")
	if app.shop.Session.Authenticated() {
		t.Fatalf("expected logout")
	}
	app = press(t, app, "3")
	if app.state != stateWishlist {
		t.Fatalf("expected wishlist view")
	}

	_, cmd := app.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
}
