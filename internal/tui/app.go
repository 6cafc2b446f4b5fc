// internal/tui/app.go
//
// This is the terminal storefront. It uses bubbletea, which follows The Elm
// Architecture:
//
// 1. Model: the App struct below holds every piece of UI state
// 2. Update: key presses and async results arrive as messages
// 3. View: renders the current state to a string
//
// Keys (global):
//   1 catalog · 2 cart · 3 wishlist · 4 orders
//   $ cycle currency · L log in/out · R reload catalog · q quit
// Catalog: enter details · / search · c category · s sort · x clear · w wishlist
// Details: z size · o color · a add to cart · w wishlist · r review
// Cart:    +/- quantity · d remove · p promo · P clear promo · C checkout
// Wishlist: enter details · d remove · a add to cart

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/filter"
	"github.com/kingrea/storefront/internal/history"
	"github.com/kingrea/storefront/internal/shop"
)

// appState represents which "screen" we're on
type appState int

const (
	stateCatalog  appState = iota // product grid with filters
	stateDetail                   // a single product
	stateCart                     // cart lines and totals
	stateWishlist                 // saved products
	stateOrders                   // purchase history
	stateCheckout                 // payment and shipping form
)

// inputMode says what the shared text input is collecting.
type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputPromo
	inputReview
)

const noticeLines = 5

type catalogLoadedMsg struct {
	products []catalog.Product
	err      error
}

type checkoutDoneMsg struct {
	seq    int
	record history.Record
	err    error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithContext sets the context used for catalog loads and checkout.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state appState
	shop  *shop.Shop
	ctx   context.Context

	products    []catalog.Product
	visible     []catalog.Product
	facets      filter.Facets
	criteria    filter.Criteria
	categoryIdx int // -1 means every category
	sortIdx     int
	loading     bool

	catalogMenu  list.Model
	wishlistMenu list.Model

	selected  catalog.Product
	related   []catalog.Product
	sizeIdx   int
	colorIdx  int
	cartSel   int
	prevState appState

	input     textinput.Model
	inputMode inputMode

	form           *checkoutForm
	spinner        spinner.Model
	cancelCheckout context.CancelFunc
	checkoutSeq    int // identifies the payment run cancelCheckout belongs to

	statusMsg string
	err       error

	width  int
	height int
}

// productItem implements list.Item for catalog and wishlist rows.
type productItem struct {
	product catalog.Product
	price   string
	wished  bool
}

func (i productItem) Title() string {
	if i.wished {
		return "♥ " + i.product.Name
	}
	return i.product.Name
}

func (i productItem) Description() string {
	parts := []string{i.product.Category, i.price}
	if len(i.product.Reviews) > 0 {
		parts = append(parts, fmt.Sprintf("★ %.1f (%d)", catalog.AverageRating(i.product.Reviews), len(i.product.Reviews)))
	}
	return strings.Join(parts, " · ")
}

func (i productItem) FilterValue() string { return i.product.Name }

// NewApp creates a new App instance around an assembled shop.
func NewApp(s *shop.Shop, opts ...AppOption) *App {
	catalogMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	catalogMenu.Title = "⬡ CATALOG"
	catalogMenu.SetShowStatusBar(false)
	catalogMenu.SetFilteringEnabled(false)
	catalogMenu.KeyMap.Quit.SetEnabled(false)

	wishlistMenu := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	wishlistMenu.Title = "♥ WISHLIST"
	wishlistMenu.SetShowStatusBar(false)
	wishlistMenu.SetFilteringEnabled(false)
	wishlistMenu.KeyMap.Quit.SetEnabled(false)

	input := textinput.New()
	input.CharLimit = 120

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	app := &App{
		state:        stateCatalog,
		shop:         s,
		ctx:          context.Background(),
		categoryIdx:  -1,
		catalogMenu:  catalogMenu,
		wishlistMenu: wishlistMenu,
		input:        input,
		spinner:      spin,
		loading:      true,
		statusMsg:    "Loading catalog...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

func (a *App) logInfo(format string, args ...any) {
	a.shop.Notices().Info("ui", format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	a.shop.Notices().Warn("ui", format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.loadCatalog()
}

func (a *App) loadCatalog() tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		products, err := a.shop.Products(ctx)
		return catalogLoadedMsg{products: products, err: err}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.catalogMenu.SetSize(max(0, msg.Width/2), max(0, msg.Height-12))
		a.wishlistMenu.SetSize(max(0, msg.Width/2), max(0, msg.Height-12))
		return a, nil

	case catalogLoadedMsg:
		a.loading = false
		if msg.err != nil {
			a.err = msg.err
			a.products = nil
			a.statusMsg = "Catalog unavailable. Press R to retry."
		} else {
			a.err = nil
			a.products = msg.products
			a.facets = filter.CollectFacets(a.products)
			a.statusMsg = fmt.Sprintf("%d products", len(a.products))
		}
		a.applyCriteria()
		return a, nil

	case checkoutDoneMsg:
		return a.handleCheckoutDone(msg)

	case spinner.TickMsg:
		if a.cancelCheckout == nil {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			a.abortCheckout()
			return a, tea.Quit
		}
		if a.inputMode != inputNone {
			return a.updateInput(msg)
		}
		if a.state == stateCheckout {
			return a.updateCheckout(msg)
		}
		if model, cmd, handled := a.handleGlobalKey(msg.String()); handled {
			return model, cmd
		}
		switch a.state {
		case stateCatalog:
			return a.updateCatalog(msg)
		case stateDetail:
			return a.updateDetail(msg)
		case stateCart:
			return a.updateCart(msg)
		case stateWishlist:
			return a.updateWishlist(msg)
		}
	}
	return a, nil
}

func (a *App) handleGlobalKey(key string) (tea.Model, tea.Cmd, bool) {
	switch key {
	case "q":
		return a, tea.Quit, true
	case "esc":
		if a.state == stateDetail {
			a.state = a.prevState
		} else {
			a.state = stateCatalog
		}
		a.statusMsg = ""
		return a, nil, true
	case "1":
		a.state = stateCatalog
	case "2":
		a.state = stateCart
		a.clampCartSelection()
	case "3":
		a.state = stateWishlist
		a.refreshWishlistMenu()
	case "4":
		a.state = stateOrders
	case "$":
		code := a.shop.CycleCurrency()
		a.refreshCatalogMenu()
		a.refreshWishlistMenu()
		a.statusMsg = fmt.Sprintf("Prices in %s", code)
	case "L":
		a.toggleLogin()
	case "R":
		a.shop.Reload()
		a.loading = true
		a.statusMsg = "Reloading catalog..."
		return a, a.loadCatalog(), true
	default:
		return a, nil, false
	}
	return a, nil, true
}

func (a *App) toggleLogin() {
	if a.shop.Session.Authenticated() {
		a.shop.Logout()
		a.statusMsg = "Signed out"
		return
	}
	if err := a.shop.Login(); err != nil {
		a.statusMsg = fmt.Sprintf("Login failed: %v", err)
		return
	}
	user, _ := a.shop.Session.CurrentUser()
	a.statusMsg = fmt.Sprintf("Signed in as %s", user.Name)
	a.logInfo("Signed in as %s", user.Name)
}

// startInput focuses the shared text input for mode.
func (a *App) startInput(mode inputMode, placeholder string) tea.Cmd {
	a.inputMode = mode
	a.input.Reset()
	a.input.Placeholder = placeholder
	if mode == inputSearch {
		a.input.SetValue(a.criteria.Query)
	}
	return a.input.Focus()
}

func (a *App) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.inputMode = inputNone
		a.input.Blur()
		return a, nil
	case "enter":
		value := a.input.Value()
		mode := a.inputMode
		a.inputMode = inputNone
		a.input.Blur()
		switch mode {
		case inputSearch:
			a.criteria.Query = strings.TrimSpace(value)
			a.applyCriteria()
		case inputPromo:
			a.applyPromo(value)
		case inputReview:
			a.submitReview(value)
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) applyPromo(code string) {
	pct, err := a.shop.Cart.ApplyPromo(code)
	if err != nil {
		a.statusMsg = userMessage(err)
		return
	}
	a.statusMsg = fmt.Sprintf("Promo applied: %d%% off", pct)
	a.logInfo("Promo %s applied", strings.ToUpper(strings.TrimSpace(code)))
}

func userMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	return err.Error()
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(30, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
		rightWidth = 0
	}

	var content string
	switch a.state {
	case stateCatalog:
		content = a.renderCatalog()
	case stateDetail:
		content = a.renderDetail()
	case stateCart:
		content = a.renderCart()
	case stateWishlist:
		content = a.renderWishlist()
	case stateOrders:
		content = a.renderOrders()
	case stateCheckout:
		content = a.renderCheckout()
	}
	if a.inputMode != inputNone {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", a.input.View())
	}
	return a.renderBoard(content, leftWidth, rightWidth)
}

func (a *App) renderBoard(mainContent string, leftWidth, rightWidth int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ STOREFRONT")

	tabs := a.renderTabs()
	left := lipgloss.JoinVertical(lipgloss.Left, tabs, "", mainContent)
	leftBox := boxStyle.Width(max(20, leftWidth)).Render(left)

	var body string
	if rightWidth > 0 {
		rightBox := boxStyle.Width(max(20, rightWidth)).Render(a.renderSummaryPanel(rightWidth - 4))
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	} else {
		body = leftBox
	}

	sections := []string{header, body}
	if panel := a.renderNoticePanel(); panel != "" {
		sections = append(sections, panel)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.statusMsg)
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).MarginTop(1)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	activeTab  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
)

func (a *App) renderTabs() string {
	tabs := []struct {
		state appState
		label string
	}{
		{stateCatalog, "1 Catalog"},
		{stateCart, fmt.Sprintf("2 Cart (%d)", a.shop.Cart.ItemCount())},
		{stateWishlist, fmt.Sprintf("3 Wishlist (%d)", a.shop.Wishlist.Len())},
		{stateOrders, "4 Orders"},
	}
	var parts []string
	for _, tab := range tabs {
		if tab.state == a.state || (tab.state == stateCatalog && a.state == stateDetail) || (tab.state == stateCart && a.state == stateCheckout) {
			parts = append(parts, activeTab.Render(tab.label))
		} else {
			parts = append(parts, mutedStyle.Render(tab.label))
		}
	}
	return strings.Join(parts, "   ")
}

func (a *App) renderSummaryPanel(width int) string {
	snap := a.shop.Cart.Snapshot()
	lines := []string{titleStyle.Render("Account")}
	if user, ok := a.shop.Session.CurrentUser(); ok {
		lines = append(lines, user.String())
	} else {
		lines = append(lines, mutedStyle.Render("Guest · press L to sign in"))
	}
	lines = append(lines,
		"",
		titleStyle.Render("Cart"),
		fmt.Sprintf("%d item(s)", snap.ItemCount),
		fmt.Sprintf("Subtotal  %s", a.shop.Price(snap.Subtotal)),
	)
	if snap.PromoCode != "" {
		lines = append(lines, fmt.Sprintf("%s  -%s", snap.PromoCode, a.shop.Price(snap.Discount)))
	}
	lines = append(lines,
		"",
		mutedStyle.Render(fmt.Sprintf("Currency: %s  ($ to change)", a.shop.DisplayCurrency())),
	)
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func (a *App) renderNoticePanel() string {
	lines, total := a.shop.Notices().Tail(noticeLines)
	if lines == nil {
		recent := a.shop.Notices().Recent()
		if len(recent) > noticeLines {
			recent = recent[len(recent)-noticeLines:]
		}
		for _, n := range recent {
			lines = append(lines, fmt.Sprintf("[%s] %s", n.Level, n.String()))
		}
		total = len(lines)
	}
	if len(lines) == 0 {
		return ""
	}
	head := titleStyle.Render(fmt.Sprintf("NOTICES (%d)", total))
	body := lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Render(strings.Join(lines, "\n"))
	return boxStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}
