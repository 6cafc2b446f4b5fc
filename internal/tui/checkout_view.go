package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/storefront/internal/checkout"
)

// Cart

func (a *App) clampCartSelection() {
	n := len(a.shop.Cart.Lines())
	if a.cartSel >= n {
		a.cartSel = n - 1
	}
	if a.cartSel < 0 {
		a.cartSel = 0
	}
}

func (a *App) updateCart(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	lines := a.shop.Cart.Lines()
	switch msg.String() {
	case "up", "k":
		if a.cartSel > 0 {
			a.cartSel--
		}
	case "down", "j":
		if a.cartSel < len(lines)-1 {
			a.cartSel++
		}
	case "+", "=":
		if len(lines) > 0 {
			line := lines[a.cartSel]
			a.shop.Cart.UpdateQuantity(line.Key(), line.Quantity+1)
		}
	case "-":
		if len(lines) > 0 {
			line := lines[a.cartSel]
			a.shop.Cart.UpdateQuantity(line.Key(), line.Quantity-1)
		}
	case "d":
		if len(lines) > 0 {
			line := lines[a.cartSel]
			a.shop.Cart.Remove(line.Key())
			a.statusMsg = fmt.Sprintf("Removed %s", line.Product.Name)
		}
	case "p":
		return a, a.startInput(inputPromo, "promo code")
	case "P":
		a.shop.Cart.ClearPromo()
		a.statusMsg = "Promo removed"
	case "C":
		return a, a.openCheckout()
	}
	a.clampCartSelection()
	return a, nil
}

func (a *App) renderCart() string {
	snap := a.shop.Cart.Snapshot()
	if snap.IsEmpty() {
		return mutedStyle.Render("Your cart is empty.")
	}
	rows := []string{titleStyle.Render("Your cart")}
	for i, line := range snap.Lines {
		variant := strings.Trim(strings.Join([]string{line.Size, line.Color}, " / "), " /")
		row := fmt.Sprintf("%d × %s", line.Quantity, line.Product.Name)
		if variant != "" {
			row += mutedStyle.Render(" (" + variant + ")")
		}
		row += "  " + a.shop.Price(line.Total())
		cursor := "  "
		if i == a.cartSel {
			cursor = activeTab.Render("> ")
		}
		rows = append(rows, cursor+row)
	}
	rows = append(rows, "", a.renderTotals())
	rows = append(rows, hintStyle.Render("+/- quantity · d remove · p promo · P clear promo · C checkout"))
	return strings.Join(rows, "\n")
}

func (a *App) renderTotals() string {
	t := a.shop.Checkout.Quote()
	rows := []string{fmt.Sprintf("Subtotal   %s", a.shop.Price(t.Subtotal))}
	if t.PromoCode != "" {
		rows = append(rows, fmt.Sprintf("Discount   -%s (%s)", a.shop.Price(t.Discount), t.PromoCode))
	}
	rows = append(rows,
		fmt.Sprintf("Shipping   %s", a.shop.Price(t.Shipping)),
		lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("Total      %s", a.shop.Price(t.Total))),
	)
	return strings.Join(rows, "\n")
}

// Checkout form

type formField struct {
	label string
	input textinput.Model
}

type checkoutForm struct {
	fields []formField
	focus  int
	err    string
}

var formLabels = []string{
	"Card number",
	"Name on card",
	"Expiry (MM/YY)",
	"CVV",
	"Address",
	"City",
	"Country",
	"ZIP code",
}

func newCheckoutForm() *checkoutForm {
	f := &checkoutForm{fields: make([]formField, len(formLabels))}
	for i, label := range formLabels {
		in := textinput.New()
		in.CharLimit = 64
		in.Prompt = ""
		if label == "CVV" {
			in.EchoMode = textinput.EchoPassword
		}
		f.fields[i] = formField{label: label, input: in}
	}
	return f
}

func (f *checkoutForm) focusField(i int) tea.Cmd {
	f.fields[f.focus].input.Blur()
	f.focus = (i + len(f.fields)) % len(f.fields)
	return f.fields[f.focus].input.Focus()
}

func (f *checkoutForm) value(i int) string {
	return f.fields[i].input.Value()
}

func (f *checkoutForm) details() checkout.Details {
	return checkout.Details{
		Payment: checkout.Payment{
			CardNumber: f.value(0),
			CardName:   f.value(1),
			Expiry:     f.value(2),
			CVV:        f.value(3),
		},
		Shipping: checkout.Shipping{
			Address: f.value(4),
			City:    f.value(5),
			Country: f.value(6),
			ZipCode: f.value(7),
		},
	}
}

func (a *App) openCheckout() tea.Cmd {
	if a.shop.Cart.IsEmpty() {
		a.statusMsg = "Your cart is empty"
		return nil
	}
	if !a.shop.Session.Authenticated() {
		a.statusMsg = "Sign in with L before checking out"
		return nil
	}
	a.form = newCheckoutForm()
	a.state = stateCheckout
	a.statusMsg = "tab next field · enter place order · esc back to cart"
	return a.form.focusField(0)
}

func (a *App) updateCheckout(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.cancelCheckout != nil {
		if msg.String() == "esc" {
			a.abortCheckout()
			a.statusMsg = "Cancelling payment..."
		}
		return a, nil
	}
	switch msg.String() {
	case "esc":
		a.state = stateCart
		a.form = nil
		a.statusMsg = ""
		return a, nil
	case "tab", "down":
		return a, a.form.focusField(a.form.focus + 1)
	case "shift+tab", "up":
		return a, a.form.focusField(a.form.focus - 1)
	case "enter":
		return a, a.placeOrder()
	}
	var cmd tea.Cmd
	field := &a.form.fields[a.form.focus]
	field.input, cmd = field.input.Update(msg)
	return a, cmd
}

// placeOrder validates the form and runs the checkout off the UI goroutine.
func (a *App) placeOrder() tea.Cmd {
	details := a.form.details()
	if err := details.Validate(); err != nil {
		a.form.err = userMessage(err)
		return nil
	}
	a.form.err = ""
	ctx, cancel := context.WithCancel(a.ctx)
	a.cancelCheckout = cancel
	a.checkoutSeq++
	seq := a.checkoutSeq
	a.statusMsg = "Processing payment..."
	svc := a.shop.Checkout
	run := func() tea.Msg {
		defer cancel()
		rec, err := svc.Checkout(ctx, details)
		return checkoutDoneMsg{seq: seq, record: rec, err: err}
	}
	return tea.Batch(run, a.spinner.Tick)
}

func (a *App) abortCheckout() {
	if a.cancelCheckout != nil {
		a.cancelCheckout()
		a.cancelCheckout = nil
	}
}

func (a *App) handleCheckoutDone(msg checkoutDoneMsg) (tea.Model, tea.Cmd) {
	// A run cancelled with esc can report after a newer one started.
	if msg.seq != a.checkoutSeq {
		if msg.err == nil {
			a.logInfo("Order %s placed", shortID(msg.record.ID))
		}
		return a, nil
	}
	a.cancelCheckout = nil
	switch {
	case msg.err == nil:
		a.form = nil
		a.state = stateOrders
		a.statusMsg = fmt.Sprintf("Order %s placed · %s", shortID(msg.record.ID), a.shop.Price(msg.record.Total))
		a.logInfo("Order %s placed", shortID(msg.record.ID))
	case errors.Is(msg.err, checkout.ErrInProgress):
		a.statusMsg = "A checkout is already in progress"
	case errors.Is(msg.err, context.Canceled):
		a.statusMsg = "Payment cancelled"
	default:
		if a.form != nil {
			a.form.err = userMessage(msg.err)
		}
		a.statusMsg = "Checkout failed"
		a.logWarn("Checkout failed: %v", msg.err)
	}
	return a, nil
}

func (a *App) renderCheckout() string {
	if a.form == nil {
		return ""
	}
	rows := []string{titleStyle.Render("Checkout"), ""}
	for i, f := range a.form.fields {
		if i == 4 {
			rows = append(rows, "", titleStyle.Render("Shipping"))
		}
		label := fmt.Sprintf("%-16s", f.label)
		if i == a.form.focus {
			label = activeTab.Render(label)
		}
		rows = append(rows, label+f.input.View())
	}
	rows = append(rows, "", a.renderTotals())
	if a.cancelCheckout != nil {
		rows = append(rows, "", a.spinner.View()+" Processing payment... (esc to cancel)")
	}
	if a.form.err != "" {
		rows = append(rows, "", errorStyle.Render(a.form.err))
	}
	return strings.Join(rows, "\n")
}

// Orders

func (a *App) renderOrders() string {
	records, err := a.shop.MyPurchases()
	if err != nil {
		return mutedStyle.Render("Sign in with L to see your orders.")
	}
	if len(records) == 0 {
		return mutedStyle.Render("No orders yet.")
	}
	rows := []string{titleStyle.Render("My orders")}
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		rows = append(rows, fmt.Sprintf("%s  %s  %d item(s)  %s  %s",
			r.CreatedAt.Format("2006-01-02 15:04"),
			shortID(r.ID),
			r.ItemCount(),
			a.shop.Price(r.Total),
			r.Status,
		))
		for _, item := range r.Items {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("    %d × %s", item.Quantity, item.Name)))
		}
	}
	return strings.Join(rows, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
