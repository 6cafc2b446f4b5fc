package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/filter"
	"github.com/kingrea/storefront/internal/shop"
)

// applyCriteria re-runs the filter engine over the loaded catalog.
func (a *App) applyCriteria() {
	visible, err := filter.Apply(a.products, a.criteria)
	if err != nil {
		a.logWarn("filter rejected: %v", err)
		a.statusMsg = err.Error()
		return
	}
	a.visible = visible
	a.refreshCatalogMenu()
}

func (a *App) refreshCatalogMenu() {
	items := make([]list.Item, len(a.visible))
	for i, p := range a.visible {
		items[i] = a.productItem(p)
	}
	a.catalogMenu.SetItems(items)
}

func (a *App) refreshWishlistMenu() {
	saved := a.shop.Wishlist.Items()
	items := make([]list.Item, len(saved))
	for i, p := range saved {
		items[i] = a.productItem(p)
	}
	a.wishlistMenu.SetItems(items)
}

func (a *App) productItem(p catalog.Product) productItem {
	return productItem{
		product: p,
		price:   a.shop.Price(p.Price),
		wished:  a.shop.Wishlist.Contains(p.ID),
	}
}

func (a *App) selectedProduct(menu list.Model) (catalog.Product, bool) {
	item, ok := menu.SelectedItem().(productItem)
	if !ok {
		return catalog.Product{}, false
	}
	return item.product, true
}

func (a *App) openDetail(p catalog.Product, from appState) {
	a.prevState = from
	a.selected = p
	a.related = catalog.Related(a.products, p, shop.RelatedLimit)
	a.sizeIdx = 0
	a.colorIdx = 0
	a.state = stateDetail
	a.statusMsg = ""
}

func (a *App) updateCatalog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if p, ok := a.selectedProduct(a.catalogMenu); ok {
			a.openDetail(p, stateCatalog)
		}
		return a, nil
	case "/":
		return a, a.startInput(inputSearch, "search by name")
	case "c":
		a.cycleCategory()
		return a, nil
	case "s":
		a.sortIdx = (a.sortIdx + 1) % len(filter.SortKeys)
		a.criteria.Sort = filter.SortKeys[a.sortIdx]
		a.applyCriteria()
		a.statusMsg = fmt.Sprintf("Sorted by %s", a.criteria.Sort)
		return a, nil
	case "x":
		a.criteria = filter.Criteria{}
		a.categoryIdx = -1
		a.sortIdx = 0
		a.applyCriteria()
		a.statusMsg = "Filters cleared"
		return a, nil
	case "w":
		if p, ok := a.selectedProduct(a.catalogMenu); ok {
			a.toggleWishlist(p)
			a.refreshCatalogMenu()
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.catalogMenu, cmd = a.catalogMenu.Update(msg)
	return a, cmd
}

func (a *App) cycleCategory() {
	categories := a.facets.Categories
	if len(categories) == 0 {
		return
	}
	a.categoryIdx++
	if a.categoryIdx >= len(categories) {
		a.categoryIdx = -1
		a.criteria.Categories = nil
		a.statusMsg = "All categories"
	} else {
		a.criteria.Categories = []string{categories[a.categoryIdx]}
		a.statusMsg = "Category: " + categories[a.categoryIdx]
	}
	a.applyCriteria()
}

func (a *App) toggleWishlist(p catalog.Product) {
	if a.shop.Wishlist.Toggle(p) {
		a.statusMsg = fmt.Sprintf("Saved %s to wishlist", p.Name)
	} else {
		a.statusMsg = fmt.Sprintf("Removed %s from wishlist", p.Name)
	}
}

func (a *App) renderCatalog() string {
	if a.loading {
		return mutedStyle.Render("Loading catalog...")
	}
	if a.err != nil {
		return errorStyle.Render("Could not load the catalog.") + "\n" + mutedStyle.Render(a.err.Error())
	}
	var chips []string
	if len(a.criteria.Categories) > 0 {
		chips = append(chips, "category: "+strings.Join(a.criteria.Categories, ","))
	}
	if a.criteria.Query != "" {
		chips = append(chips, fmt.Sprintf("search: %q", a.criteria.Query))
	}
	if a.criteria.Sort != "" {
		chips = append(chips, "sort: "+string(a.criteria.Sort))
	}
	summary := fmt.Sprintf("%d of %d products", len(a.visible), len(a.products))
	if len(chips) > 0 {
		summary += "  ·  " + strings.Join(chips, "  ")
	}
	body := a.catalogMenu.View()
	if len(a.visible) == 0 {
		body = mutedStyle.Render("No products match. Press x to clear filters.")
	}
	hints := hintStyle.Render("enter details · / search · c category · s sort · x clear · w wishlist")
	return lipgloss.JoinVertical(lipgloss.Left, mutedStyle.Render(summary), body, hints)
}

// Detail

func (a *App) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := a.selected
	switch msg.String() {
	case "z":
		if len(p.Sizes) > 0 {
			a.sizeIdx = (a.sizeIdx + 1) % len(p.Sizes)
		}
	case "o":
		if len(p.Colors) > 0 {
			a.colorIdx = (a.colorIdx + 1) % len(p.Colors)
		}
	case "a":
		a.addSelectedToCart()
	case "w":
		a.toggleWishlist(p)
	case "r":
		if err := a.shop.Reviews.CanReview(p.ID); err != nil {
			a.statusMsg = err.Error()
			return a, nil
		}
		return a, a.startInput(inputReview, "<rating 1-5> <comment>")
	}
	return a, nil
}

func (a *App) addSelectedToCart() {
	p := a.selected
	size, color := variant(p.Sizes, a.sizeIdx), variant(p.Colors, a.colorIdx)
	snap, err := a.shop.Cart.Add(p, 1, size, color)
	if err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.statusMsg = fmt.Sprintf("Added %s · cart has %d item(s)", p.Name, snap.ItemCount)
}

func variant(values []string, idx int) string {
	if len(values) == 0 {
		return ""
	}
	return values[idx%len(values)]
}

func (a *App) submitReview(input string) {
	rating, comment, _ := strings.Cut(strings.TrimSpace(input), " ")
	n, err := strconv.Atoi(rating)
	if err != nil {
		a.statusMsg = "Start the review with a rating from 1 to 5"
		return
	}
	if _, err := a.shop.Reviews.Submit(a.selected.ID, n, comment); err != nil {
		a.statusMsg = err.Error()
		return
	}
	a.statusMsg = "Thanks for the review"
	a.logInfo("Review posted for %s", a.selected.Name)
}

func (a *App) renderDetail() string {
	p := a.selected
	lines := []string{
		titleStyle.Render(p.Name),
		fmt.Sprintf("%s  ·  %s", p.Category, a.shop.Price(p.Price)),
	}
	if p.Description != "" {
		lines = append(lines, "", p.Description)
	}
	lines = append(lines, "")
	if len(p.Sizes) > 0 {
		lines = append(lines, "Size:  "+choices(p.Sizes, a.sizeIdx)+mutedStyle.Render("  (z)"))
	}
	if len(p.Colors) > 0 {
		lines = append(lines, "Color: "+choices(p.Colors, a.colorIdx)+mutedStyle.Render("  (o)"))
	}
	if p.Material != "" {
		lines = append(lines, "Material: "+p.Material)
	}
	if a.shop.Wishlist.Contains(p.ID) {
		lines = append(lines, "♥ In your wishlist")
	}

	reviews := a.shop.Reviews.Merged(p)
	lines = append(lines, "", titleStyle.Render(fmt.Sprintf("Reviews ★ %.1f (%d)", catalog.AverageRating(reviews), len(reviews))))
	if len(reviews) == 0 {
		lines = append(lines, mutedStyle.Render("No reviews yet"))
	}
	for _, r := range reviews {
		lines = append(lines, fmt.Sprintf("%s %s: %s", strings.Repeat("★", r.Rating), r.User, r.Comment))
	}

	if len(a.related) > 0 {
		names := make([]string, len(a.related))
		for i, rp := range a.related {
			names[i] = rp.Name
		}
		lines = append(lines, "", titleStyle.Render("You may also like"), strings.Join(names, " · "))
	}
	lines = append(lines, hintStyle.Render("a add to cart · w wishlist · r review · esc back"))
	return strings.Join(lines, "\n")
}

func choices(values []string, idx int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		if i == idx%len(values) {
			parts[i] = activeTab.Render("[" + v + "]")
		} else {
			parts[i] = v
		}
	}
	return strings.Join(parts, " ")
}

// Wishlist

func (a *App) updateWishlist(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p, ok := a.selectedProduct(a.wishlistMenu)
	switch msg.String() {
	case "enter":
		if ok {
			a.openDetail(p, stateWishlist)
		}
		return a, nil
	case "d":
		if ok {
			a.shop.Wishlist.Remove(p.ID)
			a.refreshWishlistMenu()
			a.statusMsg = fmt.Sprintf("Removed %s from wishlist", p.Name)
		}
		return a, nil
	case "a":
		if ok {
			a.selected = p
			a.sizeIdx, a.colorIdx = 0, 0
			a.addSelectedToCart()
		}
		return a, nil
	}
	var cmd tea.Cmd
	a.wishlistMenu, cmd = a.wishlistMenu.Update(msg)
	return a, cmd
}

func (a *App) renderWishlist() string {
	if a.shop.Wishlist.Len() == 0 {
		return mutedStyle.Render("Your wishlist is empty. Press w on a product to save it.")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.wishlistMenu.View(),
		hintStyle.Render("enter details · a add to cart · d remove"),
	)
}
