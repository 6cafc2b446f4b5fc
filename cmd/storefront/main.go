// cmd/storefront/main.go
//
// This is the entry point for the storefront CLI.
// When you run `storefront` from any directory, that directory becomes the
// project: its .storefront folder holds config, the catalog, logs and the
// persisted cart, wishlist, session and purchase history.

package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/storefront/internal/shop"
	"github.com/kingrea/storefront/internal/tui"
)

func main() {
	if handleValidateCatalogCommand() {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error getting working directory: %v\n", err)
		os.Exit(1)
	}

	s, err := shop.Open(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storefront: %v\n", err)
		os.Exit(1)
	}
	defer s.Close()

	p := tea.NewProgram(
		tui.NewApp(s),
		tea.WithAltScreen(), // Use alternate screen buffer (like vim does)
	)

	// Run blocks until the user quits
	if _, err := p.Run(); err != nil {
		s.Logger().Error("tui exited", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
