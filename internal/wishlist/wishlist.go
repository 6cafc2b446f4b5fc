// Package wishlist keeps the set of products the user has saved for later.
package wishlist

import (
	"slices"
	"sync"

	"github.com/kingrea/storefront/internal/catalog"
	"github.com/kingrea/storefront/internal/kv"
	"github.com/kingrea/storefront/internal/notice"
)

// Store is an insertion-ordered product set persisted under the wishlist
// key. It never holds two entries with the same product id.
type Store struct {
	mu      sync.Mutex
	items   []catalog.Product
	binding *kv.Binding
}

// New loads the wishlist from store. A nil store keeps it in memory only.
func New(store kv.Store, reporter notice.Reporter) *Store {
	s := &Store{binding: kv.Bind(store, kv.KeyWishlist, reporter)}
	var saved []catalog.Product
	if s.binding.Load(&saved) {
		for _, p := range saved {
			if p.ID > 0 && s.indexOf(p.ID) < 0 {
				s.items = append(s.items, p)
			}
		}
	}
	return s
}

// Add saves a product. Adding a product already present changes nothing.
func (s *Store) Add(p catalog.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(p.ID) >= 0 {
		return
	}
	s.items = append(s.items, p)
	s.save()
}

// Remove drops a product by id. Removing an absent id changes nothing.
func (s *Store) Remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	s.save()
}

// Toggle adds p when absent and removes it when present, returning whether
// it is now saved.
func (s *Store) Toggle(p catalog.Product) bool {
	if s.Contains(p.ID) {
		s.Remove(p.ID)
		return false
	}
	s.Add(p)
	return true
}

// Contains reports whether id is saved.
func (s *Store) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// Items returns the saved products in the order they were added.
func (s *Store) Items() []catalog.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.items)
}

// Len returns the number of saved products.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Clear removes every saved product.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.save()
}

func (s *Store) indexOf(id int) int {
	return slices.IndexFunc(s.items, func(p catalog.Product) bool { return p.ID == id })
}

func (s *Store) save() {
	items := s.items
	if items == nil {
		items = []catalog.Product{}
	}
	s.binding.Save(items)
}
