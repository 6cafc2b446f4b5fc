package kv

import (
	"errors"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/notice"
)

// Binding ties one store key to a state container. It implements the
// degrade rules every persisted container follows: a missing key loads as
// empty, a corrupt or unreadable key loads as empty and is reported, and a
// failed write is reported once after which the container stays in memory
// for the rest of the session.
type Binding struct {
	store    Store
	key      string
	reporter notice.Reporter
	degraded bool
}

// Bind returns a binding for key. A nil store yields a memory-only binding.
func Bind(store Store, key string, reporter notice.Reporter) *Binding {
	return &Binding{store: store, key: key, reporter: reporter}
}

// Key returns the bound key.
func (b *Binding) Key() string {
	return b.key
}

// Degraded reports whether writes have been abandoned for this session.
func (b *Binding) Degraded() bool {
	return b.degraded
}

// Load decodes the stored value into v and reports whether anything was
// loaded. Failures never propagate.
func (b *Binding) Load(v any) bool {
	if b == nil || b.store == nil {
		return false
	}
	err := LoadJSON(b.store, b.key, v)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotFound):
		return false
	default:
		b.report(apperr.Persistence(b.key+".load", err))
		return false
	}
}

// Save writes v under the bound key unless the binding is degraded.
func (b *Binding) Save(v any) {
	if b == nil || b.store == nil || b.degraded {
		return
	}
	if err := SaveJSON(b.store, b.key, v); err != nil {
		b.degraded = true
		b.report(apperr.Persistence(b.key+".save", err))
	}
}

func (b *Binding) report(err error) {
	if b.reporter != nil {
		b.reporter.Report(b.key, err)
	}
}
