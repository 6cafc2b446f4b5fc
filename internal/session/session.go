// Package session tracks the signed-in user. There is no password check;
// the storefront trusts whoever logs in on this device.
package session

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kingrea/storefront/internal/apperr"
	"github.com/kingrea/storefront/internal/kv"
	"github.com/kingrea/storefront/internal/notice"
)

// ErrLoginRequired is returned by operations that need a signed-in user.
var ErrLoginRequired = errors.New("session: login required")

// User is the signed-in customer.
type User struct {
	ID    int    `json:"id" validate:"gt=0"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func (u User) String() string {
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}

var validate = validator.New()

// Validate checks the user's id, name and email.
func (u User) Validate() error {
	if err := validate.Struct(u); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return apperr.Validationf("session.login", "invalid %s", strings.ToLower(fieldErrs[0].Field()))
		}
		return apperr.Validation("session.login", err.Error())
	}
	return nil
}

// Session holds at most one authenticated user. Anonymous is a normal state.
type Session struct {
	mu      sync.Mutex
	user    *User
	binding *kv.Binding
}

// New restores the persisted user, if any. A nil store keeps the session in
// memory.
func New(store kv.Store, reporter notice.Reporter) *Session {
	s := &Session{binding: kv.Bind(store, kv.KeyUser, reporter)}
	var saved *User
	if s.binding.Load(&saved) && saved != nil && saved.Validate() == nil {
		s.user = saved
	}
	return s
}

// Login replaces the current user.
func (s *Session) Login(u User) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = strings.TrimSpace(u.Email)
	if err := u.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = &u
	s.binding.Save(s.user)
	return nil
}

// Logout returns the session to anonymous.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.binding.Save(s.user)
}

// CurrentUser returns the signed-in user.
func (s *Session) CurrentUser() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return User{}, false
	}
	return *s.user, true
}

// Authenticated reports whether anyone is signed in.
func (s *Session) Authenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

// Require returns the current user or ErrLoginRequired.
func (s *Session) Require() (User, error) {
	u, ok := s.CurrentUser()
	if !ok {
		return User{}, ErrLoginRequired
	}
	return u, nil
}
