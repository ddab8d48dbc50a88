package identity

import (
	"strings"

	"github.com/hangpark123/zoomnote/internal/auth"
	"github.com/hangpark123/zoomnote/internal/directory"
	"github.com/hangpark123/zoomnote/internal/store"
)

// Optional distinguishes "not supplied" from a supplied zero value.
type Optional[T comparable] struct {
	value T
	set   bool
}

func Some[T comparable](v T) Optional[T] { return Optional[T]{value: v, set: true} }

func None[T comparable]() Optional[T] { return Optional[T]{} }

func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

func (o Optional[T]) IsSet() bool { return o.set }

// Or returns o when set and fallback otherwise.
func (o Optional[T]) Or(fallback Optional[T]) Optional[T] {
	if o.set {
		return o
	}
	return fallback
}

// someString treats blank strings as not supplied.
func someString(v string) Optional[string] {
	v = strings.TrimSpace(v)
	if v == "" {
		return None[string]()
	}
	return Some(v)
}

// Patch is what one identity source knows about the caller.
type Patch struct {
	UserID     Optional[string]
	Email      Optional[string]
	AccountID  Optional[string]
	Name       Optional[string]
	Department Optional[string]
	JobTitle   Optional[string]
}

// Merge fills the fields p lacks from fallback. p wins field by field.
func (p Patch) Merge(fallback Patch) Patch {
	return Patch{
		UserID:     p.UserID.Or(fallback.UserID),
		Email:      p.Email.Or(fallback.Email),
		AccountID:  p.AccountID.Or(fallback.AccountID),
		Name:       p.Name.Or(fallback.Name),
		Department: p.Department.Or(fallback.Department),
		JobTitle:   p.JobTitle.Or(fallback.JobTitle),
	}
}

// HasIdentifier reports whether a user id or email is present.
func (p Patch) HasIdentifier() bool {
	return p.UserID.IsSet() || p.Email.IsSet()
}

func PatchFromClaims(c auth.Claims) Patch {
	return Patch{
		UserID:     someString(c.UserID()),
		Email:      someString(c.Email()),
		AccountID:  someString(c.AccountID()),
		Name:       someString(c.DisplayName()),
		Department: someString(directory.NormalizeDepartment(c.Department())),
		JobTitle:   someString(c.JobTitle()),
	}
}

func PatchFromProfile(p directory.Profile) Patch {
	return Patch{
		UserID:     someString(p.ID),
		Email:      someString(p.Email),
		AccountID:  someString(p.AccountID),
		Name:       someString(p.Name),
		Department: someString(p.Department),
		JobTitle:   someString(p.JobTitle),
	}
}

// Query carries explicit identity overrides from request parameters.
type Query struct {
	UserID    string
	Email     string
	AccountID string
}

func (q Query) Patch() Patch {
	return Patch{
		UserID:    someString(q.UserID),
		Email:     someString(q.Email),
		AccountID: someString(q.AccountID),
	}
}

// Reconcile returns the profile changes p implies for an existing user.
// The name is only replaced while it is still the placeholder, the
// department is left to the caller since it needs a lookup, and role is
// never touched.
func Reconcile(u store.User, p Patch) store.ProfileUpdate {
	var upd store.ProfileUpdate
	if v, ok := p.AccountID.Get(); ok && v != u.AccountID {
		upd.AccountID = &v
	}
	if v, ok := p.Email.Get(); ok && !strings.EqualFold(v, u.Email) {
		upd.Email = &v
	}
	if v, ok := p.JobTitle.Get(); ok && v != u.JobTitle {
		upd.JobTitle = &v
	}
	if v, ok := p.Name.Get(); ok && (u.Name == "" || u.Name == store.PlaceholderName) && v != u.Name {
		upd.Name = &v
	}
	return upd
}
