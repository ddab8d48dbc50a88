// Package identity turns the identity sources of a request into a
// persisted user.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hangpark123/zoomnote/internal/auth"
	"github.com/hangpark123/zoomnote/internal/directory"
	"github.com/hangpark123/zoomnote/internal/logging"
	"github.com/hangpark123/zoomnote/internal/rbac"
	"github.com/hangpark123/zoomnote/internal/store"
)

// ErrUnknownUser means no identifier could be established for the caller.
var ErrUnknownUser = errors.New("unknown user")

const syntheticEmailDomain = "zoom.local"

type UserStore interface {
	FindUser(ctx context.Context, userID, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	UpsertUser(ctx context.Context, in store.UserUpsert) (store.User, error)
	UpdateUserProfile(ctx context.Context, userID string, p store.ProfileUpdate) error
	EnsureDepartment(ctx context.Context, name string) (int64, error)
	PromoteIfNoMaster(ctx context.Context, userID string) (bool, error)
}

type Directory interface {
	Configured() bool
	GetUser(ctx context.Context, idOrEmail string) (directory.Profile, error)
	ListUsers(ctx context.Context) ([]directory.Profile, error)
}

// DevIdentity is used only when enabled and no other identifier exists.
type DevIdentity struct {
	Enabled   bool
	UserID    string
	Email     string
	AccountID string
}

func (d DevIdentity) patch() Patch {
	if !d.Enabled {
		return Patch{}
	}
	return Patch{
		UserID:    someString(d.UserID),
		Email:     someString(d.Email),
		AccountID: someString(d.AccountID),
	}
}

type Resolver struct {
	store     UserStore
	directory Directory
	dev       DevIdentity
	logger    logging.Logger
}

func NewResolver(st UserStore, dir Directory, dev DevIdentity, logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Resolver{store: st, directory: dir, dev: dev, logger: logger}
}

// Resolve finds or creates the caller. Query overrides win over claims;
// the development identity is consulted only if neither yields an id or
// email.
func (r *Resolver) Resolve(ctx context.Context, q Query, claims auth.Claims) (store.User, error) {
	p := q.Patch().Merge(PatchFromClaims(claims))
	if !p.HasIdentifier() {
		p = r.dev.patch().Merge(p)
	}
	if !p.HasIdentifier() {
		return store.User{}, ErrUnknownUser
	}

	userID, _ := p.UserID.Get()
	email, _ := p.Email.Get()

	u, err := r.store.FindUser(ctx, userID, email)
	switch {
	case err == nil:
		u, err = r.reconcile(ctx, u, p)
	case errors.Is(err, store.ErrNotFound):
		u, err = r.create(ctx, p)
	}
	if err != nil {
		return store.User{}, err
	}

	promoted, err := r.store.PromoteIfNoMaster(ctx, u.ID)
	if err != nil {
		return store.User{}, err
	}
	if promoted {
		r.logger.Info(ctx, "bootstrapped first master", "user_id", u.ID)
		u.Role = rbac.RoleMaster
	}
	return u, nil
}

func (r *Resolver) reconcile(ctx context.Context, u store.User, p Patch) (store.User, error) {
	upd := Reconcile(u, p)
	if dept, ok := p.Department.Get(); ok && dept != u.DepartmentName {
		id, err := r.store.EnsureDepartment(ctx, dept)
		if err != nil {
			return store.User{}, err
		}
		if id != u.DepartmentID {
			upd.DepartmentID = &id
		}
	}
	if upd.Empty() {
		return u, nil
	}
	if err := r.store.UpdateUserProfile(ctx, u.ID, upd); err != nil {
		return store.User{}, fmt.Errorf("reconcile user: %w", err)
	}
	return r.store.GetUserByID(ctx, u.ID)
}

// create fetches the directory profile when available. Directory failures
// are logged and the request-supplied fields are used instead.
func (r *Resolver) create(ctx context.Context, p Patch) (store.User, error) {
	if r.directory != nil && r.directory.Configured() {
		key, _ := p.UserID.Get()
		if key == "" {
			key, _ = p.Email.Get()
		}
		profile, err := r.directory.GetUser(ctx, key)
		if err != nil {
			r.logger.Warn(ctx, "directory lookup failed", "identifier", key, "error", err)
		} else {
			merged := PatchFromProfile(profile).Merge(p)
			// Keep the id the platform gave us so future lookups hit.
			if p.UserID.IsSet() {
				merged.UserID = p.UserID
			}
			p = merged
		}
	}
	return r.upsert(ctx, p)
}

func (r *Resolver) upsert(ctx context.Context, p Patch) (store.User, error) {
	userID, _ := p.UserID.Get()
	email, _ := p.Email.Get()
	if userID == "" {
		userID = email
	}
	if email == "" {
		email = userID + "@" + syntheticEmailDomain
	}
	name, ok := p.Name.Get()
	if !ok {
		name = store.PlaceholderName
		if at := strings.IndexByte(email, '@'); at > 0 && !strings.HasSuffix(email, "@"+syntheticEmailDomain) {
			name = email[:at]
		}
	}

	in := store.UserUpsert{ID: userID, Email: email, Name: name}
	in.AccountID, _ = p.AccountID.Get()
	in.JobTitle, _ = p.JobTitle.Get()
	if dept, ok := p.Department.Get(); ok {
		id, err := r.store.EnsureDepartment(ctx, dept)
		if err != nil {
			return store.User{}, err
		}
		in.DepartmentID = id
	}
	return r.store.UpsertUser(ctx, in)
}

// SyncResult summarizes a directory sync.
type SyncResult struct {
	Total  int `json:"total"`
	Synced int `json:"synced"`
	Failed int `json:"failed"`
}

// SyncDirectory upserts every directory user. A failing user is logged and
// skipped. Roles are never changed.
func (r *Resolver) SyncDirectory(ctx context.Context) (SyncResult, error) {
	if r.directory == nil || !r.directory.Configured() {
		return SyncResult{}, directory.ErrNotConfigured
	}
	profiles, err := r.directory.ListUsers(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list directory users: %w", err)
	}
	res := SyncResult{Total: len(profiles)}
	for _, prof := range profiles {
		if prof.ID == "" && prof.Email == "" {
			res.Failed++
			continue
		}
		if _, err := r.syncProfile(ctx, prof); err != nil {
			r.logger.Warn(ctx, "sync user failed", "user_id", prof.ID, "error", err)
			res.Failed++
			continue
		}
		res.Synced++
	}
	r.logger.Info(ctx, "directory sync finished", "total", res.Total, "synced", res.Synced, "failed", res.Failed)
	return res, nil
}

// syncProfile stores one directory profile. A profile without a platform id
// is matched by email so it does not shadow a user already stored under
// their real id.
func (r *Resolver) syncProfile(ctx context.Context, prof directory.Profile) (store.User, error) {
	p := PatchFromProfile(prof)
	if prof.ID == "" {
		u, err := r.store.FindUser(ctx, "", prof.Email)
		switch {
		case err == nil:
			return r.reconcile(ctx, u, p)
		case !errors.Is(err, store.ErrNotFound):
			return store.User{}, fmt.Errorf("find user by email: %w", err)
		}
	}
	return r.upsert(ctx, p)
}
