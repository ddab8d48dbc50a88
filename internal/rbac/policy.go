package rbac

import "errors"

var (
	ErrForbidden  = errors.New("permission denied")
	ErrLocked     = errors.New("note is locked by checker signature")
	ErrLastMaster = errors.New("cannot remove the last master")
)

// Subject is the acting user as seen by the policy.
type Subject struct {
	UserID       string
	DepartmentID int64
	Role         Role
}

// Note carries the note attributes the policy needs.
type Note struct {
	WriterID           string
	WriterDepartmentID int64
	CheckerSigned      bool
}

type ScopeKind int

const (
	ScopeOwn ScopeKind = iota
	ScopeDepartment
	ScopeAll
)

// Scope is the set of notes a subject may read, expressed as a filter.
type Scope struct {
	Kind         ScopeKind
	UserID       string
	DepartmentID int64
}

// VisibleNotes returns the read scope of s. A Leader with no department
// falls back to their own notes.
func VisibleNotes(s Subject) Scope {
	switch {
	case Can(s.Role, ActionViewAll):
		return Scope{Kind: ScopeAll}
	case s.Role == RoleLeader && s.DepartmentID != 0:
		return Scope{Kind: ScopeDepartment, DepartmentID: s.DepartmentID}
	default:
		return Scope{Kind: ScopeOwn, UserID: s.UserID}
	}
}

func (sc Scope) Allows(n Note) bool {
	switch sc.Kind {
	case ScopeAll:
		return true
	case ScopeDepartment:
		return n.WriterDepartmentID != 0 && n.WriterDepartmentID == sc.DepartmentID
	default:
		return sc.UserID != "" && n.WriterID == sc.UserID
	}
}

func CanView(s Subject, n Note) bool {
	return VisibleNotes(s).Allows(n)
}

func CanEditContent(s Subject, n Note, adminMode bool) bool {
	return CheckEdit(s, n, adminMode) == nil
}

// CheckEdit classifies a content edit: nil, ErrForbidden or ErrLocked.
func CheckEdit(s Subject, n Note, adminMode bool) error {
	if adminMode {
		if !Can(s.Role, ActionAdminEdit) {
			return ErrForbidden
		}
		return nil
	}
	if s.UserID == "" || s.UserID != n.WriterID {
		return ErrForbidden
	}
	if n.CheckerSigned {
		return ErrLocked
	}
	return nil
}

// CanMutateSchedulingFields governs record date, year, week and serial edits.
func CanMutateSchedulingFields(s Subject, adminMode bool) bool {
	return adminMode && Can(s.Role, ActionAdminEdit)
}

func CanSign(s Subject) bool {
	return Can(s.Role, ActionSign)
}

// CanProxySign reports whether actor may apply delegate's stored signature.
func CanProxySign(actor, delegate Subject) bool {
	return Can(actor.Role, ActionProxySign) && Can(delegate.Role, ActionSign)
}

// CanMutateRole checks a role change of a user currently holding current.
// masters is the number of users holding RoleMaster right now.
func CanMutateRole(actor Subject, current, next Role, masters int) error {
	if !Can(actor.Role, ActionManageRoles) {
		return ErrForbidden
	}
	if current == RoleMaster && next != RoleMaster && masters <= 1 {
		return ErrLastMaster
	}
	return nil
}

// CheckDelete allows the writer on an unlocked note and Leader+ on any note.
func CheckDelete(s Subject, n Note) error {
	if Can(s.Role, ActionOverrideDel) {
		return nil
	}
	if s.UserID == "" || s.UserID != n.WriterID {
		return ErrForbidden
	}
	if n.CheckerSigned {
		return ErrLocked
	}
	return nil
}

func CanListUsers(s Subject) bool {
	return Can(s.Role, ActionListUsers)
}
