package rbac

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is a closed, ordered set. The zero value is not a valid role.
type Role int

const (
	RoleStaff Role = iota + 1
	RoleLeader
	RoleExecutive
	RoleAdmin
	RoleMaster
)

var roleNames = [...]string{
	RoleStaff:     "staff",
	RoleLeader:    "leader",
	RoleExecutive: "executive",
	RoleAdmin:     "admin",
	RoleMaster:    "master",
}

// Roles lists every role from lowest to highest.
func Roles() []Role {
	return []Role{RoleStaff, RoleLeader, RoleExecutive, RoleAdmin, RoleMaster}
}

func (r Role) Valid() bool {
	return r >= RoleStaff && r <= RoleMaster
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return r.Valid() && r >= min
}

func ParseRole(value string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	for _, r := range Roles() {
		if roleNames[r] == name {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown role %q", value)
}

// Normalize maps unknown or empty values to RoleStaff.
func Normalize(value string) Role {
	r, err := ParseRole(value)
	if err != nil {
		return RoleStaff
	}
	return r
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Scan reads the role from its text column.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		*r = Normalize(v)
	case []byte:
		*r = Normalize(string(v))
	case nil:
		*r = RoleStaff
	default:
		return fmt.Errorf("scan role: unsupported type %T", src)
	}
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid role %d", int(r))
	}
	return r.String(), nil
}

type Action string

const (
	ActionWrite       Action = "write"
	ActionSign        Action = "sign"
	ActionAdminEdit   Action = "admin_edit"
	ActionOverrideDel Action = "override_delete"
	ActionListUsers   Action = "list_users"
	ActionViewAll     Action = "view_all"
	ActionProxySign   Action = "proxy_sign"
	ActionManageRoles Action = "manage_roles"
)

var minimumRole = map[Action]Role{
	ActionWrite:       RoleStaff,
	ActionSign:        RoleLeader,
	ActionAdminEdit:   RoleLeader,
	ActionOverrideDel: RoleLeader,
	ActionListUsers:   RoleLeader,
	ActionViewAll:     RoleExecutive,
	ActionProxySign:   RoleMaster,
	ActionManageRoles: RoleMaster,
}

func Can(role Role, action Action) bool {
	min, ok := minimumRole[action]
	if !ok {
		return false
	}
	return role.AtLeast(min)
}
