// Package policy implements the field-level access-control and lifecycle
// pipeline used by the Celerix Guard. An Entity declares, per attribute,
// who may read or write it, how validation and computed-value derivation
// are ordered, and which fields are required at creation time.
package policy

import "slices"

// AdminGroup is the elevated group whose members resolve to RoleAdministrator.
const AdminGroup = "administrators"

// Role is the resolved relationship between an acting principal and a
// target record. The set is closed; tables are validated against it at
// startup so a misspelled role cannot silently open or close a field.
type Role uint8

const (
	// RoleUnauthorized is an unauthenticated caller. It is only ever
	// consulted for creation (public signup) since there is no record
	// to compare an identity against.
	RoleUnauthorized Role = iota
	// RoleOther is any authenticated principal that is neither the
	// record's owner nor an administrator.
	RoleOther
	// RoleAdministrator is a principal holding the AdminGroup membership.
	RoleAdministrator
	// RoleSelf is the record's own identity.
	RoleSelf
)

// Roles lists every member of the closed role set.
var Roles = []Role{RoleUnauthorized, RoleOther, RoleAdministrator, RoleSelf}

func (r Role) String() string {
	switch r {
	case RoleSelf:
		return "self"
	case RoleAdministrator:
		return "administrator"
	case RoleOther:
		return "other"
	default:
		return "unauthorized"
	}
}

// Action is an operation class an access table can grant per role.
type Action uint8

const (
	ActionCreate Action = iota
	ActionRead
	ActionReadAll
	ActionUpdate
	ActionDelete
)

// Actions lists every member of the closed action set.
var Actions = []Action{ActionCreate, ActionRead, ActionReadAll, ActionUpdate, ActionDelete}

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionRead:
		return "read"
	case ActionReadAll:
		return "read_all"
	case ActionUpdate:
		return "update"
	default:
		return "delete"
	}
}

// Principal is the acting identity for a request, supplied by the
// external auth/session collaborator.
type Principal struct {
	ID            string
	Groups        []string
	Authenticated bool
}

// IsAdmin reports whether the principal holds the elevated group membership.
func (p Principal) IsAdmin() bool {
	return slices.Contains(p.Groups, AdminGroup)
}

// ResolveRole determines the principal's role against a target record.
// Precedence: self, then administrator, then other. A nil record (the
// creation path) can never resolve to self.
func ResolveRole(p Principal, rec *Record) Role {
	if !p.Authenticated {
		return RoleUnauthorized
	}
	if rec != nil && p.ID != "" && p.ID == rec.ID {
		return RoleSelf
	}
	if p.IsAdmin() {
		return RoleAdministrator
	}
	return RoleOther
}

// RoleSet is the set of roles granted some capability. A genuinely empty
// set means no caller ever holds the capability, regardless of role.
type RoleSet []Role

// Has reports whether the role is a member of the set.
func (s RoleSet) Has(r Role) bool {
	return slices.Contains(s, r)
}

// Record is one instance of a governed entity: an identifier plus the
// attribute values the entity's descriptors govern.
type Record struct {
	ID    string
	Attrs map[FieldName]any
}

// NewRecord returns an empty record with the given identifier.
func NewRecord(id string) *Record {
	return &Record{ID: id, Attrs: make(map[FieldName]any)}
}

// Get returns the attribute value and whether a non-nil value is present.
func (r *Record) Get(name FieldName) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.Attrs[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the attribute as a string, or "" when absent or not a string.
func (r *Record) String(name FieldName) string {
	v, _ := r.Get(name)
	s, _ := v.(string)
	return s
}

// Clone returns a shallow copy of the record with its own attribute map,
// so a pipeline run can stage values without touching the original.
func (r *Record) Clone() *Record {
	if r == nil {
		return NewRecord("")
	}
	attrs := make(map[FieldName]any, len(r.Attrs))
	for k, v := range r.Attrs {
		attrs[k] = v
	}
	return &Record{ID: r.ID, Attrs: attrs}
}
