package policy

import (
	"fmt"
	"slices"
)

// AccessTable holds the per-entity permission tables. Actions gates whole
// operation classes per role; Get and Set gate individual attributes for
// read visibility and write eligibility. An attribute absent from Get for
// a role is never surfaced to that role; an attribute absent from Set
// fails the entire write-set for that role (fail closed).
type AccessTable struct {
	Actions map[Role][]Action
	Get     map[FieldName]RoleSet
	Set     map[FieldName]RoleSet
}

// Can reports whether the role is granted the action at the entity level.
func (t AccessTable) Can(role Role, action Action) bool {
	return slices.Contains(t.Actions[role], action)
}

// Entity binds a named record type to its field descriptors, access
// tables and rate declaration. Fields are evaluated in declared order.
type Entity struct {
	Name       string
	Collection string
	Fields     []*Descriptor
	Access     AccessTable
	Rate       RatePolicy

	byName map[FieldName]*Descriptor
}

// Field returns the descriptor for the named attribute, or nil.
func (e *Entity) Field(name FieldName) *Descriptor {
	if e.byName == nil {
		e.index()
	}
	return e.byName[name]
}

func (e *Entity) index() {
	e.byName = make(map[FieldName]*Descriptor, len(e.Fields))
	for _, d := range e.Fields {
		e.byName[d.Name] = d
	}
}

// Validate checks the entity declaration once at startup: unique field
// names, and access tables that only reference declared fields and
// members of the closed role set.
func (e *Entity) Validate() error {
	e.index()
	if len(e.byName) != len(e.Fields) {
		return fmt.Errorf("entity %s: duplicate field declaration", e.Name)
	}
	for role := range e.Access.Actions {
		if !slices.Contains(Roles, role) {
			return fmt.Errorf("entity %s: unknown role %d in action table", e.Name, role)
		}
	}
	for tableName, table := range map[string]map[FieldName]RoleSet{"get": e.Access.Get, "set": e.Access.Set} {
		for name, roles := range table {
			if e.byName[name] == nil {
				return fmt.Errorf("entity %s: %s table references undeclared field %q", e.Name, tableName, name)
			}
			for _, r := range roles {
				if !slices.Contains(Roles, r) {
					return fmt.Errorf("entity %s: unknown role %d in %s table for %q", e.Name, r, tableName, name)
				}
			}
		}
	}
	return nil
}

// Authorize checks the entity-level action grant for the role.
func (e *Entity) Authorize(role Role, action Action) error {
	if !e.Access.Can(role, action) {
		return &AuthorizationError{Role: role, Action: action}
	}
	return nil
}

// VisibleFields returns the attributes the role may read, in declared
// order. Attributes not listed for the role are dropped, never erroring.
func (e *Entity) VisibleFields(role Role) []FieldName {
	var out []FieldName
	for _, d := range e.Fields {
		if e.Access.Get[d.Name].Has(role) {
			out = append(out, d.Name)
		}
	}
	return out
}

// View returns the subset of the record's attributes visible to the role.
func (e *Entity) View(rec *Record, role Role) map[FieldName]any {
	out := make(map[FieldName]any)
	for _, name := range e.VisibleFields(role) {
		if v, ok := rec.Get(name); ok {
			out[name] = v
		}
	}
	return out
}

// AuthorizeWrite checks every attribute of the write-set against the set
// table for the role and action. Any disallowed or undeclared attribute
// fails the whole request rather than being silently dropped.
func (e *Entity) AuthorizeWrite(role Role, action Action, writeSet map[FieldName]any) error {
	if err := e.Authorize(role, action); err != nil {
		return err
	}
	for _, d := range e.Fields {
		if _, ok := writeSet[d.Name]; !ok {
			continue
		}
		if !e.Access.Set[d.Name].Has(role) {
			return &AuthorizationError{Attr: d.Name, Role: role, Action: action}
		}
	}
	for name := range writeSet {
		if e.Field(name) == nil {
			return &AuthorizationError{Attr: name, Role: role, Action: action}
		}
	}
	return nil
}
