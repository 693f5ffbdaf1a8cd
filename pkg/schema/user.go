// Package schema declares the governed entity types of the Celerix Guard.
package schema

import (
	"fmt"
	"time"

	"github.com/celerix-dev/celerix-guard/internal/vault"
	"github.com/celerix-dev/celerix-guard/pkg/policy"
)

// Attribute names of the user entity.
const (
	FieldUsername policy.FieldName = "username"
	FieldPassword policy.FieldName = "password"
	FieldEmail    policy.FieldName = "email"
	FieldSecret   policy.FieldName = "secret"
	FieldKey      policy.FieldName = "key"
	FieldGroups   policy.FieldName = "groups"
	FieldCreated  policy.FieldName = "created"
)

// KeyNone is the literal no-op marker some clients send instead of
// omitting the key. It is accepted as "no key supplied", exactly like an
// absent value, and nothing else.
const KeyNone = "None"

// DefaultGroup is the group every new user starts in.
const DefaultGroup = "users"

// UsersCollection is the document collection users are stored in.
const UsersCollection = "users"

// User builds the user entity: field descriptors in declared order, the
// access tables, and the rate declaration. The password and secret fields
// are write-only for everyone; groups are only visible to administrators.
func User() *policy.Entity {
	return &policy.Entity{
		Name:       "user",
		Collection: UsersCollection,
		Rate:       policy.RatePolicy{Limit: 10, Per: policy.PerSecond},
		Fields: []*policy.Descriptor{
			{Name: FieldUsername, Type: policy.TypeString, Required: true},
			{
				Name:                  FieldPassword,
				Type:                  policy.TypeString,
				Required:              true,
				Validator:             validatePassword,
				Compute:               policy.ComputeAlways(hashPassword),
				ValidateBeforeCompute: true,
			},
			{Name: FieldEmail, Type: policy.TypeString, Required: true},
			{Name: FieldSecret, Type: policy.TypeString},
			{Name: FieldKey, Validator: confirmKey},
			{
				Name:    FieldGroups,
				Type:    policy.TypeStringList,
				Compute: policy.ComputeWhenEmpty(defaultGroups),
			},
			{
				Name:                 FieldCreated,
				Type:                 policy.TypeTime,
				Compute:              policy.ComputeWhenEmpty(nowTimestamp),
				ComputeOverridesType: true,
			},
		},
		Access: policy.AccessTable{
			Actions: map[policy.Role][]policy.Action{
				policy.RoleSelf:          {policy.ActionRead, policy.ActionUpdate, policy.ActionDelete},
				policy.RoleAdministrator: {policy.ActionReadAll, policy.ActionRead, policy.ActionUpdate},
				policy.RoleOther:         {policy.ActionRead},
				policy.RoleUnauthorized:  {policy.ActionCreate},
			},
			Get: map[policy.FieldName]policy.RoleSet{
				FieldUsername: {policy.RoleSelf},
				FieldPassword: {},
				FieldGroups:   {policy.RoleAdministrator},
				FieldEmail:    {policy.RoleSelf, policy.RoleAdministrator},
				FieldSecret:   {},
				FieldKey:      {policy.RoleSelf},
			},
			Set: map[policy.FieldName]policy.RoleSet{
				FieldUsername: {policy.RoleSelf, policy.RoleAdministrator, policy.RoleUnauthorized},
				FieldPassword: {policy.RoleSelf, policy.RoleUnauthorized},
				FieldEmail:    {policy.RoleSelf, policy.RoleAdministrator, policy.RoleUnauthorized},
				FieldGroups:   {policy.RoleAdministrator},
				FieldSecret:   {},
				FieldKey:      {policy.RoleSelf},
			},
		},
	}
}

func validatePassword(_ *policy.Record, value any) error {
	pw, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string value")
	}
	if len(pw) < 8 {
		return fmt.Errorf("length must be at least 8 characters")
	}
	return nil
}

// hashPassword reads the staged password off the working record so the
// computer sees the value the pipeline just admitted.
func hashPassword(rec *policy.Record) (any, error) {
	pw := rec.String(FieldPassword)
	if pw == "" {
		return nil, nil
	}
	hashed, err := vault.HashPassword(pw)
	if err != nil {
		return nil, err
	}
	return hashed, nil
}

// confirmKey gates privileged confirmation. An absent value, an empty
// string, or the literal KeyNone marker is a no-op (deferred
// confirmation). Anything else must equal the digest of the record's
// current secret.
func confirmKey(rec *policy.Record, value any) error {
	if value == nil {
		return nil
	}
	key, ok := value.(string)
	if !ok {
		return fmt.Errorf("expected string value")
	}
	if key == "" || key == KeyNone {
		return nil
	}
	if key != vault.KeyDigest(rec.String(FieldSecret)) {
		return policy.ErrInvalidKey
	}
	return nil
}

func defaultGroups(_ *policy.Record) (any, error) {
	return []string{DefaultGroup}, nil
}

func nowTimestamp(_ *policy.Record) (any, error) {
	return time.Now().UTC(), nil
}
