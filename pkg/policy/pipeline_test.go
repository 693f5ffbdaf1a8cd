package policy

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEntity(fields ...*Descriptor) *Entity {
	e := &Entity{Name: "thing", Collection: "things", Fields: fields}
	e.Access = AccessTable{
		Actions: map[Role][]Action{},
		Get:     map[FieldName]RoleSet{},
		Set:     map[FieldName]RoleSet{},
	}
	return e
}

func TestRunValidatorSeesRawBeforeCompute(t *testing.T) {
	var seen any
	e := testEntity(&Descriptor{
		Name: "color",
		Validator: func(_ *Record, v any) error {
			seen = v
			return nil
		},
		Compute: ComputeAlways(func(_ *Record) (any, error) {
			return "computed", nil
		}),
		ValidateBeforeCompute: true,
	})

	final, err := e.Run(nil, map[FieldName]any{"color": "raw"}, false)
	require.NoError(t, err)
	assert.Equal(t, "raw", seen, "validator must observe the raw proposed value")
	assert.Equal(t, "computed", final["color"])
}

func TestRunValidatorSeesComputedValue(t *testing.T) {
	var seen any
	e := testEntity(&Descriptor{
		Name: "color",
		Validator: func(_ *Record, v any) error {
			seen = v
			return nil
		},
		Compute: ComputeAlways(func(_ *Record) (any, error) {
			return "computed", nil
		}),
	})

	_, err := e.Run(nil, map[FieldName]any{"color": "raw"}, false)
	require.NoError(t, err)
	assert.Equal(t, "computed", seen, "validator must observe the computed value")
}

func TestRunComputeWhenEmpty(t *testing.T) {
	e := testEntity(&Descriptor{
		Name: "tier",
		Compute: ComputeWhenEmpty(func(_ *Record) (any, error) {
			return "default", nil
		}),
	})

	// No value anywhere: the computer fills the default.
	final, err := e.Run(nil, nil, true)
	require.NoError(t, err)
	assert.Equal(t, "default", final["tier"])

	// A supplied value wins.
	final, err = e.Run(nil, map[FieldName]any{"tier": "gold"}, true)
	require.NoError(t, err)
	assert.Equal(t, "gold", final["tier"])

	// An existing value on the record also suppresses the computer.
	rec := NewRecord("r1")
	rec.Attrs["tier"] = "silver"
	final, err = e.Run(rec, map[FieldName]any{}, true)
	require.NoError(t, err)
	_, ok := final["tier"]
	assert.False(t, ok)
}

func TestRunMissingRequiredField(t *testing.T) {
	e := testEntity(
		&Descriptor{Name: "name", Required: true},
		&Descriptor{Name: "tier", Required: true, Compute: ComputeWhenEmpty(func(_ *Record) (any, error) {
			return "default", nil
		})},
	)

	// tier is satisfied by its computer; name is not.
	_, err := e.Run(nil, nil, true)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, FieldName("name"), missing.Attr)

	final, err := e.Run(nil, map[FieldName]any{"name": "a"}, true)
	require.NoError(t, err)
	assert.Equal(t, "default", final["tier"])

	// The required check only applies at creation.
	_, err = e.Run(NewRecord("r1"), map[FieldName]any{}, false)
	require.NoError(t, err)
}

func TestRunAbortsAtomicallyOnFailure(t *testing.T) {
	computed := false
	e := testEntity(
		&Descriptor{Name: "first", Validator: func(_ *Record, v any) error {
			return fmt.Errorf("nope")
		}},
		&Descriptor{Name: "second", Compute: ComputeAlways(func(_ *Record) (any, error) {
			computed = true
			return "x", nil
		})},
	)

	rec := NewRecord("r1")
	final, err := e.Run(rec, map[FieldName]any{"first": 1, "second": 2}, false)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldName("first"), ve.Attr)
	assert.Nil(t, final)
	assert.False(t, computed, "later fields must not run after an earlier failure")
	assert.Empty(t, rec.Attrs, "a rejected run must leave the record unchanged")
}

func TestRunDeclaredOrderVisibleToComputers(t *testing.T) {
	e := testEntity(
		&Descriptor{Name: "base", Type: TypeString},
		&Descriptor{Name: "derived", Compute: ComputeAlways(func(rec *Record) (any, error) {
			return strings.ToUpper(rec.String("base")), nil
		})},
	)

	final, err := e.Run(nil, map[FieldName]any{"base": "abc"}, false)
	require.NoError(t, err)
	assert.Equal(t, "ABC", final["derived"], "computers must see earlier fields' finalized values")
}

func TestRunTypeChecking(t *testing.T) {
	e := testEntity(&Descriptor{Name: "name", Type: TypeString})

	_, err := e.Run(nil, map[FieldName]any{"name": 42}, false)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, FieldName("name"), ve.Attr)

	_, err = e.Run(nil, map[FieldName]any{"name": "ok"}, false)
	require.NoError(t, err)
}

func TestRunComputeOverridesType(t *testing.T) {
	stamp := func(_ *Record) (any, error) { return "2026-01-01T00:00:00Z", nil }

	strict := testEntity(&Descriptor{Name: "when", Type: TypeTime})
	_, err := strict.Run(nil, map[FieldName]any{"when": 12345}, false)
	require.Error(t, err)

	trusted := testEntity(&Descriptor{
		Name:                 "when",
		Type:                 TypeTime,
		Compute:              ComputeAlways(stamp),
		ComputeOverridesType: true,
	})
	final, err := trusted.Run(nil, map[FieldName]any{"when": 12345}, false)
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", final["when"])
}

func TestRunPassThroughField(t *testing.T) {
	e := testEntity(&Descriptor{Name: "note"})
	final, err := e.Run(nil, map[FieldName]any{"note": "hello"}, false)
	require.NoError(t, err)
	assert.Equal(t, "hello", final["note"])
}

func TestRunUpdateSkipsUntouchedFields(t *testing.T) {
	calls := 0
	e := testEntity(&Descriptor{Name: "tracked", Compute: ComputeAlways(func(_ *Record) (any, error) {
		calls++
		return "x", nil
	})})

	_, err := e.Run(NewRecord("r1"), map[FieldName]any{}, false)
	require.NoError(t, err)
	assert.Zero(t, calls, "fields outside the write-set must not run on update")
}

func TestValidationErrorWrapsSentinels(t *testing.T) {
	e := testEntity(&Descriptor{Name: "key", Validator: func(_ *Record, v any) error {
		return ErrInvalidKey
	}})

	_, err := e.Run(nil, map[FieldName]any{"key": "bad"}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidKey))
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}
