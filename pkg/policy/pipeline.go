package policy

import "fmt"

// Run executes the validate/compute pipeline for an incoming write-set
// against the record's current state. Fields are processed in declared
// order; computers may read earlier fields' already-finalized values
// through the working record. The first failure aborts the whole run and
// nothing is applied to the stored record (all-or-nothing per write-set).
//
// On creation every declared field is processed so computers can fill
// defaults and the required check can run; on update only fields present
// in the write-set are touched. The returned map holds the final values
// to apply atomically.
func (e *Entity) Run(rec *Record, writeSet map[FieldName]any, isCreation bool) (map[FieldName]any, error) {
	if e.byName == nil {
		e.index()
	}
	work := rec.Clone()
	final := make(map[FieldName]any)

	for _, d := range e.Fields {
		raw, supplied := writeSet[d.Name]
		if !supplied && !isCreation {
			continue
		}
		if supplied {
			work.Attrs[d.Name] = raw
		}

		runCompute := !d.Compute.IsZero()
		if runCompute && d.Compute.whenEmpty {
			if _, has := work.Get(d.Name); has {
				runCompute = false
			}
		}

		var out any
		computed := false

		if d.ValidateBeforeCompute {
			// The validator observes the raw proposed value, never the
			// computed one.
			if supplied {
				if err := e.validate(d, work, raw); err != nil {
					return nil, err
				}
			}
			if runCompute {
				v, err := d.Compute.fn(work)
				if err != nil {
					return nil, &ValidationError{Attr: d.Name, Err: err}
				}
				out, computed = v, true
			} else if supplied {
				out = raw
			}
		} else {
			if runCompute {
				v, err := d.Compute.fn(work)
				if err != nil {
					return nil, &ValidationError{Attr: d.Name, Err: err}
				}
				out, computed = v, true
			} else if supplied {
				out = raw
			}
			if supplied || computed {
				if err := e.validate(d, work, out); err != nil {
					return nil, err
				}
			}
		}

		if !supplied && !computed {
			continue
		}
		if d.Type != TypeAny && out != nil {
			trusted := computed && d.ComputeOverridesType
			if !trusted && !d.Type.accepts(out) {
				return nil, &ValidationError{Attr: d.Name, Err: fmt.Errorf("expected %s value", d.Type)}
			}
		}
		work.Attrs[d.Name] = out
		final[d.Name] = out
	}

	if isCreation {
		for _, d := range e.Fields {
			if !d.Required {
				continue
			}
			if _, ok := work.Get(d.Name); !ok {
				return nil, &MissingFieldError{Attr: d.Name}
			}
		}
	}

	return final, nil
}

func (e *Entity) validate(d *Descriptor, work *Record, v any) error {
	if d.Validator == nil {
		return nil
	}
	if err := d.Validator(work, v); err != nil {
		return &ValidationError{Attr: d.Name, Err: err}
	}
	return nil
}
