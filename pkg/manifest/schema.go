package manifest

import (
	"errors"
	"fmt"
	"slices"
)

// FieldKind is the value type of a configuration field.
type FieldKind string

const (
	KindInt    FieldKind = "int"
	KindBool   FieldKind = "bool"
	KindString FieldKind = "string"
)

// Field describes a single typed configuration value of a feature.
type Field struct {
	Name     string
	Kind     FieldKind
	Required bool
	// Enum restricts string fields to a fixed set of values. Ignored for other kinds.
	Enum []string
}

// ConfigSchema is the typed configuration accepted by a feature's registry entry.
// A nil schema accepts only an empty configuration.
type ConfigSchema []Field

// Validate checks cfg against the schema. Unknown fields are rejected.
func (s ConfigSchema) Validate(cfg map[string]any) error {
	var errs []error

	for name := range cfg {
		if !slices.ContainsFunc(s, func(f Field) bool { return f.Name == name }) {
			errs = append(errs, fmt.Errorf("unknown field %q", name))
		}
	}

	for _, f := range s {
		v, ok := cfg[f.Name]
		if !ok {
			if f.Required {
				errs = append(errs, fmt.Errorf("missing required field %q", f.Name))
			}
			continue
		}
		if err := f.check(v); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}

func (f Field) check(v any) error {
	switch f.Kind {
	case KindInt:
		switch n := v.(type) {
		case int, int32, int64:
			return nil
		case float64:
			// JSON and YAML decoders hand integers over as float64.
			if n == float64(int64(n)) {
				return nil
			}
		}
		return fmt.Errorf("field %q must be an integer", f.Name)
	case KindBool:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("field %q must be a boolean", f.Name)
		}
		return nil
	case KindString:
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("field %q must be a string", f.Name)
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, s) {
			return fmt.Errorf("field %q must be one of %v", f.Name, f.Enum)
		}
		return nil
	default:
		return fmt.Errorf("field %q has unsupported kind %q", f.Name, f.Kind)
	}
}
