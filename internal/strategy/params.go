package strategy

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// Kind is the value type of a parameter.
type Kind string

const (
	KindInt    Kind = "int"
	KindFloat  Kind = "float"
	KindBool   Kind = "bool"
	KindChoice Kind = "choice"
)

// MutateFunc proposes a nudged value for the optimizer.
type MutateFunc func(spec ParamSpec, current any, rng *rand.Rand) any

// ParamSpec is the static description of one strategy parameter.
type ParamSpec struct {
	Name        string
	Kind        Kind
	Default     any
	Min         float64
	Max         float64
	Step        float64
	Choices     []string
	Description string
	// Fixed parameters are never mutated by the optimizer.
	Fixed  bool
	Mutate MutateFunc
}

// Tunable reports whether the optimizer may mutate this parameter.
func (s ParamSpec) Tunable() bool {
	if s.Fixed {
		return false
	}

	return s.Kind == KindInt || s.Kind == KindFloat || s.Kind == KindBool
}

// MutateValue returns the spec's own mutation of current.
func (s ParamSpec) MutateValue(current any, rng *rand.Rand) any {
	if s.Mutate != nil {
		return s.Mutate(s, current, rng)
	}

	return defaultMutate(s, current, rng)
}

// defaultMutate moves numbers one step up or down inside [Min, Max], flips
// booleans and picks another choice.
func defaultMutate(s ParamSpec, current any, rng *rand.Rand) any {
	switch s.Kind {
	case KindBool:
		b, _ := current.(bool)

		return !b
	case KindChoice:
		str, _ := current.(string)

		others := make([]string, 0, len(s.Choices))
		for _, c := range s.Choices {
			if c != str {
				others = append(others, c)
			}
		}

		if len(others) == 0 {
			return str
		}

		return others[rng.IntN(len(others))]
	case KindInt, KindFloat:
		value, _ := toFloat(current)

		step := s.Step
		if step <= 0 {
			step = 1
		}

		next := value + step
		if rng.IntN(2) == 0 {
			next = value - step
		}

		if next < s.Min || next > s.Max {
			next = value - (next - value)
		}

		next = math.Max(s.Min, math.Min(s.Max, next))

		if s.Kind == KindInt {
			return int(math.Round(next))
		}

		return math.Round(next*1e8) / 1e8
	default:
		return current
	}
}

// Params are resolved parameter values keyed by name.
type Params map[string]any

// Float returns a numeric parameter as float64.
func (p Params) Float(name string) float64 {
	v, _ := toFloat(p[name])

	return v
}

// Int returns a numeric parameter as int.
func (p Params) Int(name string) int {
	v, _ := toFloat(p[name])

	return int(math.Round(v))
}

// Bool returns a boolean parameter.
func (p Params) Bool(name string) bool {
	b, _ := p[name].(bool)

	return b
}

// String returns a choice parameter.
func (p Params) String(name string) string {
	s, _ := p[name].(string)

	return s
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// ResolveParams merges raw configuration over the defaults and validates the result.
// Keys that no spec declares are rejected.
func ResolveParams(specs []ParamSpec, raw map[string]any) (Params, error) {
	known := make(map[string]ParamSpec, len(specs))
	for _, s := range specs {
		known[s.Name] = s
	}

	for key := range raw {
		if _, ok := known[key]; !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown parameter %q", key)
		}
	}

	params := make(Params, len(specs))

	for _, s := range specs {
		value, ok := raw[s.Name]
		if !ok {
			value = s.Default
		}

		normalized, err := normalize(s, value)
		if err != nil {
			return nil, err
		}

		params[s.Name] = normalized
	}

	return params, nil
}

func normalize(s ParamSpec, value any) (any, error) {
	switch s.Kind {
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %s must be a boolean, got %T", s.Name, value)
		}

		return b, nil
	case KindChoice:
		str, ok := value.(string)
		if !ok || !slices.Contains(s.Choices, str) {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %s must be one of %v, got %v", s.Name, s.Choices, value)
		}

		return str, nil
	case KindInt, KindFloat:
		f, ok := toFloat(value)
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %s must be numeric, got %T", s.Name, value)
		}

		if f < s.Min || f > s.Max {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %s=%v outside [%v, %v]", s.Name, f, s.Min, s.Max)
		}

		if s.Kind == KindInt {
			if f != math.Trunc(f) {
				return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %s must be an integer, got %v", s.Name, f)
			}

			return int(f), nil
		}

		return f, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %s has unknown kind %s", s.Name, s.Kind)
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// FormatValue renders a parameter value the way it appears in config files.
func FormatValue(value any) string {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
