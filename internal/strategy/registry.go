package strategy

import (
	"sort"

	"github.com/rxtech-lab/argo-dca/pkg/errors"
)

// Family is one registered strategy family.
type Family struct {
	Name  string
	Specs func() []ParamSpec
	Build func(params Params) (Strategy, error)
}

var families = map[string]Family{
	NameDCA:         {Name: NameDCA, Specs: dcaSpecs, Build: newDCA},
	NameSingleEntry: {Name: NameSingleEntry, Specs: singleEntrySpecs, Build: newSingleEntry},
}

// Names returns the registered family names.
func Names() []string {
	names := make([]string, 0, len(families))
	for name := range families {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Specs returns the parameter specs of a family.
func Specs(name string) ([]ParamSpec, error) {
	family, ok := families[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy %q", name)
	}

	return family.Specs(), nil
}

// Spec returns one parameter spec of a family.
func Spec(name, param string) (ParamSpec, bool) {
	specs, err := Specs(name)
	if err != nil {
		return ParamSpec{}, false
	}

	for _, s := range specs {
		if s.Name == param {
			return s, true
		}
	}

	return ParamSpec{}, false
}

// New resolves raw parameters against the family's specs and builds the strategy.
func New(name string, raw map[string]any) (Strategy, error) {
	family, ok := families[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "unknown strategy %q", name)
	}

	params, err := ResolveParams(family.Specs(), raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "strategy %s", name)
	}

	return family.Build(params)
}

// MustNew is New for configurations known to be valid. It panics on error.
func MustNew(name string, raw map[string]any) Strategy {
	s, err := New(name, raw)
	if err != nil {
		panic(err)
	}

	return s
}
