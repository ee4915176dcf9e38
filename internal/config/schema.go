package config

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-dca/internal/backtest/commission_fee"
	"github.com/rxtech-lab/argo-dca/internal/strategy"
)

// GenerateSchema generates a JSON schema for the config file.
func (c *Config) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch {
			case t.String() == "time.Duration":
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|ms|s|m|h))+$`,
					Description: "Go duration such as 10s, 5m or 24h",
				}
			case strings.Contains(t.String(), "commission_fee.Broker"):
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllBrokers,
				}
			case t.String() == "types.Timeframe":
				return &jsonschema.Schema{
					Type:    "string",
					Pattern: `^[0-9]+[mhdw]$`,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "argo-dca-config"
	schema.Description = "Configuration schema for the argo-dca worker, backtest and optimizer"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *Config) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// ParamDoc describes one strategy parameter for documentation output.
type ParamDoc struct {
	Name        string   `json:"name" yaml:"name"`
	Kind        string   `json:"kind" yaml:"kind"`
	Default     any      `json:"default" yaml:"default"`
	Min         float64  `json:"min,omitempty" yaml:"min,omitempty"`
	Max         float64  `json:"max,omitempty" yaml:"max,omitempty"`
	Choices     []string `json:"choices,omitempty" yaml:"choices,omitempty"`
	Tunable     bool     `json:"tunable" yaml:"tunable"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// StrategyDocs lists the parameters of every registered strategy family.
func StrategyDocs() map[string][]ParamDoc {
	docs := make(map[string][]ParamDoc)

	for _, name := range strategy.Names() {
		specs, err := strategy.Specs(name)
		if err != nil {
			continue
		}

		for _, s := range specs {
			docs[name] = append(docs[name], ParamDoc{
				Name:        s.Name,
				Kind:        string(s.Kind),
				Default:     s.Default,
				Min:         s.Min,
				Max:         s.Max,
				Choices:     s.Choices,
				Tunable:     s.Tunable(),
				Description: s.Description,
			})
		}
	}

	return docs
}
