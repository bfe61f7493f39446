// Package intents holds the catalog of intents the theater agent understands:
// the parameter schemas offered to the model as tools, and the plain-text
// intents recognized when the model declines to call one.
package intents

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// FieldType is the JSON-schema type of an intent parameter.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
)

// Field describes one parameter (slot) of an intent.
type Field struct {
	Name        string    `yaml:"name" json:"name"`
	Type        FieldType `yaml:"type" json:"type"`
	Required    bool      `yaml:"required" json:"required"`
	Description string    `yaml:"description" json:"description"`
}

// Intent is a named parameter schema the model can invoke.
type Intent struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description" json:"description"`
	Fields      []Field `yaml:"fields" json:"fields"`
}

// Catalog is the full set of intents known to the agent.
type Catalog struct {
	Intents       []Intent `yaml:"intents"`
	SimpleIntents []string `yaml:"simple_intents"`
	UnknownIntent string   `yaml:"unknown_intent"`

	byName map[string]int
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and checks a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if c.UnknownIntent == "" {
		c.UnknownIntent = "unknown_or_complex_reply"
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	if len(c.Intents) == 0 {
		return fmt.Errorf("catalog has no intents")
	}

	c.byName = make(map[string]int, len(c.Intents))
	for i, intent := range c.Intents {
		if intent.Name == "" {
			return fmt.Errorf("intent %d has no name", i)
		}
		if _, dup := c.byName[intent.Name]; dup {
			return fmt.Errorf("duplicate intent %q", intent.Name)
		}

		seen := make(map[string]bool, len(intent.Fields))
		for _, f := range intent.Fields {
			if f.Name == "" {
				return fmt.Errorf("intent %s: field with no name", intent.Name)
			}
			if seen[f.Name] {
				return fmt.Errorf("intent %s: duplicate field %q", intent.Name, f.Name)
			}
			seen[f.Name] = true

			switch f.Type {
			case FieldString, FieldInteger:
			default:
				return fmt.Errorf("intent %s: field %s has unsupported type %q", intent.Name, f.Name, f.Type)
			}
		}
		c.byName[intent.Name] = i
	}

	for i, s := range c.SimpleIntents {
		c.SimpleIntents[i] = strings.ToLower(strings.TrimSpace(s))
	}
	return nil
}

// Names returns the intent names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Intents))
	for _, intent := range c.Intents {
		names = append(names, intent.Name)
	}
	return names
}

// ToolNames returns the intent names joined for use in the prompt.
func (c *Catalog) ToolNames() string {
	return strings.Join(c.Names(), ", ")
}

// Lookup finds an intent by name.
func (c *Catalog) Lookup(name string) (Intent, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Intent{}, false
	}
	return c.Intents[i], true
}

// RequiredFields lists the names of required parameters.
func (i Intent) RequiredFields() []string {
	var required []string
	for _, f := range i.Fields {
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return required
}

// JSONSchema renders the intent as a JSON-schema object.
func (i Intent) JSONSchema() map[string]any {
	properties := make(map[string]any, len(i.Fields))
	for _, f := range i.Fields {
		properties[f.Name] = map[string]any{
			"type":        string(f.Type),
			"description": f.Description,
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if required := i.RequiredFields(); len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// Tools converts the catalog into tool definitions for the model.
func (c *Catalog) Tools() []llms.Tool {
	tools := make([]llms.Tool, 0, len(c.Intents))
	for _, intent := range c.Intents {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        intent.Name,
				Description: intent.Description,
				Parameters:  intent.JSONSchema(),
			},
		})
	}
	return tools
}

// MatchSimpleIntent classifies a plain-text model reply. It returns the
// first simple intent, in catalog order, contained in the normalized text,
// or the unknown intent and false.
func (c *Catalog) MatchSimpleIntent(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for _, intent := range c.SimpleIntents {
		if intent != "" && strings.Contains(normalized, intent) {
			return intent, true
		}
	}
	return c.UnknownIntent, false
}
