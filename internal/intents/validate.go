package intents

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
)

// ValidationResult describes how well extracted arguments fit an intent.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing,omitempty"`
	Issues  []string `json:"issues,omitempty"`
}

// ValidateArguments checks args against the named intent's schema.
// Missing required fields are reported separately from other issues.
func (c *Catalog) ValidateArguments(name string, args map[string]any) (*ValidationResult, error) {
	intent, ok := c.Lookup(name)
	if !ok {
		return nil, apperrors.NewUnknownIntentError(name)
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(intent.JSONSchema()),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate %s arguments: %w", name, err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				out.Missing = append(out.Missing, prop)
				continue
			}
		}
		out.Issues = append(out.Issues, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	sort.Strings(out.Missing)
	sort.Strings(out.Issues)
	return out, nil
}
