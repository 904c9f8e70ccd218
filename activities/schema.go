package activities

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// validateJSON compiles schema (a JSON Schema document) and validates doc
// against it. A violation is reported as ErrMalformedResponse so callers
// never thread a raw, schema-invalid string through workflow state.
func validateJSON(schemaName string, schema []byte, doc []byte) error {
	var schemaDoc any
	if err := json.Unmarshal(schema, &schemaDoc); err != nil {
		return fmt.Errorf("activities: invalid schema %s: %w", schemaName, err)
	}
	var payloadDoc any
	if err := json.Unmarshal(doc, &payloadDoc); err != nil {
		return fmt.Errorf("%w: response is not valid JSON: %v", ErrMalformedResponse, err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaName, schemaDoc); err != nil {
		return fmt.Errorf("activities: add schema resource %s: %w", schemaName, err)
	}
	compiled, err := c.Compile(schemaName)
	if err != nil {
		return fmt.Errorf("activities: compile schema %s: %w", schemaName, err)
	}
	if err := compiled.Validate(payloadDoc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
