package llm

import (
	"fmt"
	"strings"
)

// SchemaInstruction renders the system directive that asks for JSON matching
// schema and nothing else.
func SchemaInstruction(schema *Schema) string {
	return "You must respond with valid JSON that matches this schema:\n" +
		schema.String() +
		"\n\nRespond ONLY with valid JSON. No other text."
}

// WithSchemaInstruction returns a new message list whose first and only
// system message carries the caller's system content followed by the schema
// directive. Non-system messages keep their relative order.
func WithSchemaInstruction(msgs []Message, schema *Schema) []Message {
	instruction := SchemaInstruction(schema)

	var system []string
	rest := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			if msg.Content != "" {
				system = append(system, msg.Content)
			}
			continue
		}
		rest = append(rest, msg)
	}

	content := instruction
	if len(system) > 0 {
		content = strings.Join(system, "\n\n") + "\n\n" + instruction
	}
	return append([]Message{SystemMessage(content)}, rest...)
}

// ValidateJSONContent parses content and checks it against schema. Any
// failure is reported as a validation *Error.
func ValidateJSONContent(provider, content string, schema *Schema) error {
	if schema == nil {
		return nil
	}
	if _, err := schema.ValidateJSON([]byte(content)); err != nil {
		return NewValidationError(provider, fmt.Sprintf("%s JSON completion failed: invalid JSON response", provider), err)
	}
	return nil
}
