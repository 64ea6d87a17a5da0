package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/invopop/jsonschema"
	jsv "github.com/santhosh-tekuri/jsonschema/v6"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Schema is a structural description of a JSON value. It is used both for
// tool parameters and for the expected shape of a JSON completion.
type Schema struct {
	name string
	root *jsonschema.Schema
	// source is the parsed document when the schema came from ParseSchema.
	source any

	once       sync.Once
	compiled   *jsv.Schema
	compileErr error
}

const schemaResource = "schema.json"

// newReflector inlines every type, the root included, so unnamed parameter
// types such as struct{} reflect without a definition to expand.
func newReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		DoNotReference:            true,
		Anonymous:                 true,
		AllowAdditionalProperties: true,
	}
}

// SchemaFor reflects a schema from the Go type T. Fields without omitempty
// are required; `jsonschema:"..."` tags add descriptions and constraints.
func SchemaFor[T any]() *Schema {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	root := newReflector().ReflectFromType(t)
	root.Version = ""
	return &Schema{name: t.Name(), root: root}
}

// ParseSchema builds a Schema from a JSON Schema document. The document is
// compiled up front so a malformed schema fails here rather than on first use.
func ParseSchema(data []byte) (*Schema, error) {
	var root jsonschema.Schema
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	source, err := jsv.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	s := &Schema{name: root.Title, root: &root, source: source}
	if _, err := s.compile(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSchema wraps an existing jsonschema document.
func NewSchema(root *jsonschema.Schema) *Schema {
	if root == nil {
		root = &jsonschema.Schema{Type: "object"}
	}
	return &Schema{name: root.Title, root: root}
}

// Property is one named field of an object schema built with ObjectSchema.
type Property struct {
	Name     string
	Schema   *jsonschema.Schema
	Required bool
}

// ObjectSchema builds an object schema whose properties keep the given
// order in the rendered document.
func ObjectSchema(title string, props ...Property) *Schema {
	properties := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, p := range props {
		properties.Set(p.Name, p.Schema)
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return NewSchema(&jsonschema.Schema{
		Title:      title,
		Type:       "object",
		Properties: properties,
		Required:   required,
	})
}

// Name returns the schema title or reflected type name, possibly empty.
func (s *Schema) Name() string {
	return s.name
}

// JSONSchema returns the underlying document. Changes made after the first
// validation are not seen by Validate.
func (s *Schema) JSONSchema() *jsonschema.Schema {
	return s.root
}

// String renders the schema as indented JSON.
func (s *Schema) String() string {
	b, err := json.MarshalIndent(s.root, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// Map renders the schema as a generic map suitable for a function
// declaration. Document-level keywords are dropped.
func (s *Schema) Map() map[string]any {
	out := map[string]any{}
	b, err := json.Marshal(s.root)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	delete(out, "$schema")
	delete(out, "$id")
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out
}

// ValidateJSON parses data and validates the result. The decoded value is
// returned on success.
func (s *Schema) ValidateJSON(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("content is not valid JSON: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return nil, err
	}
	return v, nil
}

// Validate checks a decoded JSON value (as produced by encoding/json into
// an interface{}) against the schema.
func (s *Schema) Validate(v any) error {
	compiled, err := s.compile()
	if err != nil {
		return err
	}
	if err := compiled.Validate(v); err != nil {
		return fmt.Errorf("content does not match schema: %w", err)
	}
	return nil
}

// compile builds the validator once. Documents from ParseSchema are compiled
// from their source so keywords the reflector does not model still apply.
func (s *Schema) compile() (*jsv.Schema, error) {
	s.once.Do(func() {
		doc := s.source
		if doc == nil {
			b, err := json.Marshal(s.root)
			if err != nil {
				s.compileErr = fmt.Errorf("failed to render schema: %w", err)
				return
			}
			if doc, err = jsv.UnmarshalJSON(bytes.NewReader(b)); err != nil {
				s.compileErr = fmt.Errorf("failed to render schema: %w", err)
				return
			}
		}

		c := jsv.NewCompiler()
		c.AssertFormat()
		if err := c.AddResource(schemaResource, doc); err != nil {
			s.compileErr = fmt.Errorf("invalid schema: %w", err)
			return
		}
		if s.compiled, s.compileErr = c.Compile(schemaResource); s.compileErr != nil {
			s.compileErr = fmt.Errorf("invalid schema: %w", s.compileErr)
		}
	})
	return s.compiled, s.compileErr
}
