package llm

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/invopop/jsonschema"
)

type address struct {
	City string `json:"city"`
	Zip  string `json:"zip,omitempty"`
}

type person struct {
	Name    string   `json:"name" jsonschema:"description=Full name"`
	Age     int      `json:"age"`
	Hobbies []string `json:"hobbies"`
	Address *address `json:"address,omitempty"`
	Mood    string   `json:"mood,omitempty" jsonschema:"enum=happy,enum=sad"`
}

func TestSchemaFor(t *testing.T) {
	s := SchemaFor[person]()
	if s.Name() != "person" {
		t.Errorf("Expected name 'person', got %q", s.Name())
	}

	m := s.Map()
	if m["type"] != "object" {
		t.Errorf("Expected object schema, got %v", m["type"])
	}
	if _, ok := m["$schema"]; ok {
		t.Error("Expected $schema to be dropped from the declaration map")
	}
	required, _ := m["required"].([]any)
	want := map[string]bool{"name": true, "age": true, "hobbies": true}
	if len(required) != len(want) {
		t.Fatalf("Expected required %v, got %v", want, required)
	}
	for _, r := range required {
		if !want[r.(string)] {
			t.Errorf("Unexpected required field %v", r)
		}
	}

	if SchemaFor[*person]().Name() != "person" {
		t.Error("Expected pointer types to reflect their element")
	}
}

func TestSchemaValidate(t *testing.T) {
	s := SchemaFor[person]()
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"valid", `{"name":"John","age":25,"hobbies":["reading","gaming"]}`, ""},
		{"extra fields allowed", `{"name":"John","age":25,"hobbies":[],"nickname":"JJ"}`, ""},
		{"nested", `{"name":"A","age":1,"hobbies":[],"address":{"city":"Oslo"}}`, ""},
		{"integral float", `{"name":"A","age":30.0,"hobbies":[]}`, ""},
		{"enum ok", `{"name":"A","age":1,"hobbies":[],"mood":"happy"}`, ""},
		{"not json", `John is 25`, "not valid JSON"},
		{"missing required", `{"name":"John","age":25}`, "missing property 'hobbies'"},
		{"wrong type", `{"name":"John","age":"25","hobbies":[]}`, "at '/age': got string, want integer"},
		{"fractional integer", `{"name":"John","age":25.5,"hobbies":[]}`, "got number, want integer"},
		{"wrong item", `{"name":"John","age":25,"hobbies":["a",2]}`, "at '/hobbies/1'"},
		{"nested missing", `{"name":"A","age":1,"hobbies":[],"address":{}}`, "at '/address': missing property 'city'"},
		{"enum mismatch", `{"name":"A","age":1,"hobbies":[],"mood":"bored"}`, "value must be one of"},
		{"not an object", `["John"]`, "got array, want object"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateJSON([]byte(tt.data))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestParseSchema(t *testing.T) {
	doc := `{
		"title": "Weather",
		"type": "object",
		"properties": {
			"unit": {"$ref": "#/$defs/unit"},
			"temp": {"type": "number"}
		},
		"required": ["temp"],
		"$defs": {"unit": {"type": "string", "enum": ["c", "f"]}}
	}`
	s, err := ParseSchema([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSchema failed: %v", err)
	}
	if s.Name() != "Weather" {
		t.Errorf("Expected name 'Weather', got %q", s.Name())
	}
	if _, err := s.ValidateJSON([]byte(`{"temp":21.5,"unit":"c"}`)); err != nil {
		t.Errorf("Expected valid, got %v", err)
	}
	if _, err := s.ValidateJSON([]byte(`{"temp":21.5,"unit":"k"}`)); err == nil {
		t.Error("Expected error for value outside referenced enum")
	}

	if _, err := ParseSchema([]byte(`{not json`)); err == nil {
		t.Error("Expected error for malformed schema")
	}
}

func TestSchemaValidate_ConstraintKeywords(t *testing.T) {
	doc := `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1, "pattern": "^[A-Z]"},
			"age": {"type": "integer", "minimum": 0, "maximum": 150},
			"hobbies": {"type": "array", "items": {"type": "string"}, "minItems": 1, "maxItems": 3},
			"email": {"type": "string", "format": "email"},
			"kind": {"const": "person"}
		},
		"required": ["name", "age", "hobbies"],
		"additionalProperties": false
	}`
	s, err := ParseSchema([]byte(doc))
	if err != nil {
		t.Fatalf("ParseSchema failed: %v", err)
	}

	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"valid", `{"name":"Ann","age":30,"hobbies":["chess"],"email":"ann@example.com","kind":"person"}`, ""},
		{"minLength", `{"name":"","age":30,"hobbies":["chess"]}`, "minLength"},
		{"pattern", `{"name":"ann","age":30,"hobbies":["chess"]}`, "does not match pattern"},
		{"minimum", `{"name":"Ann","age":-5,"hobbies":["chess"]}`, "minimum"},
		{"maximum", `{"name":"Ann","age":200,"hobbies":["chess"]}`, "maximum"},
		{"minItems", `{"name":"Ann","age":30,"hobbies":[]}`, "minItems"},
		{"maxItems", `{"name":"Ann","age":30,"hobbies":["a","b","c","d"]}`, "maxItems"},
		{"format", `{"name":"Ann","age":30,"hobbies":["chess"],"email":"not-an-email"}`, "is not valid email"},
		{"const", `{"name":"Ann","age":30,"hobbies":["chess"],"kind":"robot"}`, "value must be"},
		{"additionalProperties", `{"name":"Ann","age":30,"hobbies":["chess"],"extra":true}`, "additional properties 'extra' not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ValidateJSON([]byte(tt.data))
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected valid, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

type bounded struct {
	Count int `json:"count" jsonschema:"minimum=1,maximum=10"`
}

func TestSchemaFor_TagConstraints(t *testing.T) {
	s := SchemaFor[bounded]()
	if _, err := s.ValidateJSON([]byte(`{"count":5}`)); err != nil {
		t.Errorf("Expected valid, got %v", err)
	}
	if _, err := s.ValidateJSON([]byte(`{"count":0}`)); err == nil {
		t.Error("Expected minimum from struct tag to be enforced")
	}
}

func TestSchemaFor_Unnamed(t *testing.T) {
	s := SchemaFor[struct{}]()
	if s.Map()["type"] != "object" {
		t.Errorf("Expected object schema, got %v", s.Map())
	}
	if _, err := s.ValidateJSON([]byte(`{}`)); err != nil {
		t.Errorf("Expected empty object to be valid, got %v", err)
	}

	inline := SchemaFor[struct {
		Query string `json:"query"`
	}]()
	if _, err := inline.ValidateJSON([]byte(`{}`)); err == nil {
		t.Error("Expected required field of an anonymous struct to be enforced")
	}
}

func TestParseSchema_InvalidDocument(t *testing.T) {
	if _, err := ParseSchema([]byte(`{"type": 12}`)); err == nil {
		t.Error("Expected error for schema that fails to compile")
	}
}

func TestSchemaAnyOf(t *testing.T) {
	s := NewSchema(&jsonschema.Schema{
		AnyOf: []*jsonschema.Schema{{Type: "string"}, {Type: "integer"}},
	})
	if err := s.Validate("x"); err != nil {
		t.Errorf("Expected string to match: %v", err)
	}
	if err := s.Validate(float64(3)); err != nil {
		t.Errorf("Expected integer to match: %v", err)
	}
	if err := s.Validate(true); err == nil {
		t.Error("Expected boolean not to match")
	}
}

func TestObjectSchema(t *testing.T) {
	s := ObjectSchema("Echo",
		Property{Name: "message", Schema: &jsonschema.Schema{Type: "string"}, Required: true},
		Property{Name: "times", Schema: &jsonschema.Schema{Type: "integer"}},
	)

	rendered := s.String()
	if strings.Index(rendered, `"message"`) > strings.Index(rendered, `"times"`) {
		t.Errorf("Expected property order to be preserved, got %s", rendered)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(rendered), &decoded); err != nil {
		t.Fatalf("Schema did not render as JSON: %v", err)
	}
	if decoded["title"] != "Echo" {
		t.Errorf("Expected title 'Echo', got %v", decoded["title"])
	}

	if err := s.Validate(map[string]any{"times": float64(2)}); err == nil {
		t.Error("Expected missing required message to fail")
	}
	if err := s.Validate(map[string]any{"message": "hi"}); err != nil {
		t.Errorf("Expected valid, got %v", err)
	}
}
