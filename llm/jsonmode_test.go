package llm

import (
	"strings"
	"testing"
)

func TestWithSchemaInstruction(t *testing.T) {
	schema := SchemaFor[person]()
	in := []Message{
		UserMessage("first"),
		SystemMessage("You are terse."),
		AssistantMessage("ok"),
		SystemMessage("Use British spelling."),
		UserMessage("second"),
	}

	out := WithSchemaInstruction(in, schema)
	if len(out) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(out))
	}
	if out[0].Role != RoleSystem {
		t.Fatalf("Expected system message first, got %v", out[0].Role)
	}
	for _, m := range out[1:] {
		if m.Role == RoleSystem {
			t.Errorf("Expected a single system message, found another: %+v", m)
		}
	}
	want := "You are terse.\n\nUse British spelling.\n\nYou must respond with valid JSON"
	if !strings.HasPrefix(out[0].Content, want) {
		t.Errorf("Expected caller system content first, got %q", out[0].Content)
	}
	if !strings.HasSuffix(out[0].Content, "Respond ONLY with valid JSON. No other text.") {
		t.Errorf("Expected directive suffix, got %q", out[0].Content)
	}
	if out[1].Content != "first" || out[2].Content != "ok" || out[3].Content != "second" {
		t.Errorf("Expected non-system order preserved, got %+v", out[1:])
	}

	if in[1].Content != "You are terse." || len(in) != 5 {
		t.Error("Expected input messages to be left untouched")
	}
}

func TestWithSchemaInstruction_NoSystem(t *testing.T) {
	out := WithSchemaInstruction([]Message{UserMessage("hi")}, SchemaFor[person]())
	if len(out) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(out))
	}
	if !strings.HasPrefix(out[0].Content, "You must respond with valid JSON that matches this schema:\n{") {
		t.Errorf("Unexpected directive %q", out[0].Content)
	}
}

func TestValidateJSONContent(t *testing.T) {
	schema := SchemaFor[person]()
	if err := ValidateJSONContent(ProviderOllama, `{"name":"A","age":1,"hobbies":[]}`, schema); err != nil {
		t.Errorf("Expected valid content, got %v", err)
	}

	err := ValidateJSONContent(ProviderOllama, `{"name":"A"}`, schema)
	if !IsValidationError(err) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "ollama JSON completion failed: invalid JSON response") {
		t.Errorf("Unexpected message %q", err.Error())
	}

	if err := ValidateJSONContent(ProviderOllama, "anything", nil); err != nil {
		t.Errorf("Expected nil schema to skip validation, got %v", err)
	}
}
