package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type echoParams struct {
	Message string `json:"message" jsonschema:"description=Text to echo"`
}

func newEchoTool(name string) *FuncTool[echoParams] {
	return NewFuncTool(name, "Echo a message", func(_ context.Context, p echoParams) (string, error) {
		return "Tool response: " + p.Message, nil
	})
}

func TestGetSchema(t *testing.T) {
	schema := GetSchema(newEchoTool("simple_tool"))
	if schema.Type != "function" {
		t.Errorf("Expected type 'function', got %q", schema.Type)
	}
	if schema.Function.Name != "simple_tool" || schema.Function.Description != "Echo a message" {
		t.Errorf("Unexpected function definition %+v", schema.Function)
	}
	props, ok := schema.Function.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatalf("Expected properties map, got %v", schema.Function.Parameters)
	}
	msg, _ := props["message"].(map[string]any)
	if msg["description"] != "Text to echo" {
		t.Errorf("Expected field description, got %v", msg)
	}

	data, err := json.Marshal(schema)
	if err != nil {
		t.Fatalf("Failed to marshal schema: %v", err)
	}
	var decoded FunctionSchema
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal schema: %v", err)
	}
	if decoded.Function.Name != "simple_tool" {
		t.Errorf("Expected name to survive JSON, got %q", decoded.Function.Name)
	}
}

func TestGetSchemas(t *testing.T) {
	schemas := GetSchemas([]Tool{newEchoTool("a"), newEchoTool("b")})
	if len(schemas) != 2 || schemas[0].Function.Name != "a" || schemas[1].Function.Name != "b" {
		t.Errorf("Expected schemas in tool order, got %+v", schemas)
	}
}

func TestValidateTools(t *testing.T) {
	if err := ValidateTools(nil); err != nil {
		t.Errorf("Expected no error for no tools, got %v", err)
	}
	if err := ValidateTools([]Tool{newEchoTool("a"), newEchoTool("b")}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if err := ValidateTools([]Tool{newEchoTool("a"), newEchoTool("a")}); err == nil {
		t.Error("Expected error for duplicate names")
	}
	if err := ValidateTools([]Tool{newEchoTool("")}); err == nil {
		t.Error("Expected error for empty name")
	}
}

func TestFuncTool_Run(t *testing.T) {
	tool := newEchoTool("simple_tool")

	out, err := tool.Run(context.Background(), json.RawMessage(`{"message":"hello"}`))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out != "Tool response: hello" {
		t.Errorf("Unexpected output %q", out)
	}

	if _, err := tool.Run(context.Background(), json.RawMessage(`{"message":5}`)); err == nil {
		t.Error("Expected error for arguments of the wrong type")
	}
	if _, err := tool.Run(context.Background(), nil); err == nil {
		t.Error("Expected error for missing required argument")
	}
}

func TestFuncTool_NoParams(t *testing.T) {
	tool := NewFuncTool("now", "Report the current time", func(_ context.Context, _ struct{}) (string, error) {
		return "12:00", nil
	})

	schema := GetSchema(tool)
	if schema.Function.Parameters["type"] != "object" {
		t.Errorf("Expected object parameters, got %v", schema.Function.Parameters)
	}

	for _, args := range []json.RawMessage{nil, json.RawMessage(`{}`)} {
		out, err := tool.Run(context.Background(), args)
		if err != nil {
			t.Fatalf("Run(%s) failed: %v", args, err)
		}
		if out != "12:00" {
			t.Errorf("Unexpected output %q", out)
		}
	}
}

func TestFuncTool_RunAsync(t *testing.T) {
	tool := newEchoTool("simple_tool")
	ch := tool.RunAsync(context.Background(), json.RawMessage(`{"message":"async"}`))

	res, ok := <-ch
	if !ok {
		t.Fatal("Expected a result")
	}
	if res.Err != nil || res.Output != "Tool response: async" {
		t.Errorf("Unexpected result %+v", res)
	}
	if _, ok := <-ch; ok {
		t.Error("Expected channel to be closed after one result")
	}
}

func TestFuncTool_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	tool := NewFuncTool("failing", "Always fails", func(context.Context, struct{}) (string, error) {
		return "", boom
	})
	if _, err := tool.Run(context.Background(), json.RawMessage(`{}`)); !errors.Is(err, boom) {
		t.Errorf("Expected tool error, got %v", err)
	}
}

func TestRunToolCall(t *testing.T) {
	tools := []Tool{newEchoTool("simple_tool")}
	call := ToolCall{
		ID:       "call_0",
		Type:     ToolCallTypeFunction,
		Function: ToolCallFunction{Name: "simple_tool", Arguments: `{"message":"hi"}`},
	}

	msg, err := RunToolCall(context.Background(), tools, call)
	if err != nil {
		t.Fatalf("RunToolCall failed: %v", err)
	}
	if msg.Role != RoleTool || msg.Name != "simple_tool" || msg.ToolCallID != "call_0" {
		t.Errorf("Unexpected message %+v", msg)
	}
	if msg.Content != "Tool response: hi" {
		t.Errorf("Unexpected content %q", msg.Content)
	}

	call.Function.Name = "missing"
	if _, err := RunToolCall(context.Background(), tools, call); err == nil {
		t.Error("Expected error for unknown tool")
	}
}
