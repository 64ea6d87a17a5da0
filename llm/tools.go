package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/lo"
)

// Tool describes an external capability the model may ask to invoke.
type Tool interface {
	Name() string
	Description() string
	// Parameters describes the JSON object the tool accepts.
	Parameters() *Schema
	// Run executes the tool and blocks until it returns.
	Run(ctx context.Context, args json.RawMessage) (string, error)
	// RunAsync executes the tool on its own goroutine. The channel yields
	// exactly one result and is then closed.
	RunAsync(ctx context.Context, args json.RawMessage) <-chan ToolResult
}

// ToolResult is the outcome of an asynchronous tool run.
type ToolResult struct {
	Output string
	Err    error
}

// FunctionSchema is the backend-neutral declaration of a tool.
type FunctionSchema struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition names a function and describes its parameters.
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// GetSchema returns the function-call declaration for a tool.
func GetSchema(t Tool) FunctionSchema {
	params := map[string]any{"type": "object", "properties": map[string]any{}}
	if p := t.Parameters(); p != nil {
		params = p.Map()
	}
	return FunctionSchema{
		Type: ToolCallTypeFunction,
		Function: FunctionDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  params,
		},
	}
}

// GetSchemas returns declarations for all tools, in order.
func GetSchemas(tools []Tool) []FunctionSchema {
	return lo.Map(tools, func(t Tool, _ int) FunctionSchema {
		return GetSchema(t)
	})
}

// ValidateTools checks that every tool has a name and names are unique.
func ValidateTools(tools []Tool) error {
	names := lo.Map(tools, func(t Tool, _ int) string { return t.Name() })
	if lo.Contains(names, "") {
		return fmt.Errorf("tool name is required")
	}
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return fmt.Errorf("duplicate tool names: %v", dups)
	}
	return nil
}

// FindTool returns the tool with the given name.
func FindTool(tools []Tool, name string) (Tool, bool) {
	return lo.Find(tools, func(t Tool) bool { return t.Name() == name })
}

// FuncTool adapts a typed Go function into a Tool. The parameter schema is
// reflected from P.
type FuncTool[P any] struct {
	name        string
	description string
	schema      *Schema
	fn          func(ctx context.Context, params P) (string, error)
}

// NewFuncTool creates a tool backed by fn.
func NewFuncTool[P any](name, description string, fn func(ctx context.Context, params P) (string, error)) *FuncTool[P] {
	return &FuncTool[P]{
		name:        name,
		description: description,
		schema:      SchemaFor[P](),
		fn:          fn,
	}
}

// Name implements Tool.
func (t *FuncTool[P]) Name() string { return t.name }

// Description implements Tool.
func (t *FuncTool[P]) Description() string { return t.description }

// Parameters implements Tool.
func (t *FuncTool[P]) Parameters() *Schema { return t.schema }

// Run implements Tool. Arguments are validated against the parameter schema
// before they are decoded into P.
func (t *FuncTool[P]) Run(ctx context.Context, args json.RawMessage) (string, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if _, err := t.schema.ValidateJSON(args); err != nil {
		return "", fmt.Errorf("invalid arguments for tool %s: %w", t.name, err)
	}
	var params P
	if err := json.Unmarshal(args, &params); err != nil {
		return "", fmt.Errorf("failed to decode arguments for tool %s: %w", t.name, err)
	}
	return t.fn(ctx, params)
}

// RunAsync implements Tool.
func (t *FuncTool[P]) RunAsync(ctx context.Context, args json.RawMessage) <-chan ToolResult {
	ch := make(chan ToolResult, 1)
	go func() {
		defer close(ch)
		out, err := t.Run(ctx, args)
		ch <- ToolResult{Output: out, Err: err}
	}()
	return ch
}

// RunToolCall executes a tool call against the matching tool and returns
// the tool-role message carrying its output.
func RunToolCall(ctx context.Context, tools []Tool, call ToolCall) (Message, error) {
	tool, ok := FindTool(tools, call.Function.Name)
	if !ok {
		return Message{}, fmt.Errorf("unknown tool: %s", call.Function.Name)
	}
	out, err := tool.Run(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		return Message{}, err
	}
	msg := ToolMessage(call.Function.Name, out)
	msg.ToolCallID = call.ID
	return msg, nil
}

var _ Tool = (*FuncTool[struct{}])(nil)
