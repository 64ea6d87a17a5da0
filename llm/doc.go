// Package llm provides a provider-neutral completion layer over Large Language Model backends.
//
// This package defines the canonical message model, tool descriptors, response
// schemas, and the normalized response envelope, together with the Adapter
// interface every backend (Ollama, OpenAI, Anthropic, ...) implements.
//
// # Core Concepts
//
//  1. Messages: Message is an immutable value with a role (system, user, assistant, tool),
//     text content, and an optional name that identifies the tool behind a tool-role message.
//
//  2. Tools: The Tool interface declares a name, a description, a parameter Schema,
//     and blocking (Run) and non-blocking (RunAsync) execution. GetSchema turns a tool
//     into a backend-neutral function declaration.
//
//  3. Schemas: Schema wraps a JSON Schema document, either reflected from a Go type
//     (SchemaFor) or parsed from JSON (ParseSchema), and validates decoded JSON values.
//
//  4. Adapter Interface: every backend implements three completion modes (Chat, ToolChat,
//     JSONChat), each with an asynchronous counterpart returning a *Call.
//
//  5. Dispatcher: Complete and CompleteAsync select the completion mode from the request
//     (tools present? schema present? both?) and forward to the adapter.
//
//  6. Errors: every failure crossing the adapter boundary is an *Error carrying its type
//     (initialization, completion, validation, invalid_request), the mode, and the cause.
//
// Usage Example
//
//	adapter, err := llm.CreateProvider(llm.ProviderOllama, &llm.ProviderConfig{})
//	if err != nil {
//	    return err
//	}
//	d := llm.NewDispatcher(llm.WrapWithMiddleware(adapter, llm.LoggingMiddleware(logger)), logger)
//
//	resp, err := d.Complete(ctx, &llm.CompletionRequest{
//	    Model:    "llama3.2",
//	    Messages: []llm.Message{llm.UserMessage("Say 'Hello, World!'")},
//	})
//
// # Extension Points
//
// To add a new backend:
//  1. Implement the Adapter interface
//  2. Translate between backend types and llm types, defaulting absent fields
//  3. Funnel backend errors through WrapError so only *Error escapes
//  4. Register a Factory from the package's init function
package llm
