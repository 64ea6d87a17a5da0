package context

import (
	stdctx "context"
)

// debugCallbackKey is the type used as a context key for storing debug callbacks.
// This is in a separate package to avoid circular dependencies.
type debugCallbackKey struct{}

// requestIDKey is the context key for the id of the completion in flight.
type requestIDKey struct{}

// WithDebugCallback adds a debug callback function to the context.
// Adapters call it with diagnostic text such as extracted tool calls.
func WithDebugCallback(ctx stdctx.Context, cb func(string)) stdctx.Context {
	return stdctx.WithValue(ctx, debugCallbackKey{}, cb)
}

// GetDebugCallback retrieves a debug callback function from the context.
// Returns the callback and a bool indicating if it was set.
func GetDebugCallback(ctx stdctx.Context) (func(string), bool) {
	cb, ok := ctx.Value(debugCallbackKey{}).(func(string))
	return cb, ok && cb != nil
}

// WithRequestID tags the context with a completion request id.
func WithRequestID(ctx stdctx.Context, id string) stdctx.Context {
	return stdctx.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the completion request id, or "" if none was set.
func RequestID(ctx stdctx.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
