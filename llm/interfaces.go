package llm

import (
	"context"
)

// Mode identifies one of the completion modes.
type Mode string

const (
	ModeChat     Mode = "chat"
	ModeTools    Mode = "tools"
	ModeJSON     Mode = "json"
	ModeToolJSON Mode = "tools+json"
)

// Adapter is the per-backend implementation of the completion contract.
// Synchronous methods block on the backend call. Async methods return
// immediately and run the call on a separate backend handle.
type Adapter interface {
	// Name returns the backend name the adapter was registered under.
	Name() string

	Chat(ctx context.Context, req *ChatRequest) (*ModelResponse, error)
	ToolChat(ctx context.Context, req *ToolChatRequest) (*ModelResponse, error)
	JSONChat(ctx context.Context, req *JSONChatRequest) (*ModelResponse, error)

	ChatAsync(ctx context.Context, req *ChatRequest) *Call
	ToolChatAsync(ctx context.Context, req *ToolChatRequest) *Call
	JSONChatAsync(ctx context.Context, req *JSONChatRequest) *Call
}

// ToolJSONChatter is implemented by adapters that can answer a request with
// both tools and a response schema in their own way. The dispatcher falls
// back to a tool pass followed by a JSON pass otherwise.
type ToolJSONChatter interface {
	ToolJSONChat(ctx context.Context, req *CompletionRequest) (*ModelResponse, error)
}

// Middleware provides hooks for decorating Adapter calls.
type Middleware interface {
	// BeforeRequest is called before every completion. It can abort the
	// call by returning an error.
	BeforeRequest(ctx context.Context, call *CallInfo) (context.Context, error)

	// AfterResponse is called after a successful completion. It can modify
	// the response or return an error.
	AfterResponse(ctx context.Context, call *CallInfo, resp *ModelResponse) (*ModelResponse, error)

	// OnError is called when a completion fails.
	// It can return a modified error or nil to use the original error.
	OnError(ctx context.Context, call *CallInfo, err error) error
}

// CallInfo describes the completion a middleware is observing.
type CallInfo struct {
	Provider string
	Mode     Mode
	Model    string
	Async    bool
}

// MiddlewareFunc is a function type that implements Middleware.
type MiddlewareFunc struct {
	BeforeRequestFunc func(ctx context.Context, call *CallInfo) (context.Context, error)
	AfterResponseFunc func(ctx context.Context, call *CallInfo, resp *ModelResponse) (*ModelResponse, error)
	OnErrorFunc       func(ctx context.Context, call *CallInfo, err error) error
}

// BeforeRequest calls the BeforeRequestFunc if set.
func (f MiddlewareFunc) BeforeRequest(ctx context.Context, call *CallInfo) (context.Context, error) {
	if f.BeforeRequestFunc != nil {
		return f.BeforeRequestFunc(ctx, call)
	}
	return ctx, nil
}

// AfterResponse calls the AfterResponseFunc if set.
func (f MiddlewareFunc) AfterResponse(ctx context.Context, call *CallInfo, resp *ModelResponse) (*ModelResponse, error) {
	if f.AfterResponseFunc != nil {
		return f.AfterResponseFunc(ctx, call, resp)
	}
	return resp, nil
}

// OnError calls the OnErrorFunc if set.
func (f MiddlewareFunc) OnError(ctx context.Context, call *CallInfo, err error) error {
	if f.OnErrorFunc != nil {
		return f.OnErrorFunc(ctx, call, err)
	}
	return err
}

// WrapWithMiddleware wraps an Adapter with middleware and returns a new Adapter.
// The wrapper still satisfies ToolJSONChatter when the wrapped adapter does.
func WrapWithMiddleware(adapter Adapter, middleware ...Middleware) Adapter {
	if len(middleware) == 0 {
		return adapter
	}
	wrapped := &adapterWithMiddleware{
		adapter:    adapter,
		middleware: middleware,
	}
	if _, ok := adapter.(ToolJSONChatter); ok {
		return &toolJSONAdapterWithMiddleware{wrapped}
	}
	return wrapped
}

// adapterWithMiddleware wraps an Adapter with middleware.
type adapterWithMiddleware struct {
	adapter    Adapter
	middleware []Middleware
}

func (a *adapterWithMiddleware) Name() string {
	return a.adapter.Name()
}

// invoke runs fn surrounded by the middleware chain.
func (a *adapterWithMiddleware) invoke(ctx context.Context, info *CallInfo, fn func(ctx context.Context) (*ModelResponse, error)) (*ModelResponse, error) {
	for _, mw := range a.middleware {
		var err error
		ctx, err = mw.BeforeRequest(ctx, info)
		if err != nil {
			return nil, err
		}
	}

	resp, err := fn(ctx)
	if err != nil {
		for _, mw := range a.middleware {
			if handled := mw.OnError(ctx, info, err); handled != nil {
				err = handled
			}
		}
		return nil, err
	}

	for i := len(a.middleware) - 1; i >= 0; i-- {
		resp, err = a.middleware[i].AfterResponse(ctx, info, resp)
		if err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (a *adapterWithMiddleware) info(mode Mode, model string, async bool) *CallInfo {
	return &CallInfo{Provider: a.adapter.Name(), Mode: mode, Model: model, Async: async}
}

// Chat implements Adapter.Chat with middleware support.
func (a *adapterWithMiddleware) Chat(ctx context.Context, req *ChatRequest) (*ModelResponse, error) {
	return a.invoke(ctx, a.info(ModeChat, req.Model, false), func(ctx context.Context) (*ModelResponse, error) {
		return a.adapter.Chat(ctx, req)
	})
}

// ToolChat implements Adapter.ToolChat with middleware support.
func (a *adapterWithMiddleware) ToolChat(ctx context.Context, req *ToolChatRequest) (*ModelResponse, error) {
	return a.invoke(ctx, a.info(ModeTools, req.Model, false), func(ctx context.Context) (*ModelResponse, error) {
		return a.adapter.ToolChat(ctx, req)
	})
}

// JSONChat implements Adapter.JSONChat with middleware support.
func (a *adapterWithMiddleware) JSONChat(ctx context.Context, req *JSONChatRequest) (*ModelResponse, error) {
	return a.invoke(ctx, a.info(ModeJSON, req.Model, false), func(ctx context.Context) (*ModelResponse, error) {
		return a.adapter.JSONChat(ctx, req)
	})
}

// ChatAsync implements Adapter.ChatAsync with middleware support.
func (a *adapterWithMiddleware) ChatAsync(ctx context.Context, req *ChatRequest) *Call {
	return Go(ctx, func(ctx context.Context) (*ModelResponse, error) {
		return a.invoke(ctx, a.info(ModeChat, req.Model, true), func(ctx context.Context) (*ModelResponse, error) {
			return a.adapter.ChatAsync(ctx, req).Wait()
		})
	})
}

// ToolChatAsync implements Adapter.ToolChatAsync with middleware support.
func (a *adapterWithMiddleware) ToolChatAsync(ctx context.Context, req *ToolChatRequest) *Call {
	return Go(ctx, func(ctx context.Context) (*ModelResponse, error) {
		return a.invoke(ctx, a.info(ModeTools, req.Model, true), func(ctx context.Context) (*ModelResponse, error) {
			return a.adapter.ToolChatAsync(ctx, req).Wait()
		})
	})
}

// JSONChatAsync implements Adapter.JSONChatAsync with middleware support.
func (a *adapterWithMiddleware) JSONChatAsync(ctx context.Context, req *JSONChatRequest) *Call {
	return Go(ctx, func(ctx context.Context) (*ModelResponse, error) {
		return a.invoke(ctx, a.info(ModeJSON, req.Model, true), func(ctx context.Context) (*ModelResponse, error) {
			return a.adapter.JSONChatAsync(ctx, req).Wait()
		})
	})
}

// toolJSONAdapterWithMiddleware forwards the combined mode of adapters that
// implement it.
type toolJSONAdapterWithMiddleware struct {
	*adapterWithMiddleware
}

// ToolJSONChat implements ToolJSONChatter with middleware support.
func (a *toolJSONAdapterWithMiddleware) ToolJSONChat(ctx context.Context, req *CompletionRequest) (*ModelResponse, error) {
	combined := a.adapter.(ToolJSONChatter)
	return a.invoke(ctx, a.info(ModeToolJSON, req.Model, false), func(ctx context.Context) (*ModelResponse, error) {
		return combined.ToolJSONChat(ctx, req)
	})
}

// Ensure adapterWithMiddleware implements Adapter
var _ Adapter = (*adapterWithMiddleware)(nil)

// Ensure toolJSONAdapterWithMiddleware implements ToolJSONChatter
var _ ToolJSONChatter = (*toolJSONAdapterWithMiddleware)(nil)
