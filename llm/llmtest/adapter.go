// Package llmtest provides a scripted llm.Adapter for exercising code built
// on top of the adapter contract without a running backend.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aschepis/backscratcher/legion/llm"
)

// Result is one scripted outcome.
type Result struct {
	Response *llm.ModelResponse
	Err      error
}

// Request records one call made against the adapter. Exactly one of Chat,
// Tool or JSON is set, matching Mode.
type Request struct {
	Mode  llm.Mode
	Async bool
	Chat  *llm.ChatRequest
	Tool  *llm.ToolChatRequest
	JSON  *llm.JSONChatRequest
}

// Adapter replays scripted results per completion mode, in order. When a
// mode's script is exhausted its last result is repeated.
type Adapter struct {
	name string

	mu       sync.Mutex
	scripts  map[llm.Mode][]Result
	requests []Request
}

// NewAdapter creates a scripted adapter reporting name.
func NewAdapter(name string) *Adapter {
	return &Adapter{
		name:    name,
		scripts: make(map[llm.Mode][]Result),
	}
}

// Respond appends a successful result for mode.
func (a *Adapter) Respond(mode llm.Mode, resp *llm.ModelResponse) *Adapter {
	return a.script(mode, Result{Response: resp})
}

// Fail appends a failing result for mode.
func (a *Adapter) Fail(mode llm.Mode, err error) *Adapter {
	return a.script(mode, Result{Err: err})
}

func (a *Adapter) script(mode llm.Mode, r Result) *Adapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.scripts[mode] = append(a.scripts[mode], r)
	return a
}

// Requests returns a copy of the calls recorded so far.
func (a *Adapter) Requests() []Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Request, len(a.requests))
	copy(out, a.requests)
	return out
}

// next records req and pops the next result for its mode.
func (a *Adapter) next(req Request) (*llm.ModelResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)

	script := a.scripts[req.Mode]
	if len(script) == 0 {
		return nil, llm.NewCompletionError(a.name, req.Mode, "no scripted response", fmt.Errorf("mode %s", req.Mode))
	}
	r := script[0]
	if len(script) > 1 {
		a.scripts[req.Mode] = script[1:]
	}
	return r.Response, r.Err
}

// Name implements llm.Adapter.
func (a *Adapter) Name() string {
	return a.name
}

// Chat implements llm.Adapter.
func (a *Adapter) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ModelResponse, error) {
	return a.next(Request{Mode: llm.ModeChat, Chat: req})
}

// ToolChat implements llm.Adapter.
func (a *Adapter) ToolChat(_ context.Context, req *llm.ToolChatRequest) (*llm.ModelResponse, error) {
	return a.next(Request{Mode: llm.ModeTools, Tool: req})
}

// JSONChat implements llm.Adapter.
func (a *Adapter) JSONChat(_ context.Context, req *llm.JSONChatRequest) (*llm.ModelResponse, error) {
	return a.next(Request{Mode: llm.ModeJSON, JSON: req})
}

// ChatAsync implements llm.Adapter.
func (a *Adapter) ChatAsync(ctx context.Context, req *llm.ChatRequest) *llm.Call {
	return llm.Go(ctx, func(context.Context) (*llm.ModelResponse, error) {
		return a.next(Request{Mode: llm.ModeChat, Async: true, Chat: req})
	})
}

// ToolChatAsync implements llm.Adapter.
func (a *Adapter) ToolChatAsync(ctx context.Context, req *llm.ToolChatRequest) *llm.Call {
	return llm.Go(ctx, func(context.Context) (*llm.ModelResponse, error) {
		return a.next(Request{Mode: llm.ModeTools, Async: true, Tool: req})
	})
}

// JSONChatAsync implements llm.Adapter.
func (a *Adapter) JSONChatAsync(ctx context.Context, req *llm.JSONChatRequest) *llm.Call {
	return llm.Go(ctx, func(context.Context) (*llm.ModelResponse, error) {
		return a.next(Request{Mode: llm.ModeJSON, Async: true, JSON: req})
	})
}

// CombinedAdapter is an Adapter that also answers tools+schema requests in a
// single call.
type CombinedAdapter struct {
	*Adapter

	mu       sync.Mutex
	combined []*llm.CompletionRequest
	result   Result
}

// NewCombinedAdapter creates a CombinedAdapter whose ToolJSONChat returns
// resp and err.
func NewCombinedAdapter(name string, resp *llm.ModelResponse, err error) *CombinedAdapter {
	return &CombinedAdapter{
		Adapter: NewAdapter(name),
		result:  Result{Response: resp, Err: err},
	}
}

// ToolJSONChat implements llm.ToolJSONChatter.
func (a *CombinedAdapter) ToolJSONChat(_ context.Context, req *llm.CompletionRequest) (*llm.ModelResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.combined = append(a.combined, req)
	return a.result.Response, a.result.Err
}

// CombinedRequests returns the requests answered by ToolJSONChat.
func (a *CombinedAdapter) CombinedRequests() []*llm.CompletionRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*llm.CompletionRequest, len(a.combined))
	copy(out, a.combined)
	return out
}

var (
	_ llm.Adapter         = (*Adapter)(nil)
	_ llm.ToolJSONChatter = (*CombinedAdapter)(nil)
)
