package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	ctxpkg "github.com/aschepis/backscratcher/legion/context"
	"github.com/aschepis/backscratcher/legion/llm"
	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog"
)

// DefaultHost is used when the config carries no base URL.
const DefaultHost = "http://localhost:11434"

func init() {
	llm.Register(llm.ProviderOllama, llm.FactoryFunc(func(cfg *llm.ProviderConfig) (llm.Adapter, error) {
		return NewOllamaProvider(cfg)
	}))
}

// OllamaProvider implements llm.Adapter for Ollama's chat API.
type OllamaProvider struct {
	cfg    llm.ProviderConfig
	host   *url.URL
	client *api.Client
	logger zerolog.Logger

	// newClient builds a backend handle; replaced in tests.
	newClient func() *api.Client

	asyncOnce   sync.Once
	asyncClient *api.Client
}

// NewOllamaProvider creates an OllamaProvider. The synchronous handle is built
// here; the asynchronous one on first async use.
func NewOllamaProvider(cfg *llm.ProviderConfig) (*OllamaProvider, error) {
	c := cfg.WithDefaults()

	host := c.BaseURL
	if host == "" {
		host = DefaultHost
	}
	baseURL, err := parseHost(host)
	if err != nil {
		return nil, llm.NewInitializationError(llm.ProviderOllama, "failed to initialize Ollama client", err)
	}

	p := &OllamaProvider{
		cfg:    c,
		host:   baseURL,
		logger: c.Logger.With().Str("component", "ollama").Logger(),
	}
	p.newClient = func() *api.Client {
		return api.NewClient(p.host, &http.Client{Timeout: p.cfg.Timeout})
	}
	p.client = p.newClient()

	p.logger.Debug().Str("host", baseURL.String()).Msg("Ollama provider created")
	return p, nil
}

// parseHost parses a host string into a URL.
func parseHost(host string) (*url.URL, error) {
	// If host doesn't have a scheme, add http://
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid host %q", host)
	}
	return u, nil
}

// Name implements llm.Adapter.
func (p *OllamaProvider) Name() string {
	return llm.ProviderOllama
}

// Host returns the Ollama endpoint the provider talks to.
func (p *OllamaProvider) Host() string {
	return p.host.String()
}

// asyncHandle returns the asynchronous client, building it exactly once.
func (p *OllamaProvider) asyncHandle() *api.Client {
	p.asyncOnce.Do(func() {
		p.asyncClient = p.newClient()
		p.logger.Debug().Msg("Ollama async client initialized")
	})
	return p.asyncClient
}

// Chat implements llm.Adapter.Chat.
func (p *OllamaProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ModelResponse, error) {
	return p.chat(ctx, p.client, req)
}

// ToolChat implements llm.Adapter.ToolChat.
func (p *OllamaProvider) ToolChat(ctx context.Context, req *llm.ToolChatRequest) (*llm.ModelResponse, error) {
	return p.toolChat(ctx, p.client, req)
}

// JSONChat implements llm.Adapter.JSONChat.
func (p *OllamaProvider) JSONChat(ctx context.Context, req *llm.JSONChatRequest) (*llm.ModelResponse, error) {
	return p.jsonChat(ctx, p.client, req)
}

// ChatAsync implements llm.Adapter.ChatAsync.
func (p *OllamaProvider) ChatAsync(ctx context.Context, req *llm.ChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.chat(ctx, p.asyncHandle(), req)
	})
}

// ToolChatAsync implements llm.Adapter.ToolChatAsync.
func (p *OllamaProvider) ToolChatAsync(ctx context.Context, req *llm.ToolChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.toolChat(ctx, p.asyncHandle(), req)
	})
}

// JSONChatAsync implements llm.Adapter.JSONChatAsync.
func (p *OllamaProvider) JSONChatAsync(ctx context.Context, req *llm.JSONChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.jsonChat(ctx, p.asyncHandle(), req)
	})
}

func (p *OllamaProvider) chat(ctx context.Context, client *api.Client, req *llm.ChatRequest) (*llm.ModelResponse, error) {
	if req == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeChat, "request is required", nil)
	}

	stream := req.Stream
	chatReq := &api.ChatRequest{
		Model:    p.cfg.ResolveModel(req.Model),
		Messages: ToOllamaMessages(req.Messages),
		Stream:   &stream,
		Options:  buildOptions(req.Temperature, req.MaxTokens),
	}

	resp, err := p.send(ctx, client, chatReq)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderOllama, llm.ModeChat, "ollama completion failed", err)
	}

	payload := payloadFromResponse(resp)
	return &llm.ModelResponse{
		Content:     payload.content(),
		RawResponse: resp,
		Usage:       payload.usage(),
	}, nil
}

func (p *OllamaProvider) toolChat(ctx context.Context, client *api.Client, req *llm.ToolChatRequest) (*llm.ModelResponse, error) {
	if req == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeTools, "request is required", nil)
	}

	tools, err := ToOllamaTools(req.Tools)
	if err != nil {
		return nil, llm.NewInvalidRequestError(llm.ModeTools, "ollama tool completion failed", err)
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.cfg.ResolveModel(req.Model),
		Messages: ToOllamaMessages(req.Messages),
		Tools:    tools,
		Stream:   &stream,
		Options:  buildOptions(req.Temperature, req.MaxTokens),
	}

	resp, err := p.send(ctx, client, chatReq)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderOllama, llm.ModeTools, "ollama tool completion failed", err)
	}

	payload := payloadFromResponse(resp)
	toolCalls := payload.toolCalls()
	p.debugToolCalls(ctx, toolCalls)

	return &llm.ModelResponse{
		Content:     payload.content(),
		RawResponse: resp,
		Usage:       payload.usage(),
		ToolCalls:   toolCalls,
	}, nil
}

func (p *OllamaProvider) jsonChat(ctx context.Context, client *api.Client, req *llm.JSONChatRequest) (*llm.ModelResponse, error) {
	if req == nil || req.Schema == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeJSON, "a response schema is required", nil)
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    p.cfg.ResolveModel(req.Model),
		Messages: ToOllamaMessages(llm.WithSchemaInstruction(req.Messages, req.Schema)),
		Format:   json.RawMessage(`"json"`),
		Stream:   &stream,
		Options:  buildOptions(req.Temperature, req.MaxTokens),
	}

	resp, err := p.send(ctx, client, chatReq)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderOllama, llm.ModeJSON, "ollama JSON completion failed", err)
	}

	payload := payloadFromResponse(resp)
	content := payload.content()
	if err := llm.ValidateJSONContent(llm.ProviderOllama, content, req.Schema); err != nil {
		p.logger.Warn().Err(err).Str("model", chatReq.Model).Msg("JSON completion did not match schema")
		return nil, err
	}

	return &llm.ModelResponse{
		Content:     content,
		RawResponse: resp,
		Usage:       payload.usage(),
	}, nil
}

// send performs one chat call. Streamed chunks are folded into a single
// response whose message holds the full text and every tool call.
func (p *OllamaProvider) send(ctx context.Context, client *api.Client, chatReq *api.ChatRequest) (*api.ChatResponse, error) {
	if chatReq.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var (
		final     api.ChatResponse
		content   strings.Builder
		toolCalls []api.ToolCall
		received  bool
	)
	err := client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		received = true
		content.WriteString(resp.Message.Content)
		toolCalls = append(toolCalls, resp.Message.ToolCalls...)
		final = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !received {
		return nil, fmt.Errorf("empty response from ollama")
	}

	final.Message.Content = content.String()
	final.Message.ToolCalls = toolCalls
	return &final, nil
}

// buildOptions returns the options bag sent with every request.
func buildOptions(temperature float64, maxTokens int) map[string]any {
	options := map[string]any{
		"temperature": temperature,
	}
	if maxTokens > 0 {
		options["num_predict"] = maxTokens
	}
	return options
}

// debugToolCalls renders each extracted tool call when debugging is on.
func (p *OllamaProvider) debugToolCalls(ctx context.Context, calls []llm.ToolCall) {
	cb, hasCallback := ctxpkg.GetDebugCallback(ctx)
	if !p.cfg.Debug && !hasCallback {
		return
	}
	for _, call := range calls {
		pretty, err := json.MarshalIndent(call, "", "  ")
		if err != nil {
			continue
		}
		p.logger.Debug().Str("tool", call.Function.Name).Str("id", call.ID).Msg("Extracted tool call")
		if p.cfg.Debug {
			fmt.Fprintf(p.cfg.DebugWriter, "\nExtracted tool call: %s\n", pretty)
		}
		if hasCallback {
			cb(fmt.Sprintf("Extracted tool call: %s", pretty))
		}
	}
}

// Ensure OllamaProvider implements llm.Adapter
var _ llm.Adapter = (*OllamaProvider)(nil)
