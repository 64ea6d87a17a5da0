package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	ctxpkg "github.com/aschepis/backscratcher/legion/context"
	"github.com/aschepis/backscratcher/legion/llm"
	"github.com/rs/zerolog"
)

// DefaultMaxTokens is sent when a request does not bound the output;
// Anthropic requires an explicit limit.
const DefaultMaxTokens = 1024

func init() {
	llm.Register(llm.ProviderAnthropic, llm.FactoryFunc(func(cfg *llm.ProviderConfig) (llm.Adapter, error) {
		return NewAnthropicProvider(cfg)
	}))
}

// AnthropicProvider implements llm.Adapter for Anthropic's Messages API.
type AnthropicProvider struct {
	cfg    llm.ProviderConfig
	client *anthropic.Client
	logger zerolog.Logger

	// newClient builds a backend handle; replaced in tests.
	newClient func() *anthropic.Client

	asyncOnce   sync.Once
	asyncClient *anthropic.Client
}

// NewAnthropicProvider creates a new AnthropicProvider with the configured API key.
func NewAnthropicProvider(cfg *llm.ProviderConfig) (*AnthropicProvider, error) {
	c := cfg.WithDefaults()
	if c.APIKey == "" {
		return nil, llm.NewInitializationError(llm.ProviderAnthropic, "failed to initialize Anthropic client", fmt.Errorf("api key is required"))
	}

	p := &AnthropicProvider{
		cfg:    c,
		logger: c.Logger.With().Str("component", "anthropic").Logger(),
	}
	p.newClient = func() *anthropic.Client {
		opts := []option.RequestOption{
			option.WithAPIKey(p.cfg.APIKey),
			option.WithHTTPClient(&http.Client{Timeout: p.cfg.Timeout}),
			// One request per call; callers own retry policy.
			option.WithMaxRetries(0),
		}
		if p.cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(p.cfg.BaseURL))
		}
		client := anthropic.NewClient(opts...)
		return &client
	}
	p.client = p.newClient()

	p.logger.Debug().Str("base_url", c.BaseURL).Msg("Anthropic provider created")
	return p, nil
}

// Name implements llm.Adapter.
func (p *AnthropicProvider) Name() string {
	return llm.ProviderAnthropic
}

// asyncHandle returns the asynchronous client, building it exactly once.
func (p *AnthropicProvider) asyncHandle() *anthropic.Client {
	p.asyncOnce.Do(func() {
		p.asyncClient = p.newClient()
		p.logger.Debug().Msg("Anthropic async client initialized")
	})
	return p.asyncClient
}

// Chat implements llm.Adapter.Chat.
func (p *AnthropicProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ModelResponse, error) {
	return p.chat(ctx, p.client, req)
}

// ToolChat implements llm.Adapter.ToolChat.
func (p *AnthropicProvider) ToolChat(ctx context.Context, req *llm.ToolChatRequest) (*llm.ModelResponse, error) {
	return p.toolChat(ctx, p.client, req)
}

// JSONChat implements llm.Adapter.JSONChat.
func (p *AnthropicProvider) JSONChat(ctx context.Context, req *llm.JSONChatRequest) (*llm.ModelResponse, error) {
	return p.jsonChat(ctx, p.client, req)
}

// ChatAsync implements llm.Adapter.ChatAsync.
func (p *AnthropicProvider) ChatAsync(ctx context.Context, req *llm.ChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.chat(ctx, p.asyncHandle(), req)
	})
}

// ToolChatAsync implements llm.Adapter.ToolChatAsync.
func (p *AnthropicProvider) ToolChatAsync(ctx context.Context, req *llm.ToolChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.toolChat(ctx, p.asyncHandle(), req)
	})
}

// JSONChatAsync implements llm.Adapter.JSONChatAsync.
func (p *AnthropicProvider) JSONChatAsync(ctx context.Context, req *llm.JSONChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.jsonChat(ctx, p.asyncHandle(), req)
	})
}

func (p *AnthropicProvider) chat(ctx context.Context, client *anthropic.Client, req *llm.ChatRequest) (*llm.ModelResponse, error) {
	if req == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeChat, "request is required", nil)
	}

	params := p.baseParams(req.Model, req.Messages, req.Temperature, req.MaxTokens)
	message, err := p.send(ctx, client, params)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderAnthropic, llm.ModeChat, "anthropic completion failed", err)
	}

	out := toModelResponse(message)
	out.ToolCalls = nil
	return out, nil
}

func (p *AnthropicProvider) toolChat(ctx context.Context, client *anthropic.Client, req *llm.ToolChatRequest) (*llm.ModelResponse, error) {
	if req == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeTools, "request is required", nil)
	}

	params := p.baseParams(req.Model, req.Messages, req.Temperature, req.MaxTokens)
	params.Tools = ToToolUnionParams(req.Tools)

	message, err := p.send(ctx, client, params)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderAnthropic, llm.ModeTools, "anthropic tool completion failed", err)
	}

	out := toModelResponse(message)
	p.debugToolCalls(ctx, out.ToolCalls)
	return out, nil
}

// jsonChat has no native JSON mode to lean on: the schema directive goes
// into the system blocks and the reply is validated locally.
func (p *AnthropicProvider) jsonChat(ctx context.Context, client *anthropic.Client, req *llm.JSONChatRequest) (*llm.ModelResponse, error) {
	if req == nil || req.Schema == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeJSON, "a response schema is required", nil)
	}

	params := p.baseParams(req.Model, llm.WithSchemaInstruction(req.Messages, req.Schema), req.Temperature, req.MaxTokens)
	message, err := p.send(ctx, client, params)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderAnthropic, llm.ModeJSON, "anthropic JSON completion failed", err)
	}

	out := toModelResponse(message)
	out.ToolCalls = nil
	if err := llm.ValidateJSONContent(llm.ProviderAnthropic, out.Content, req.Schema); err != nil {
		p.logger.Warn().Err(err).Str("model", string(params.Model)).Msg("JSON completion did not match schema")
		return nil, err
	}
	return out, nil
}

func (p *AnthropicProvider) baseParams(model string, msgs []llm.Message, temperature float64, maxTokens int) anthropic.MessageNewParams {
	system, conversation := ToMessageParams(msgs)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(p.cfg.ResolveModel(model)),
		MaxTokens:   int64(maxTokens),
		Messages:    conversation,
		System:      system,
		Temperature: anthropic.Float(temperature),
	}
}

func (p *AnthropicProvider) send(ctx context.Context, client *anthropic.Client, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	if params.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	message, err := client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("Anthropic API error (status %d): %w", apiErr.StatusCode, err)
		}
		return nil, err
	}
	if message.Usage.CacheReadInputTokens > 0 {
		p.logger.Debug().
			Int64("input_tokens", message.Usage.InputTokens).
			Int64("cache_read_tokens", message.Usage.CacheReadInputTokens).
			Msg("Prompt cache stats")
	}
	return message, nil
}

// debugToolCalls renders each extracted tool call when debugging is on.
func (p *AnthropicProvider) debugToolCalls(ctx context.Context, calls []llm.ToolCall) {
	cb, hasCallback := ctxpkg.GetDebugCallback(ctx)
	if !p.cfg.Debug && !hasCallback {
		return
	}
	for _, call := range calls {
		line := fmt.Sprintf("Extracted tool call: %s(%s)", call.Function.Name, call.Function.Arguments)
		p.logger.Debug().Str("tool", call.Function.Name).Str("id", call.ID).Msg("Extracted tool call")
		if p.cfg.Debug {
			fmt.Fprintf(p.cfg.DebugWriter, "\n%s\n", line)
		}
		if hasCallback {
			cb(line)
		}
	}
}

// Ensure AnthropicProvider implements llm.Adapter
var _ llm.Adapter = (*AnthropicProvider)(nil)
