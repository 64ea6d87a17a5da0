package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	ctxpkg "github.com/aschepis/backscratcher/legion/context"
	"github.com/aschepis/backscratcher/legion/llm"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

func init() {
	llm.Register(llm.ProviderOpenAI, llm.FactoryFunc(func(cfg *llm.ProviderConfig) (llm.Adapter, error) {
		return NewOpenAIProvider(cfg)
	}))
}

// OpenAIProvider implements llm.Adapter for OpenAI-compatible chat
// completion APIs.
type OpenAIProvider struct {
	cfg    llm.ProviderConfig
	client *openai.Client
	logger zerolog.Logger

	// newClient builds a backend handle; replaced in tests.
	newClient func() *openai.Client

	asyncOnce   sync.Once
	asyncClient *openai.Client
}

// NewOpenAIProvider creates a new OpenAIProvider.
// If the API key is empty, it will return an initialization error.
// If the base URL is empty, it will use the default OpenAI API endpoint.
func NewOpenAIProvider(cfg *llm.ProviderConfig) (*OpenAIProvider, error) {
	c := cfg.WithDefaults()
	if c.APIKey == "" {
		return nil, llm.NewInitializationError(llm.ProviderOpenAI, "failed to initialize OpenAI client", fmt.Errorf("api key is required"))
	}

	p := &OpenAIProvider{
		cfg:    c,
		logger: c.Logger.With().Str("component", "openai").Logger(),
	}
	p.newClient = func() *openai.Client {
		config := openai.DefaultConfig(p.cfg.APIKey)
		if p.cfg.BaseURL != "" {
			config.BaseURL = p.cfg.BaseURL
		}
		if p.cfg.Organization != "" {
			config.OrgID = p.cfg.Organization
		}
		config.HTTPClient = &http.Client{Timeout: p.cfg.Timeout}
		return openai.NewClientWithConfig(config)
	}
	p.client = p.newClient()

	p.logger.Debug().Str("base_url", c.BaseURL).Msg("OpenAI provider created")
	return p, nil
}

// Name implements llm.Adapter.
func (p *OpenAIProvider) Name() string {
	return llm.ProviderOpenAI
}

// asyncHandle returns the asynchronous client, building it exactly once.
func (p *OpenAIProvider) asyncHandle() *openai.Client {
	p.asyncOnce.Do(func() {
		p.asyncClient = p.newClient()
		p.logger.Debug().Msg("OpenAI async client initialized")
	})
	return p.asyncClient
}

// Chat implements llm.Adapter.Chat.
func (p *OpenAIProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ModelResponse, error) {
	return p.chat(ctx, p.client, req)
}

// ToolChat implements llm.Adapter.ToolChat.
func (p *OpenAIProvider) ToolChat(ctx context.Context, req *llm.ToolChatRequest) (*llm.ModelResponse, error) {
	return p.toolChat(ctx, p.client, req)
}

// JSONChat implements llm.Adapter.JSONChat.
func (p *OpenAIProvider) JSONChat(ctx context.Context, req *llm.JSONChatRequest) (*llm.ModelResponse, error) {
	return p.jsonChat(ctx, p.client, req)
}

// ChatAsync implements llm.Adapter.ChatAsync.
func (p *OpenAIProvider) ChatAsync(ctx context.Context, req *llm.ChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.chat(ctx, p.asyncHandle(), req)
	})
}

// ToolChatAsync implements llm.Adapter.ToolChatAsync.
func (p *OpenAIProvider) ToolChatAsync(ctx context.Context, req *llm.ToolChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.toolChat(ctx, p.asyncHandle(), req)
	})
}

// JSONChatAsync implements llm.Adapter.JSONChatAsync.
func (p *OpenAIProvider) JSONChatAsync(ctx context.Context, req *llm.JSONChatRequest) *llm.Call {
	return llm.Go(ctx, func(ctx context.Context) (*llm.ModelResponse, error) {
		return p.jsonChat(ctx, p.asyncHandle(), req)
	})
}

func (p *OpenAIProvider) chat(ctx context.Context, client *openai.Client, req *llm.ChatRequest) (*llm.ModelResponse, error) {
	if req == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeChat, "request is required", nil)
	}

	chatReq := p.baseRequest(req.Model, req.Messages, req.Temperature, req.MaxTokens)
	if req.Stream {
		resp, err := p.stream(ctx, client, chatReq)
		if err != nil {
			return nil, llm.WrapError(llm.ProviderOpenAI, llm.ModeChat, "openai completion failed", err)
		}
		return resp, nil
	}

	resp, err := p.send(ctx, client, chatReq)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderOpenAI, llm.ModeChat, "openai completion failed", err)
	}
	return toModelResponse(resp), nil
}

func (p *OpenAIProvider) toolChat(ctx context.Context, client *openai.Client, req *llm.ToolChatRequest) (*llm.ModelResponse, error) {
	if req == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeTools, "request is required", nil)
	}

	chatReq := p.baseRequest(req.Model, req.Messages, req.Temperature, req.MaxTokens)
	if len(req.Tools) > 0 {
		chatReq.Tools = ToOpenAITools(req.Tools)
		// Let the model decide when to use tools
		chatReq.ToolChoice = "auto"
	}

	resp, err := p.send(ctx, client, chatReq)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderOpenAI, llm.ModeTools, "openai tool completion failed", err)
	}

	out := toModelResponse(resp)
	p.debugToolCalls(ctx, out.ToolCalls)
	return out, nil
}

func (p *OpenAIProvider) jsonChat(ctx context.Context, client *openai.Client, req *llm.JSONChatRequest) (*llm.ModelResponse, error) {
	if req == nil || req.Schema == nil {
		return nil, llm.NewInvalidRequestError(llm.ModeJSON, "a response schema is required", nil)
	}

	chatReq := p.baseRequest(req.Model, llm.WithSchemaInstruction(req.Messages, req.Schema), req.Temperature, req.MaxTokens)
	chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}

	resp, err := p.send(ctx, client, chatReq)
	if err != nil {
		return nil, llm.WrapError(llm.ProviderOpenAI, llm.ModeJSON, "openai JSON completion failed", err)
	}

	out := toModelResponse(resp)
	out.ToolCalls = nil
	if err := llm.ValidateJSONContent(llm.ProviderOpenAI, out.Content, req.Schema); err != nil {
		p.logger.Warn().Err(err).Str("model", chatReq.Model).Msg("JSON completion did not match schema")
		return nil, err
	}
	return out, nil
}

func (p *OpenAIProvider) baseRequest(model string, msgs []llm.Message, temperature float64, maxTokens int) openai.ChatCompletionRequest {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.cfg.ResolveModel(model),
		Messages:    ToOpenAIMessages(msgs),
		Temperature: float32(temperature),
	}
	if maxTokens > 0 {
		chatReq.MaxTokens = maxTokens
	}
	return chatReq
}

func (p *OpenAIProvider) send(ctx context.Context, client *openai.Client, chatReq openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	if chatReq.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	resp, err := client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, convertOpenAIError(err)
	}
	return &resp, nil
}

// stream runs a streaming completion and folds the deltas into one response.
func (p *OpenAIProvider) stream(ctx context.Context, client *openai.Client, chatReq openai.ChatCompletionRequest) (*llm.ModelResponse, error) {
	if chatReq.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	chatReq.Stream = true
	chatReq.StreamOptions = &openai.StreamOptions{IncludeUsage: true}

	stream, err := client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return nil, convertOpenAIError(err)
	}
	defer stream.Close()

	var (
		content strings.Builder
		usage   llm.Usage
		chunks  []openai.ChatCompletionStreamResponse
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, convertOpenAIError(err)
		}
		chunks = append(chunks, chunk)
		for _, choice := range chunk.Choices {
			content.WriteString(choice.Delta.Content)
		}
		if chunk.Usage != nil {
			usage = fromUsage(*chunk.Usage)
		}
	}

	return &llm.ModelResponse{
		Content:     strings.TrimSpace(content.String()),
		RawResponse: chunks,
		Usage:       usage,
	}, nil
}

// debugToolCalls renders each extracted tool call when debugging is on.
func (p *OpenAIProvider) debugToolCalls(ctx context.Context, calls []llm.ToolCall) {
	cb, hasCallback := ctxpkg.GetDebugCallback(ctx)
	if !p.cfg.Debug && !hasCallback {
		return
	}
	for _, call := range calls {
		text := describeToolCall(call)
		p.logger.Debug().Str("tool", call.Function.Name).Str("id", call.ID).Msg("Extracted tool call")
		if p.cfg.Debug {
			fmt.Fprintf(p.cfg.DebugWriter, "\nExtracted tool call: %s\n", text)
		}
		if hasCallback {
			cb("Extracted tool call: " + text)
		}
	}
}

// convertOpenAIError adds the HTTP status to API errors so it survives in
// the wrapped message.
func convertOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("OpenAI API error (status %d): %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("OpenAI request error (status %d): %w", reqErr.HTTPStatusCode, err)
	}
	return err
}

// Ensure OpenAIProvider implements llm.Adapter
var _ llm.Adapter = (*OpenAIProvider)(nil)
