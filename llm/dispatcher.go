package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Dispatcher is the single call surface over any Adapter. It picks the
// completion mode from the request and forwards to the adapter; it performs
// no backend I/O of its own.
type Dispatcher struct {
	adapter Adapter
	logger  zerolog.Logger
}

// NewDispatcher creates a Dispatcher for adapter.
func NewDispatcher(adapter Adapter, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		adapter: adapter,
		logger:  logger.With().Str("component", "dispatcher").Str("provider", adapter.Name()).Logger(),
	}
}

// Adapter returns the wrapped adapter.
func (d *Dispatcher) Adapter() Adapter {
	return d.adapter
}

// SelectMode returns the completion mode a request routes to.
func SelectMode(req *CompletionRequest) Mode {
	hasTools := len(req.Tools) > 0
	hasSchema := req.ResponseSchema != nil
	switch {
	case hasTools && hasSchema:
		return ModeToolJSON
	case hasTools:
		return ModeTools
	case hasSchema:
		return ModeJSON
	default:
		return ModeChat
	}
}

func validateRequest(req *CompletionRequest) (Mode, error) {
	if req == nil {
		return ModeChat, NewInvalidRequestError(ModeChat, "request is required", nil)
	}
	mode := SelectMode(req)
	if err := ValidateMessages(req.Messages); err != nil {
		return mode, NewInvalidRequestError(mode, "invalid messages", err)
	}
	if err := ValidateTools(req.Tools); err != nil {
		return mode, NewInvalidRequestError(mode, "invalid tools", err)
	}
	return mode, nil
}

// Complete runs one completion synchronously.
func (d *Dispatcher) Complete(ctx context.Context, req *CompletionRequest) (*ModelResponse, error) {
	mode, err := validateRequest(req)
	if err != nil {
		return nil, err
	}
	d.logger.Debug().Str("mode", string(mode)).Str("model", req.Model).Msg("Dispatching completion")

	switch mode {
	case ModeTools:
		return d.adapter.ToolChat(ctx, toolChatRequest(req))
	case ModeJSON:
		return d.adapter.JSONChat(ctx, jsonChatRequest(req, req.Messages, req.Temperature))
	case ModeToolJSON:
		if combined, ok := d.adapter.(ToolJSONChatter); ok {
			return combined.ToolJSONChat(ctx, req)
		}
		return d.toolThenJSON(ctx, req, false)
	default:
		return d.adapter.Chat(ctx, chatRequest(req))
	}
}

// CompleteAsync starts one completion on the adapter's asynchronous path and
// returns immediately.
func (d *Dispatcher) CompleteAsync(ctx context.Context, req *CompletionRequest) *Call {
	mode, err := validateRequest(req)
	if err != nil {
		return Failed(err)
	}
	d.logger.Debug().Str("mode", string(mode)).Str("model", req.Model).Bool("async", true).Msg("Dispatching completion")

	switch mode {
	case ModeTools:
		return d.adapter.ToolChatAsync(ctx, toolChatRequest(req))
	case ModeJSON:
		return d.adapter.JSONChatAsync(ctx, jsonChatRequest(req, req.Messages, req.Temperature))
	case ModeToolJSON:
		if combined, ok := d.adapter.(ToolJSONChatter); ok {
			return Go(ctx, func(ctx context.Context) (*ModelResponse, error) {
				return combined.ToolJSONChat(ctx, req)
			})
		}
		return Go(ctx, func(ctx context.Context) (*ModelResponse, error) {
			return d.toolThenJSON(ctx, req, true)
		})
	default:
		return d.adapter.ChatAsync(ctx, chatRequest(req))
	}
}

// toolThenJSON runs a tool pass followed by a formatting pass. The tool calls
// requested in the first pass are not executed; they are summarised as an
// assistant turn so the formatting pass can refer to them.
func (d *Dispatcher) toolThenJSON(ctx context.Context, req *CompletionRequest, async bool) (*ModelResponse, error) {
	var toolResp *ModelResponse
	var err error
	if async {
		toolResp, err = d.adapter.ToolChatAsync(ctx, toolChatRequest(req)).Wait()
	} else {
		toolResp, err = d.adapter.ToolChat(ctx, toolChatRequest(req))
	}
	if err != nil {
		return nil, err
	}

	followUp := append(append([]Message(nil), req.Messages...), AssistantMessage(summarizeToolTurn(toolResp)))
	jsonReq := jsonChatRequest(req, followUp, req.JSONTemperature)

	var jsonResp *ModelResponse
	if async {
		jsonResp, err = d.adapter.JSONChatAsync(ctx, jsonReq).Wait()
	} else {
		jsonResp, err = d.adapter.JSONChat(ctx, jsonReq)
	}
	if err != nil {
		return nil, err
	}

	d.logger.Debug().
		Int("tool_calls", len(toolResp.ToolCalls)).
		Msg("Combined tool and JSON completion finished")

	return &ModelResponse{
		Content:     jsonResp.Content,
		RawResponse: jsonResp.RawResponse,
		Usage:       toolResp.Usage.Add(jsonResp.Usage),
		ToolCalls:   toolResp.ToolCalls,
	}, nil
}

// summarizeToolTurn renders the first pass of a combined completion as text.
func summarizeToolTurn(resp *ModelResponse) string {
	var b strings.Builder
	if resp.Content != "" {
		b.WriteString(resp.Content)
	}
	for _, call := range resp.ToolCalls {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		args := call.Function.Arguments
		if !json.Valid([]byte(args)) {
			args = "{}"
		}
		fmt.Fprintf(&b, "Called tool %s with arguments %s", call.Function.Name, args)
	}
	if b.Len() == 0 {
		return "No tool was called."
	}
	return b.String()
}

func chatRequest(req *CompletionRequest) *ChatRequest {
	return &ChatRequest{
		Messages:    req.Messages,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      req.Stream,
	}
}

func toolChatRequest(req *CompletionRequest) *ToolChatRequest {
	return &ToolChatRequest{
		Messages:        req.Messages,
		Model:           req.Model,
		Tools:           req.Tools,
		Temperature:     req.Temperature,
		JSONTemperature: req.JSONTemperature,
		MaxTokens:       req.MaxTokens,
	}
}

func jsonChatRequest(req *CompletionRequest, msgs []Message, temperature float64) *JSONChatRequest {
	return &JSONChatRequest{
		Messages:    msgs,
		Model:       req.Model,
		Schema:      req.ResponseSchema,
		Temperature: temperature,
		MaxTokens:   req.MaxTokens,
	}
}
