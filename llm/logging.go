package llm

import (
	"context"
	"time"

	ctxpkg "github.com/aschepis/backscratcher/legion/context"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type startTimeKey struct{}

// LoggingMiddleware logs every completion with zerolog. Each call is tagged
// with a request id that is also stored on the context.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	logger = logger.With().Str("component", "llm").Logger()
	return MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, call *CallInfo) (context.Context, error) {
			id := ctxpkg.RequestID(ctx)
			if id == "" {
				id = uuid.NewString()
				ctx = ctxpkg.WithRequestID(ctx, id)
			}
			logger.Debug().
				Str("request_id", id).
				Str("provider", call.Provider).
				Str("mode", string(call.Mode)).
				Str("model", call.Model).
				Bool("async", call.Async).
				Msg("Completion started")
			return context.WithValue(ctx, startTimeKey{}, time.Now()), nil
		},
		AfterResponseFunc: func(ctx context.Context, call *CallInfo, resp *ModelResponse) (*ModelResponse, error) {
			logger.Info().
				Str("request_id", ctxpkg.RequestID(ctx)).
				Str("provider", call.Provider).
				Str("mode", string(call.Mode)).
				Str("model", call.Model).
				Dur("duration", elapsed(ctx)).
				Int("prompt_tokens", resp.Usage.PromptTokens).
				Int("completion_tokens", resp.Usage.CompletionTokens).
				Int("tool_calls", len(resp.ToolCalls)).
				Msg("Completion finished")
			return resp, nil
		},
		OnErrorFunc: func(ctx context.Context, call *CallInfo, err error) error {
			logger.Error().
				Err(err).
				Str("request_id", ctxpkg.RequestID(ctx)).
				Str("provider", call.Provider).
				Str("mode", string(call.Mode)).
				Str("model", call.Model).
				Dur("duration", elapsed(ctx)).
				Msg("Completion failed")
			return err
		},
	}
}

func elapsed(ctx context.Context) time.Duration {
	if start, ok := ctx.Value(startTimeKey{}).(time.Time); ok {
		return time.Since(start)
	}
	return 0
}
