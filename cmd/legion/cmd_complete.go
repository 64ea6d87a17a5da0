package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	ctxpkg "github.com/aschepis/backscratcher/legion/context"
	"github.com/aschepis/backscratcher/legion/llm"
	legionlogger "github.com/aschepis/backscratcher/legion/logger"
)

type completeOptions struct {
	provider        string
	model           string
	system          string
	schemaPath      string
	temperature     float64
	jsonTemperature float64
	maxTokens       int
	echoTool        bool
	async           bool
	stream          bool
	debug           bool
}

var completeOpts completeOptions

func init() {
	rootCmd.AddCommand(completeCmd)

	f := completeCmd.Flags()
	f.StringVar(&completeOpts.provider, "provider", "", "Backend to use (default: provider from config)")
	f.StringVar(&completeOpts.model, "model", "", "Model name (default: model from config)")
	f.StringVar(&completeOpts.system, "system", "", "System prompt")
	f.StringVar(&completeOpts.schemaPath, "schema", "", "JSON Schema file; the reply must conform to it")
	f.Float64Var(&completeOpts.temperature, "temperature", 0, "Sampling temperature")
	f.Float64Var(&completeOpts.jsonTemperature, "json-temperature", 0, "Temperature of the formatting pass when tools and a schema are combined")
	f.IntVar(&completeOpts.maxTokens, "max-tokens", 0, "Completion token limit (0: backend default)")
	f.BoolVar(&completeOpts.echoTool, "echo-tool", false, "Offer an echo tool to the model and run any calls it makes")
	f.BoolVar(&completeOpts.async, "async", false, "Use the asynchronous completion path")
	f.BoolVar(&completeOpts.stream, "stream", false, "Stream the backend reply (chat mode only)")
	f.BoolVar(&completeOpts.debug, "debug", false, "Enable debug logging and tool-call diagnostics")
}

var completeCmd = &cobra.Command{
	Use:   "complete PROMPT...",
	Short: "Run a single completion",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		if completeOpts.debug {
			cfg.Debug = true
		}

		logger, closer, err := legionlogger.InitWithOptions(logOptions(cfg, path, completeOpts.debug))
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer closer.Close() //nolint:errcheck // best effort on exit

		provider, err := resolveProvider(completeOpts.provider, cfg.Provider)
		if err != nil {
			return err
		}
		providerCfg, err := cfg.ProviderConfig(provider, logger)
		if err != nil {
			return err
		}
		adapter, err := llm.CreateProvider(provider, providerCfg)
		if err != nil {
			return err
		}
		adapter = llm.WrapWithMiddleware(adapter, llm.LoggingMiddleware(logger))

		req, err := buildRequest(completeOpts, strings.Join(args, " "))
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = ctxpkg.WithRequestID(ctx, uuid.NewString())

		dispatcher := llm.NewDispatcher(adapter, logger)
		resp, err := runCompletion(ctx, dispatcher, req, completeOpts.async)
		if err != nil {
			return err
		}
		return printResponse(ctx, cmd.OutOrStdout(), req, resp)
	},
}

// fallbackProviders is the order tried when the configured provider is not
// compiled in.
var fallbackProviders = []string{llm.ProviderOllama, llm.ProviderOpenAI, llm.ProviderAnthropic}

// resolveProvider returns the explicitly requested provider, or the first
// registered one among the configured default and the fallbacks.
func resolveProvider(requested, configured string) (string, error) {
	if requested != "" {
		return requested, nil
	}
	return llm.DefaultRegistry().ResolveFirst(append([]string{configured}, fallbackProviders...))
}

func buildRequest(opts completeOptions, prompt string) (*llm.CompletionRequest, error) {
	req := &llm.CompletionRequest{
		Model:           opts.model,
		Temperature:     opts.temperature,
		JSONTemperature: opts.jsonTemperature,
		MaxTokens:       opts.maxTokens,
		Stream:          opts.stream,
	}
	if opts.system != "" {
		req.Messages = append(req.Messages, llm.SystemMessage(opts.system))
	}
	req.Messages = append(req.Messages, llm.UserMessage(prompt))

	if opts.schemaPath != "" {
		data, err := os.ReadFile(opts.schemaPath) //#nosec G304 -- user-supplied schema path
		if err != nil {
			return nil, fmt.Errorf("read schema: %w", err)
		}
		schema, err := llm.ParseSchema(data)
		if err != nil {
			return nil, err
		}
		req.ResponseSchema = schema
	}
	if opts.echoTool {
		req.Tools = []llm.Tool{newEchoTool()}
	}
	return req, nil
}

func runCompletion(ctx context.Context, d *llm.Dispatcher, req *llm.CompletionRequest, async bool) (*llm.ModelResponse, error) {
	if async {
		return d.CompleteAsync(ctx, req).Await(ctx)
	}
	return d.Complete(ctx, req)
}

// printResponse writes the content, any tool calls with their local results,
// and the token usage.
func printResponse(ctx context.Context, w io.Writer, req *llm.CompletionRequest, resp *llm.ModelResponse) error {
	if resp.Content != "" {
		fmt.Fprintln(w, resp.Content)
	}
	for _, call := range resp.ToolCalls {
		fmt.Fprintf(w, "tool call %s: %s(%s)\n", call.ID, call.Function.Name, call.Function.Arguments)
		msg, err := llm.RunToolCall(ctx, req.Tools, call)
		if err != nil {
			fmt.Fprintf(w, "  error: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "  result: %s\n", msg.Content)
	}
	_, err := fmt.Fprintf(w, "usage: prompt=%d completion=%d total=%d\n",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	return err
}

type echoParams struct {
	Text string `json:"text" jsonschema:"description=Text to repeat back"`
}

func newEchoTool() llm.Tool {
	return llm.NewFuncTool("echo", "Repeat the given text back verbatim.",
		func(_ context.Context, p echoParams) (string, error) {
			return p.Text, nil
		})
}
