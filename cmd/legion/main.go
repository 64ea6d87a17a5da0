package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aschepis/backscratcher/legion/config"
	legionlogger "github.com/aschepis/backscratcher/legion/logger"

	// Backends register themselves with the default provider registry.
	_ "github.com/aschepis/backscratcher/legion/llm/anthropic"
	_ "github.com/aschepis/backscratcher/legion/llm/ollama"
	_ "github.com/aschepis/backscratcher/legion/llm/openai"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "legion",
	Short:         "Run chat, tool and JSON completions against any configured LLM backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: $LEGION_CONFIG_PATH or ~/.legion/config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, path, nil
}

// logOptions maps the log section of the config onto logger options. Logs go
// next to the config file unless console output is requested.
func logOptions(cfg *config.Config, path string, debug bool) legionlogger.Options {
	opts := legionlogger.Options{
		File:    cfg.Log.File,
		Console: cfg.Log.Console,
		Level:   cfg.Log.Level,
	}
	if opts.File == "" && !opts.Console {
		opts.File = filepath.Join(filepath.Dir(path), "legion.log")
	}
	if debug {
		opts.Level = "debug"
	}
	return opts
}
