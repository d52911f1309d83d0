// Package main is the ragstore CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/ragstore/internal/config"
	"github.com/hyperjump/ragstore/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/ragstore/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development), and when neither exists it
// falls back to built-in defaults. Returns the config and the path that was actually
// loaded, which is empty for built-in defaults.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				return config.Default(cwd), "", nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// app carries the persistent flags shared by every command.
type app struct {
	configPath string
	debug      bool
}

// setup loads the config and builds the logger for a command.
func (a *app) setup() (*config.Config, string, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(a.configPath)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || a.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", debugMode))
	return cfg, resolved, logger, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ragstore",
		Short:         "Local embedding store and retrieval for RAG",
		Long:          `ragstore chunks and embeds text and files, keeps the vectors in a local store, and answers similarity queries for retrieval-augmented generation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath, "config file path")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newAddCmd(a),
		newSearchCmd(a),
		newSourcesCmd(a),
		newClearCmd(a),
		newStatusCmd(a),
		newWatchCmd(),
		newVersionCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
