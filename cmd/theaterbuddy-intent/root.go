package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avvvet/theaterbuddy-intent/internal/config"
	"github.com/avvvet/theaterbuddy-intent/internal/logger"
)

var (
	configFile string
	logLevel   string

	cfg *config.Config
	log *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "theaterbuddy-intent",
	Short: "Theater chatbot that recognizes intents and extracts their parameters",
	Long: `theaterbuddy-intent asks an LLM to classify each customer message into
one of the theater intents (find a show, book tickets, theater info, ...)
and to fill in its parameters, keeping a short dialogue history as context.

Without a subcommand it starts the interactive chat.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
	RunE:              runChat,
}

// Execute runs the root command with signal handling
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig is called before any command runs to load configuration and
// the logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	// The catalog listing needs no provider credentials.
	if cmd.Name() == "intents" || cmd.Name() == "help" {
		log = zap.NewNop()
		return nil
	}

	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}

	l, err := logger.New(loaded.LogLevel, loaded.LogFormat)
	if err != nil {
		return err
	}

	cfg, log = loaded, l
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a config.yaml (default ./configs/config.yaml or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(intentsCmd)
}
