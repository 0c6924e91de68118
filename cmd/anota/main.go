// Command anota runs the WhatsApp personal-assistant backend: webhook
// ingress, intent classification, entry extraction, and the reminder and
// morning-digest schedulers, all in one long-running process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dcastillocr/anota/pkg/anota/assistant"
	"github.com/dcastillocr/anota/pkg/anota/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:          "anota",
		Short:        "Asistente personal por WhatsApp",
		Long:         "anota is a conversational personal-assistant backend reachable over the WhatsApp Business Cloud API.",
		Version:      version,
		RunE:         run,
		SilenceUsage: true,
	}
	root.Flags().StringP("config", "c", "", "path to an optional YAML config file")
	root.Flags().BoolP("verbose", "v", false, "enable debug logging")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := newLogger(cfg, verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := assistant.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return a.Run(ctx)
}

func newLogger(cfg config.Config, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose || cfg.Debug || cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	} else if cfg.LogLevel == "warn" {
		level = slog.LevelWarn
	}

	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(handler)
}
