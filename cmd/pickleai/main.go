// pickleai is the command line companion to the PickleAI server.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logLevel = "warn"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pickleai",
		Short: "PickleAI pickleball assistant tools",
		Long: `pickleai previews how messages are routed through the knowledge base
and runs an interactive chat against the configured language model.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(logLevel)); err != nil {
				return fmt.Errorf("cannot parse log-level: %w", err)
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			slog.Debug("debug logging enabled")
			return nil
		},
	}

	root.AddCommand(
		NewAnalyzeCommand(),
		NewChatCommand(),
	)

	root.PersistentFlags().StringVar(&logLevel, "log-level", logLevel,
		"Log level (debug,info,warn,error)")
	return root
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
