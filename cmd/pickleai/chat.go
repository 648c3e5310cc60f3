package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ashureev/pickleai/internal/chat"
	"github.com/ashureev/pickleai/internal/config"
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/llm"
	"github.com/ashureev/pickleai/internal/prompt"
	"github.com/ashureev/pickleai/internal/security"
)

type ChatFlags struct {
	UserID        string
	NoGate        bool
	KnowledgeBase string
}

func NewChatFlags() *ChatFlags {
	return &ChatFlags{UserID: "cli"}
}

func (f *ChatFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.UserID, "user", f.UserID, "User id for rate limiting")
	fs.BoolVar(&f.NoGate, "no-gate", f.NoGate, "Skip the security gate")
	fs.StringVar(&f.KnowledgeBase, "knowledge-base", f.KnowledgeBase, "YAML file of extra or replacement categories (defaults to KNOWLEDGE_BASE_PATH)")
}

func NewChatCommand() *cobra.Command {
	f := NewChatFlags()

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with PickleAI in the terminal",
		Long: `Reads one message per line. Commands:
  /context   show what the assistant knows about you
  /clear     start over
  /quit      exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if f.KnowledgeBase == "" {
				f.KnowledgeBase = cfg.KnowledgeBasePath
			}
			registry, err := knowledge.LoadYAML(knowledge.Default(), f.KnowledgeBase)
			if err != nil {
				return err
			}

			model := llm.New(llm.Config{
				BaseURL:      cfg.LLM.BaseURL,
				APIKey:       cfg.LLM.APIKey,
				Model:        cfg.LLM.Model,
				Timeout:      cfg.LLM.Timeout,
				MaxRetries:   cfg.LLM.MaxRetries,
				HistoryLimit: cfg.LLM.HistoryLimit,
			})

			opts := []chat.Option{chat.WithSession(f.UserID, "cli", "cli")}
			if !f.NoGate {
				limits := security.NewMemoryStore(time.Minute)
				defer limits.Close()
				opts = append(opts, chat.WithGate(security.NewGate(limits, security.Config{
					PerMinute:      cfg.RateLimit.PerMinute,
					PerDay:         cfg.RateLimit.PerDay,
					Cooldown:       cfg.RateLimit.Cooldown,
					AllowedIntents: cfg.RateLimit.AllowedIntents,
				})))
			}

			a := chat.NewAssistant(chat.NewPlanner(registry, nil), model, opts...)
			return runREPL(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), a, f.UserID)
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}

// runREPL drives a until in is exhausted or the user quits.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, a *chat.Assistant, userID string) error {
	a.InitializeChat()
	printLast(out, a.GetState())

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			a.ClearMessages()
			a.InitializeChat()
			printLast(out, a.GetState())
			continue
		case "/context":
			printContext(out, a.GetState().Context)
			continue
		}

		state := a.SendMessage(ctx, line, userID)
		if state.Error != "" {
			slog.Debug("Chat turn failed", "error", state.Error)
			fmt.Fprintf(out, "error: %s\n", state.Error)
			a.ClearError()
			continue
		}
		printLast(out, state)
	}
}

func printLast(out io.Writer, s domain.ChatState) {
	if m, ok := s.LastMessage(); ok && m.Role == domain.RoleAssistant {
		fmt.Fprintf(out, "PickleAI: %s\n", m.Content)
	}
}

func printContext(out io.Writer, uc domain.UserContext) {
	known := uc.Known()
	if len(known) == 0 {
		fmt.Fprintln(out, "Nothing known yet.")
		return
	}
	for _, f := range known {
		fmt.Fprintf(out, "  %s: %s\n", prompt.Label(f.Slot), f.Value)
	}
}
