package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ashureev/pickleai/internal/chat"
	"github.com/ashureev/pickleai/internal/domain"
	"github.com/ashureev/pickleai/internal/knowledge"
	"github.com/ashureev/pickleai/internal/shared"
)

type AnalyzeFlags struct {
	KnowledgeBase string
	Context       string
	Format        string
	Seed          int64
}

func NewAnalyzeFlags() *AnalyzeFlags {
	return &AnalyzeFlags{Format: "yaml"}
}

func (f *AnalyzeFlags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.KnowledgeBase, "knowledge-base", f.KnowledgeBase, "YAML file of extra or replacement categories")
	fs.StringVar(&f.Context, "context", f.Context, "Known user context as JSON, e.g. '{\"experience\":\"beginner\"}'")
	fs.StringVar(&f.Format, "format", f.Format, "Output format (yaml,json)")
	fs.Int64Var(&f.Seed, "seed", f.Seed, "Seed for follow-up question selection (0 picks one from the clock)")
}

// analysisReport is the printable form of a chat.Plan.
type analysisReport struct {
	Category    string             `json:"category,omitempty" yaml:"category,omitempty"`
	Confidence  float64            `json:"confidence" yaml:"confidence"`
	Score       int                `json:"score" yaml:"score"`
	MissingInfo []domain.Slot      `json:"missing_info,omitempty" yaml:"missing_info,omitempty"`
	FollowUps   []string           `json:"follow_ups,omitempty" yaml:"follow_ups,omitempty"`
	Extracted   domain.UserContext `json:"extracted" yaml:"extracted"`
	Prompt      string             `json:"prompt" yaml:"prompt"`
}

func NewAnalyzeCommand() *cobra.Command {
	f := NewAnalyzeFlags()

	cmd := &cobra.Command{
		Use:   "analyze MESSAGE...",
		Short: "Show how a message is classified and which prompt it produces",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := knowledge.LoadYAML(knowledge.Default(), f.KnowledgeBase)
			if err != nil {
				return err
			}

			var current domain.UserContext
			if f.Context != "" {
				if err := json.Unmarshal([]byte(f.Context), &current); err != nil {
					return fmt.Errorf("invalid --context: %w", err)
				}
			}

			var rnd shared.Rand
			if f.Seed != 0 {
				rnd = shared.NewRand(f.Seed)
			}
			plan := chat.NewPlanner(registry, rnd).Plan(strings.Join(args, " "), current)

			return writeReport(cmd.OutOrStdout(), f.Format, analysisReport{
				Category:    plan.Analysis.CategoryName(),
				Confidence:  plan.Analysis.Confidence,
				Score:       plan.Analysis.Score,
				MissingInfo: plan.Analysis.MissingInfo,
				FollowUps:   plan.FollowUps,
				Extracted:   plan.Extracted,
				Prompt:      plan.Prompt,
			})
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}

func writeReport(w io.Writer, format string, r analysisReport) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
