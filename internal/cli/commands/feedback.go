package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/tabmeta/internal/cli/output"
	"github.com/leapstack-labs/tabmeta/internal/feedback"
)

// NewFeedbackCommand creates the feedback command group.
func NewFeedbackCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record and summarize dashboard feedback",
	}
	cmd.AddCommand(newFeedbackLogCommand())
	cmd.AddCommand(newFeedbackStatsCommand())
	return cmd
}

func openFeedbackStore(cc *CommandContext) (*feedback.Store, error) {
	dir := filepath.Dir(cc.Cfg.FeedbackDB)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating feedback directory: %w", err)
		}
	}
	return feedback.Open(cc.Cfg.FeedbackDB)
}

func newFeedbackLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <dashboard>",
		Short: "Record one feedback entry",
		Example: `  tabmeta feedback log sales --question "why is margin blank" --resolved
  tabmeta feedback log sales -q "join broken?" --comment "escalated"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := openFeedbackStore(cc)
			if err != nil {
				return err
			}
			defer store.Close()

			question, _ := cmd.Flags().GetString("question")
			answer, _ := cmd.Flags().GetString("answer")
			comment, _ := cmd.Flags().GetString("comment")
			resolved, _ := cmd.Flags().GetBool("resolved")
			session, _ := cmd.Flags().GetString("session")

			entry, err := store.Log(cmd.Context(), feedback.Entry{
				SessionID: session,
				Dashboard: args[0],
				Question:  question,
				Answer:    answer,
				Comment:   comment,
				Resolved:  resolved,
			})
			if err != nil {
				return err
			}
			cc.Renderer.Printf("logged %s (session %s)\n", entry.ID, entry.SessionID)
			return nil
		},
	}
	cmd.Flags().StringP("question", "q", "", "The question that was asked")
	cmd.Flags().StringP("answer", "a", "", "The answer that was given")
	cmd.Flags().String("comment", "", "Free-form comment")
	cmd.Flags().Bool("resolved", false, "Mark the interaction as resolved")
	cmd.Flags().String("session", "", "Session id (generated when empty)")
	return cmd
}

func newFeedbackStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [dashboard]",
		Short: "Show resolution stats",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			store, err := openFeedbackStore(cc)
			if err != nil {
				return err
			}
			defer store.Close()

			r := cc.Renderer
			if len(args) == 1 {
				st, err := store.Stats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return renderStats(r, []feedback.Stats{st})
			}

			stats, err := store.StatsByDashboard(cmd.Context())
			if err != nil {
				return err
			}
			return renderStats(r, stats)
		},
	}
	return cmd
}

func renderStats(r *output.Renderer, stats []feedback.Stats) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		enc := json.NewEncoder(r.Writer())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Feedback stats"))
		r.Println("")
		for _, st := range stats {
			name := st.Dashboard
			if name == "" {
				name = "all dashboards"
			}
			r.Println(output.FormatHeader(2, name))
			r.Println(output.FormatKeyValue("Total", fmt.Sprintf("%d", st.Total)))
			r.Println(output.FormatKeyValue("Resolved", fmt.Sprintf("%d", st.Resolved)))
			r.Println(output.FormatKeyValue("Unresolved", fmt.Sprintf("%d", st.Unresolved)))
			r.Println(output.FormatKeyValue("Resolution rate", fmt.Sprintf("%.0f%%", st.ResolutionRate*100)))
			r.Println("")
		}
		return nil
	default:
		if len(stats) == 0 {
			r.Println(r.Styles().Muted.Render("No feedback recorded."))
			return nil
		}
		tbl := r.NewTable()
		tbl.AppendHeader([]any{"DASHBOARD", "TOTAL", "RESOLVED", "UNRESOLVED", "RATE"})
		for _, st := range stats {
			name := st.Dashboard
			if name == "" {
				name = "(all)"
			}
			tbl.AppendRow([]any{name, st.Total, st.Resolved, st.Unresolved,
				fmt.Sprintf("%.0f%%", st.ResolutionRate*100)})
		}
		tbl.Render()
		return nil
	}
}
