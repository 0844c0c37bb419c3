package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/sibyl/agents"
	"github.com/adalundhe/sibyl/core/orchestrator"
)

var (
	askSessionID string
	askAgent     string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question through the orchestrator",
	Long: `Ask routes the question through task analysis, invokes the selected
agent, and walks the fallback chain on failure.

Examples:
  sibyl ask "What are the company values?"
  sibyl ask --session support-123 "And who wrote them?"
  sibyl ask --agent workflow "Plan the data migration"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askSessionID, "session", "s", "", "Session ID for conversation continuity")
	askCmd.Flags().StringVarP(&askAgent, "agent", "a", "", "Force a specific agent (document_grounded, workflow, structured, hybrid)")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Output the full response as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	resp, err := a.orchestrator.Orchestrate(context.Background(), &orchestrator.Request{
		Question:    question,
		SessionID:   askSessionID,
		ForcedAgent: agents.Kind(askAgent),
	})
	if err != nil {
		return err
	}

	if askJSON {
		return printJSON(cmd, map[string]any{
			"answer":     resp.Answer.Text,
			"sources":    resp.Answer.Sources,
			"agent_used": resp.Answer.AgentUsed,
			"latency_ms": resp.Answer.LatencyMs,
			"state":      resp.State,
			"decision": map[string]any{
				"chosen_agent":   resp.Decision.ChosenAgent,
				"category":       resp.Decision.Category,
				"complexity":     resp.Decision.Complexity.String(),
				"confidence":     resp.Decision.Confidence,
				"reasoning":      resp.Decision.Reasoning,
				"fallback_order": resp.Decision.FallbackOrder,
			},
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, resp.Answer.Text)

	if len(resp.Answer.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for i, c := range resp.Answer.Sources {
			switch c.Origin {
			case agents.OriginWeb:
				fmt.Fprintf(out, "  [%d] web: %s (%s)\n", i+1, c.Title, c.URL)
			default:
				fmt.Fprintf(out, "  [%d] document chunk %s (score %.2f)\n", i+1, c.ChunkID, c.Score)
			}
		}
	}

	if resp.Answer.AgentUsed != "" {
		fmt.Fprintf(out, "\nAnswered by %s in %dms\n", resp.Answer.AgentUsed, resp.Answer.LatencyMs)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
