package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/sibyl/core/analyzer"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze <question>",
	Short: "Show the routing decision for a question without answering it",
	Long: `Analyze runs only the task analyzer and prints the resulting
decision: category, complexity, chosen agent, confidence, and the fallback
order. No agent is invoked.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output the decision as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	decision, err := analyzer.Analyze(question, analyzer.Context{})
	if err != nil {
		return err
	}

	if analyzeJSON {
		return printJSON(cmd, map[string]any{
			"chosen_agent":   decision.ChosenAgent,
			"category":       decision.Category,
			"complexity":     decision.Complexity.String(),
			"confidence":     decision.Confidence,
			"reasoning":      decision.Reasoning,
			"fallback_order": decision.FallbackOrder,
			"needs_web":      decision.NeedsWeb,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "agent:      %s\n", decision.ChosenAgent)
	fmt.Fprintf(out, "category:   %s\n", decision.Category)
	fmt.Fprintf(out, "complexity: %s\n", decision.Complexity)
	fmt.Fprintf(out, "confidence: %.2f\n", decision.Confidence)
	fmt.Fprintf(out, "fallbacks:  %v\n", decision.FallbackOrder)
	fmt.Fprintf(out, "needs web:  %v\n", decision.NeedsWeb)
	fmt.Fprintf(out, "reasoning:  %s\n", decision.Reasoning)
	return nil
}
