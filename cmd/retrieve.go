package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	retrieveK    int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <query>",
	Short: "Query the vector index directly, without the orchestrator",
	Long: `Retrieve embeds the query and returns the top-k chunks by cosine
similarity, marking which matches clear the relevance threshold.

Examples:
  sibyl retrieve "company values"
  sibyl retrieve -k 10 --json "incident response"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	rootCmd.AddCommand(retrieveCmd)

	retrieveCmd.Flags().IntVarP(&retrieveK, "k", "k", 0, "Number of results (0 uses the configured default)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "Output results as JSON")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.retrieval.Retrieve(context.Background(), query, retrieveK)
	if err != nil {
		return err
	}

	if retrieveJSON {
		return printJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	if result.Empty() {
		fmt.Fprintln(out, "no matches")
		return nil
	}

	for i, m := range result.Matches {
		marker := " "
		if m.Strong {
			marker = "*"
		}
		fmt.Fprintf(out, "%s [%d] %.3f %s\n    %s\n", marker, i+1, m.Score, m.Chunk.ChunkID, snippet(m.Chunk.Text))
	}
	return nil
}

func snippet(text string) string {
	const max = 160
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
