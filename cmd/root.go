// Package cmd provides the CLI commands for the sibyl question-answering
// core.
package cmd

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sibyl",
	Short: "Sibyl - an agentic retrieval-augmented question answering core",
	Long: `Sibyl routes questions to the best-suited reasoning strategy, grounds
answers in ingested documents, and falls back through alternate strategies
when one fails.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
}
