package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/adalundhe/sibyl/core/document"
	"github.com/adalundhe/sibyl/core/retrieval"
)

var (
	ingestWait    bool
	ingestTimeout time.Duration
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Ingest documents into the retrieval index",
	Long: `Ingest chunks each file, embeds the chunks through the cache, and
upserts them into the vector index as a background job.

Examples:
  sibyl ingest handbook.txt policies.txt
  sibyl ingest --wait --timeout 5m corpus/*.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVarP(&ingestWait, "wait", "w", true, "Wait for the ingestion job to finish")
	ingestCmd.Flags().DurationVar(&ingestTimeout, "timeout", 2*time.Minute, "How long to wait for the job")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	docs := make([]document.Document, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		docs = append(docs, document.New(string(data), filepath.Base(path)))
	}

	jobID, err := a.queue.Enqueue(docs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ingestion job %s queued (%d documents)\n", jobID, len(docs))

	if !ingestWait {
		return nil
	}

	status, err := waitForJob(a.queue, jobID, ingestTimeout)
	if err != nil {
		return err
	}

	if status.State == retrieval.JobFailed {
		return fmt.Errorf("ingestion failed: %s", status.Error)
	}

	fmt.Fprintf(out, "ingested %d chunks from %d documents\n", status.Ingested, status.Docs)
	return nil
}
