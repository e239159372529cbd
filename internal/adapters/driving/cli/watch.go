package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/loom-gateway/internal/adapters/driving/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Ingest PDFs dropped into an inbox directory",
	Long: `Watches an inbox directory with one sub-directory per course and
ingests every PDF written into <dir>/<course_id>/. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errServicesNotConfigured
	}

	w := watcher.New(args[0], ingestService)
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.Run(cmd.Context())
	}()

	for {
		select {
		case res := <-w.Results():
			if res.Err != nil {
				cmd.PrintErrf("Failed %s: %v\n", filepath.Base(res.Path), res.Err)
				continue
			}
			cmd.Printf("Ingested %s into %s: %d chunks\n", res.Ingest.Filename, res.CourseID, res.Ingest.Chunks)
		case err := <-errCh:
			return err
		}
	}
}
