package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

var (
	ingestCourse string
	ingestJSON   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest --course ID FILE...",
	Short: "Ingest PDF files into a course",
	Long: `Extracts, chunks and embeds each PDF and stores it under the course.
The course is created if it does not exist. Re-ingesting an unchanged file
is harmless.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestCourse, "course", "c", "", "course id (required)")
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output results as JSON")
	_ = ingestCmd.MarkFlagRequired("course")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errServicesNotConfigured
	}

	var (
		results []*domain.IngestResult
		errs    []error
	)
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", path, err))
			continue
		}
		res, err := ingestService.Ingest(cmd.Context(), domain.IngestInput{
			CourseID: ingestCourse,
			Filename: filepath.Base(path),
			Data:     data,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("ingesting %s: %w", path, err))
			continue
		}
		results = append(results, res)
		if !ingestJSON {
			cmd.Printf("Ingested %s into %s: %d chunks, %d vectors (document %s)\n",
				res.Filename, res.CourseID, res.Chunks, res.VectorUpserts, shortID(res.DocumentID))
		}
	}

	if ingestJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
	}
	return errors.Join(errs...)
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
