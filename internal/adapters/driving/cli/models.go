package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models clients can select",
	Long: `Lists the default upstream model and the two virtual models of each
course, as returned by GET /v1/models.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errServicesNotConfigured
	}

	models, err := catalogService.ListModels(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if modelsJSON {
		return printJSON(cmd, models)
	}
	for _, m := range models {
		if m.Metadata != nil {
			cmd.Printf("  %-32s course %s\n", m.ID, m.Metadata.CourseID)
			continue
		}
		cmd.Printf("  %s\n", m.ID)
	}
	return nil
}
