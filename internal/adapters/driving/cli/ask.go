package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

var (
	askModel  string
	askCourse string
)

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a question with course context",
	Long: `Sends a single chat completion through the gateway pipeline.

The course comes from --course, a course model (loom:ID or model@ID) or a
[course:ID] tag in the message.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "model id (default from config)")
	askCmd.Flags().StringVarP(&askCourse, "course", "c", "", "course id")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errServicesNotConfigured
	}

	resp, err := chatService.Complete(cmd.Context(), domain.ChatRequest{
		Model:    askModel,
		Messages: []domain.Message{{Role: domain.RoleUser, Content: strings.Join(args, " ")}},
	}, askCourse)
	if err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	for _, choice := range resp.Choices {
		cmd.Println(choice.Message.Content)
	}
	return nil
}
