package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/svedentsov/chatstream/pkg/api"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <task-id>",
	Short: "Rate a generated answer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rating, _ := cmd.Flags().GetInt("rating")
		comment, _ := cmd.Flags().GetString("comment")

		if rating != 1 && rating != -1 {
			return fmt.Errorf("rating must be 1 or -1")
		}

		client := newAPIClient()
		err := client.SubmitFeedback(cmd.Context(), api.Feedback{
			TaskID:  args[0],
			Rating:  rating,
			Comment: comment,
		})
		if err != nil {
			return fmt.Errorf("failed to submit feedback: %w", err)
		}
		fmt.Println("Feedback submitted")
		return nil
	},
}

func init() {
	feedbackCmd.Flags().Int("rating", 1, "1 for positive, -1 for negative")
	feedbackCmd.Flags().String("comment", "", "optional free-form comment")
	rootCmd.AddCommand(feedbackCmd)
}
