package cmd

import (
	"fmt"
	"os"

	"github.com/abhisek/studypal/internal/drill"
	"github.com/abhisek/studypal/internal/logger"
	"github.com/spf13/cobra"
)

var drillCmd = &cobra.Command{
	Use:   "drill",
	Short: "Study flashcards generated from your notes in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		count, _ := cmd.Flags().GetInt("count")
		user, _ := cmd.Flags().GetString("user")

		text, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read notes: %w", err)
		}

		// The TUI owns the terminal; keep log lines off it.
		a, err := newApp(cmd.Context(), cmd, logger.Nop())
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := drill.Run(cmd.Context(), a.svc, drill.Options{
			UserID: user,
			Text:   string(text),
			Count:  count,
		})
		if err != nil {
			return err
		}
		if len(results) > 0 {
			correct, avg := drill.Tally(results)
			fmt.Printf("%d of %d correct, average score %.0f\n", correct, len(results), avg)
		}
		return nil
	},
}

func init() {
	drillCmd.Flags().StringP("file", "f", "", "Notes to generate flashcards from")
	drillCmd.Flags().IntP("count", "n", 10, "Number of flashcards")
	drillCmd.Flags().StringP("user", "u", localUser, "User ID charged for the drill")
	_ = drillCmd.MarkFlagRequired("file")
}
