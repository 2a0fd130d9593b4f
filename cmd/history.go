package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/abhisek/studypal/internal/store"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved generation results",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		flowName, _ := cmd.Flags().GetString("flow")
		user, _ := cmd.Flags().GetString("user")

		s, err := storeOnly(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		items, err := s.HistoryRepo().List(cmd.Context(), user, store.HistoryFilter{Flow: flowName, Limit: limit})
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No saved results.")
			return nil
		}

		fmt.Printf("%-36s  %-19s  %-20s  %s\n", "ID", "Created", "Capability", "Title")
		fmt.Println(strings.Repeat("─", 100))
		for _, it := range items {
			fmt.Printf("%-36s  %-19s  %-20s  %s\n",
				it.ID,
				it.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				it.Flow,
				truncate(it.Title, 40))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the input and output of a saved result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		s, err := storeOnly(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		it, err := s.HistoryRepo().Get(cmd.Context(), user, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("result %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}

		sep := strings.Repeat("─", 60)
		fmt.Printf("ID:          %s\n", it.ID)
		fmt.Printf("Created:     %s\n", it.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Capability:  %s\n", it.Flow)
		fmt.Printf("Title:       %s\n", it.Title)
		fmt.Println()
		fmt.Println(sep)
		fmt.Println("INPUT")
		fmt.Println(sep)
		fmt.Println(indentJSON(it.Input))
		fmt.Println(sep)
		fmt.Println("OUTPUT")
		fmt.Println(sep)
		fmt.Println(indentJSON(it.Output))
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		s, err := storeOnly(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		err = s.HistoryRepo().Delete(cmd.Context(), user, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("result %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("delete result: %w", err)
		}
		fmt.Println("Deleted", args[0])
		return nil
	},
}

// storeOnly opens the database without wiring any LLM provider.
func storeOnly(cmd *cobra.Command) (*store.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return openStore(cmd, cfg)
}

func indentJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func init() {
	historyCmd.PersistentFlags().StringP("user", "u", localUser, "User whose history to read")
	historyListCmd.Flags().IntP("limit", "n", 20, "Number of results to show")
	historyListCmd.Flags().StringP("flow", "c", "", "Filter by capability (e.g. generate-flashcards)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}
