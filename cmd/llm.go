package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/store"
	"github.com/abhisek/studypal/internal/ui/theme"
	"github.com/spf13/cobra"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect the model call audit trail",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent model calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := store.QueryOpts{}
		opts.Limit, _ = cmd.Flags().GetInt("limit")
		opts.Purpose, _ = cmd.Flags().GetString("purpose")
		opts.Failed, _ = cmd.Flags().GetBool("failed")
		if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
			opts.From = time.Now().Add(-since)
		}

		s, err := storeOnly(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		events, err := s.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query events: %w", err)
		}
		if len(events) == 0 {
			fmt.Println("No model calls recorded.")
			return nil
		}

		row := "%-5v  %-19v  %-20v  %-11v  %-28v  %6v  %6v  %7v  %v\n"
		fmt.Printf(row, "ID", "Time", "Capability", "Tier", "Model", "In", "Out", "Ms", "OK")
		rule(112)
		for _, e := range events {
			fmt.Printf(row,
				e.ID,
				e.Timestamp.Local().Format("2006-01-02 15:04:05"),
				truncate(e.Purpose, 20),
				e.Tier+"#"+strconv.Itoa(e.Attempt),
				truncate(e.Model, 28),
				e.InputTokens,
				e.OutputTokens,
				e.LatencyMs,
				okMark(e.Success))
		}
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Show the full request and response of one model call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid ID %q", args[0])
		}

		s, err := storeOnly(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		e, err := s.EventRepo().GetLLMEvent(cmd.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("event %d not found", id)
		}
		if err != nil {
			return fmt.Errorf("get event: %w", err)
		}

		fields := [][2]string{
			{"ID", strconv.Itoa(e.ID)},
			{"Time", e.Timestamp.Local().Format("2006-01-02 15:04:05")},
			{"Provider", e.Provider},
			{"Model", e.Model},
			{"Capability", e.Purpose},
			{"Tier", fmt.Sprintf("%s (attempt %d)", e.Tier, e.Attempt)},
			{"Tokens", fmt.Sprintf("%d in / %d out", e.InputTokens, e.OutputTokens)},
			{"Latency", fmt.Sprintf("%dms", e.LatencyMs)},
			{"Result", okMark(e.Success)},
		}
		if e.ErrorMessage != "" {
			fields = append(fields, [2]string{"Error", e.ErrorMessage})
		}
		for _, f := range fields {
			fmt.Printf("%-11s %s\n", f[0]+":", f[1])
		}

		section("REQUEST", e.RequestBody)
		section("RESPONSE", e.ResponseBody)
		return nil
	},
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show token usage per capability and estimated cost per model",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := storeOnly(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		byPurpose, err := s.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("query usage: %w", err)
		}
		if len(byPurpose) == 0 {
			fmt.Println("No model usage recorded yet.")
			return nil
		}

		row := "%-20v  %6v  %10v  %10v  %10v  %8v\n"
		fmt.Println(theme.Title.Render("Usage by capability"))
		fmt.Printf(row, "Capability", "Calls", "Input", "Output", "Total", "Avg Ms")
		rule(72)
		var calls, in, out int
		for _, u := range byPurpose {
			fmt.Printf(row, truncate(u.Purpose, 20), u.Calls, u.InputTokens, u.OutputTokens,
				u.InputTokens+u.OutputTokens, u.AvgLatencyMs)
			calls += u.Calls
			in += u.InputTokens
			out += u.OutputTokens
		}
		rule(72)
		fmt.Printf(row, "TOTAL", calls, in, out, in+out, "")

		byModel, err := s.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("query model usage: %w", err)
		}
		if len(byModel) == 0 {
			return nil
		}

		row = "%-32v  %6v  %10v  %10v  %10v\n"
		fmt.Println()
		fmt.Println(theme.Title.Render("Estimated cost (USD)"))
		fmt.Printf(row, "Model", "Calls", "Input", "Output", "Cost")
		rule(76)
		total, unpriced := 0.0, []string(nil)
		for _, u := range byModel {
			cost := "?"
			if price := llm.LookupCost(u.Model); price != nil {
				c := price.Cost(u.InputTokens, u.OutputTokens)
				total += c
				cost = formatCost(c)
			} else {
				unpriced = append(unpriced, u.Model)
			}
			fmt.Printf(row, truncate(u.Model, 32), u.Calls, u.InputTokens, u.OutputTokens, cost)
		}
		rule(76)
		label := "TOTAL"
		if len(unpriced) > 0 {
			label = "TOTAL (partial)"
		}
		fmt.Printf(row, label, "", "", "", formatCost(total))
		if len(unpriced) > 0 {
			fmt.Println(theme.Hint.Render("No pricing for: " + strings.Join(unpriced, ", ")))
		}
		return nil
	},
}

func okMark(ok bool) string {
	if ok {
		return theme.Correct.Render("✓")
	}
	return theme.Incorrect.Render("✗")
}

func rule(width int) {
	fmt.Println(strings.Repeat("─", width))
}

func section(title, body string) {
	fmt.Println()
	rule(60)
	fmt.Println(title)
	rule(60)
	if body == "" {
		body = theme.Hint.Render("(not captured)")
	}
	fmt.Println(body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of calls to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Filter by capability (e.g. generate-quiz, text-to-speech)")
	llmListCmd.Flags().Bool("failed", false, "Only show failed calls")
	llmListCmd.Flags().Duration("since", 0, "Only show calls newer than this (e.g. 1h)")

	llmCmd.AddCommand(llmListCmd)
	llmCmd.AddCommand(llmViewCmd)
	llmCmd.AddCommand(llmStatsCmd)
}
