package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abhisek/studypal/internal/flow"
	"github.com/spf13/cobra"
)

const localUser = "local"

var askCmd = &cobra.Command{
	Use:   "ask <capability> [input-json]",
	Short: "Run one capability and print its JSON result",
	Long: "Run one capability with a JSON input taken from the argument, --file, or stdin.\n\n" +
		"Capabilities: " + strings.Join(flow.Names(), ", "),
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readInput(cmd, args[1:])
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cmd, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		user, _ := cmd.Flags().GetString("user")
		out, err := a.svc.Dispatch(cmd.Context(), user, args[0], raw)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// readInput returns the capability input: the positional argument when
// given and not "-", else the --file contents, else stdin.
func readInput(cmd *cobra.Command, args []string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	file, _ := cmd.Flags().GetString("file")
	switch {
	case len(args) == 1 && args[0] != "-":
		data = []byte(args[0])
	case file != "":
		data, err = os.ReadFile(file)
	default:
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("input is not valid JSON")
	}
	return data, nil
}

func init() {
	askCmd.Flags().StringP("file", "f", "", "Read the input JSON from a file")
	askCmd.Flags().StringP("user", "u", localUser, "User ID charged for the request")
}
