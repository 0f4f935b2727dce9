package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/fieldstore/internal/cli/output"
	"github.com/marmos91/fieldstore/internal/logger"
	"github.com/marmos91/fieldstore/pkg/apiclient"
	"github.com/marmos91/fieldstore/pkg/state"
)

var (
	stateOutput string
	stateRemote string
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect and edit the application state stores",
	Long: fmt.Sprintf(`Inspect and edit the key-value state stores (%s).

The stores are opened directly, which needs exclusive access to their
directories: stop the server first, or use --remote to read a snapshot
from a running server.

Examples:
  fieldstore state keys user
  fieldstore state get theme palette
  fieldstore state set global last_sync '"2024-05-01T10:00:00Z"'
  fieldstore state delete user draft
  fieldstore state snapshot theme --remote http://localhost:8080`,
		strings.Join(state.DefaultNames, ", ")),
}

var stateGetCmd = &cobra.Command{
	Use:   "get <store> <key>",
	Short: "Print the JSON value of a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStateStore(cmd, args[0], func(ctx context.Context, s *state.Store) error {
			var v json.RawMessage
			if err := s.Get(ctx, args[1], &v); err != nil {
				return err
			}
			return output.PrintJSON(cmd.OutOrStdout(), v)
		})
	},
}

var stateSetCmd = &cobra.Command{
	Use:   "set <store> <key> <value>",
	Short: "Store a value; input that is not valid JSON is stored as a string",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := parseStateValue(args[2])
		return withStateStore(cmd, args[0], func(ctx context.Context, s *state.Store) error {
			if err := s.Set(ctx, args[1], value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s/%s\n", s.Name(), args[1])
			return nil
		})
	},
}

var stateDeleteCmd = &cobra.Command{
	Use:   "delete <store> <key>",
	Short: "Delete a key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStateStore(cmd, args[0], func(ctx context.Context, s *state.Store) error {
			if err := s.Delete(ctx, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s\n", s.Name(), args[1])
			return nil
		})
	},
}

var stateKeysCmd = &cobra.Command{
	Use:   "keys <store> [prefix]",
	Short: "List keys, optionally under a prefix",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix := ""
		if len(args) == 2 {
			prefix = args[1]
		}
		return withStateStore(cmd, args[0], func(ctx context.Context, s *state.Store) error {
			keys, err := s.Keys(ctx, prefix)
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		})
	},
}

var stateSnapshotCmd = &cobra.Command{
	Use:   "snapshot <store>",
	Short: "Print every entry of a store",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateSnapshot,
}

func init() {
	stateCmd.PersistentFlags().StringVarP(&stateOutput, "output", "o", "table", "Output format for snapshot (table|json|yaml)")
	stateSnapshotCmd.Flags().StringVar(&stateRemote, "remote", "", "Read the snapshot from a running server at this base URL")

	stateCmd.AddCommand(stateGetCmd)
	stateCmd.AddCommand(stateSetCmd)
	stateCmd.AddCommand(stateDeleteCmd)
	stateCmd.AddCommand(stateKeysCmd)
	stateCmd.AddCommand(stateSnapshotCmd)
}

func runStateSnapshot(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(stateOutput)
	if err != nil {
		return err
	}

	var snap map[string]json.RawMessage
	if stateRemote != "" {
		snap, err = apiclient.New(stateRemote).State(cmd.Context(), args[0])
	} else {
		err = withStateStore(cmd, args[0], func(ctx context.Context, s *state.Store) error {
			var err error
			snap, err = s.Snapshot(ctx)
			return err
		})
	}
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if format != output.FormatTable {
		return output.NewPrinter(w, format, false).Print(snap)
	}

	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := output.NewTableData("KEY", "VALUE")
	for _, k := range keys {
		table.AddRow(k, string(snap[k]))
	}
	return output.PrintTable(w, table)
}

// parseStateValue keeps valid JSON as is and wraps anything else as a
// JSON string.
func parseStateValue(raw string) json.RawMessage {
	if json.Valid([]byte(raw)) {
		return json.RawMessage(raw)
	}
	quoted, _ := json.Marshal(raw)
	return quoted
}

// withStateStore opens the named store for the duration of fn.
func withStateStore(cmd *cobra.Command, name string, fn func(context.Context, *state.Store) error) error {
	if !slices.Contains(state.DefaultNames, name) {
		return fmt.Errorf("unknown state store %q, want one of %s", name, strings.Join(state.DefaultNames, ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s := state.New(name, cfg.State, state.WithLogger(logger.Default()))
	if err := s.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to open state store %s (is the server running?): %w", name, err)
	}
	defer func() { _ = s.Destroy(context.WithoutCancel(ctx)) }()

	return fn(ctx, s)
}
