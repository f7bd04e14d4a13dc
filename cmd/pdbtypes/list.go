package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/pdbtypes/engine"
)

var (
	listIgnoreCase bool
	listRegex      bool
	listIDs        bool
)

var listCmd = &cobra.Command{
	Use:   "list <pdb-file> [filter]",
	Short: "List types whose name matches a filter",
	Long: `List the user-defined types of a PDB file, one name per line, in the
order the file records them.

The filter is a substring by default; with --use-regex it is a regular
expression that must match the whole name. An empty filter lists every type.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listIgnoreCase, "case-insensitive", "i", false, "do not match case")
	listCmd.Flags().BoolVarP(&listRegex, "use-regex", "r", false, "treat the filter as a regular expression")
	listCmd.Flags().BoolVar(&listIDs, "ids", false, "prefix each name with its type index")
}

func runList(cmd *cobra.Command, args []string) error {
	var filter string
	if len(args) > 1 {
		filter = args[1]
	}

	query := engine.UpdateTypeFilter{
		Pattern:         filter,
		CaseInsensitive: settings.List.CaseInsensitive,
		UseRegex:        settings.List.UseRegex,
	}
	if cmd.Flags().Changed("case-insensitive") {
		query.CaseInsensitive = listIgnoreCase
	}
	if cmd.Flags().Changed("use-regex") {
		query.UseRegex = listRegex
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	ev, err := s.call(ctx, query)
	if err != nil {
		return err
	}
	result, ok := ev.(engine.FilteredTypesUpdated)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	for _, t := range result.Types {
		if listIDs {
			fmt.Fprintf(output, "0x%04X   %s\n", uint32(t.ID.Index), t.Name)
		} else {
			fmt.Fprintln(output, t.Name)
		}
	}
	return nil
}
