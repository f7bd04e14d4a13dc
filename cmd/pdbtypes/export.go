package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/pdbtypes/internal/catalog"
	"github.com/skdltmxn/pdbtypes/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <pdb-file> <db-file>",
	Short: "Export the types of a PDB file to SQLite",
	Long: `Export every user-defined type of a PDB file, with its members, base
classes, enumerators and reconstructed declaration, to a SQLite database.

Exporting the same PDB path again replaces its earlier rows.`,
	Args: cobra.ExactArgs(2),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	c, err := catalog.Load(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to load PDB: %w", err)
	}

	db, err := store.Open(ctx, args[1])
	if err != nil {
		return err
	}
	defer db.Close()

	sum, err := db.Export(ctx, c)
	if err != nil {
		return err
	}
	logger.Info("export finished", "pdb", c.Path(), "db", args[1], "types", sum.Types)

	fmt.Fprintf(output, "Types: %d\n", sum.Types)
	fmt.Fprintf(output, "Members: %d\n", sum.Members)
	fmt.Fprintf(output, "Base Classes: %d\n", sum.BaseClasses)
	fmt.Fprintf(output, "Enumerators: %d\n", sum.Enumerators)
	return nil
}
