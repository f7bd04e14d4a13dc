package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/pdbtypes/engine"
)

var (
	dumpHeader       bool
	dumpDependencies bool
	dumpAccess       bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump <pdb-file> <type-name>",
	Short: "Reconstruct the C++ declaration of a type",
	Long: `Reconstruct the C++ declaration of the type with the given name.

With --print-dependencies the declarations of every type it refers to are
printed first, in an order a C++ compiler accepts.`,
	Args: cobra.ExactArgs(2),
	RunE: runDump,
}

func init() {
	// -h is taken by --print-header; help is only --help here
	dumpCmd.Flags().BoolVarP(&dumpHeader, "print-header", "h", false, "print a header naming the PDB file")
	dumpCmd.Flags().BoolVarP(&dumpDependencies, "print-dependencies", "d", false, "print declarations of referenced types")
	dumpCmd.Flags().BoolVarP(&dumpAccess, "print-access-specifiers", "a", false, "print C++ access specifiers")
}

func dumpOptions(cmd *cobra.Command) engine.ReconstructOptions {
	opts := engine.ReconstructOptions{
		PrintHeader:           settings.Dump.PrintHeader,
		PrintDependencies:     settings.Dump.PrintDependencies,
		PrintAccessSpecifiers: settings.Dump.PrintAccessSpecifiers,
	}
	if cmd.Flags().Changed("print-header") {
		opts.PrintHeader = dumpHeader
	}
	if cmd.Flags().Changed("print-dependencies") {
		opts.PrintDependencies = dumpDependencies
	}
	if cmd.Flags().Changed("print-access-specifiers") {
		opts.PrintAccessSpecifiers = dumpAccess
	}
	return opts
}

func runDump(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, args[0])
	if err != nil {
		return err
	}
	defer s.close()

	ev, err := s.call(ctx, engine.ReconstructTypeByName{Name: args[1], Options: dumpOptions(cmd)})
	if err != nil {
		return err
	}
	rec, ok := ev.(engine.ReconstructedTypeUpdated)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	_, err = fmt.Fprint(output, rec.Text)
	return err
}
