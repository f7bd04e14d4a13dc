package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/pdbtypes/pdb"
)

var infoCmd = &cobra.Command{
	Use:   "info <pdb-file>",
	Short: "Display PDB file information",
	Long:  `Display general information about a PDB file including version, GUID, age, architecture and type count.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	pdbPath := args[0]

	f, err := pdb.Open(pdbPath)
	if err != nil {
		return fmt.Errorf("failed to open PDB: %w", err)
	}
	defer f.Close()

	info, err := f.Info()
	if err != nil {
		return fmt.Errorf("failed to read PDB info: %w", err)
	}

	fmt.Fprintf(output, "PDB File: %s\n", pdbPath)
	fmt.Fprintf(output, "Version: %d\n", info.Version)
	fmt.Fprintf(output, "Signature: 0x%08X\n", info.Signature)
	fmt.Fprintf(output, "Age: %d\n", info.Age)
	fmt.Fprintf(output, "GUID: {%s}\n", info.GUIDString())
	fmt.Fprintf(output, "Architecture: %s\n", f.Architecture())
	fmt.Fprintf(output, "Block Size: %d\n", f.BlockSize())
	fmt.Fprintf(output, "Number of Streams: %d\n", f.NumStreams())

	types, err := f.Types()
	if err != nil {
		return fmt.Errorf("failed to read type stream: %w", err)
	}
	fmt.Fprintf(output, "Type Records: %d\n", types.Count())
	return nil
}
