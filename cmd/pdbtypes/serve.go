package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skdltmxn/pdbtypes/engine"
	"github.com/skdltmxn/pdbtypes/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the type browser over MCP on stdio",
	Long: `Run a Model Context Protocol server on stdin/stdout exposing the tools
load_pdb, list_types and reconstruct_type.

Options a tool call leaves unset take their values from the settings file.
Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := mcpserver.New(mcpserver.Config{
		Version: version,
		Dump: engine.ReconstructOptions{
			PrintHeader:           settings.Dump.PrintHeader,
			PrintDependencies:     settings.Dump.PrintDependencies,
			PrintAccessSpecifiers: settings.Dump.PrintAccessSpecifiers,
		},
		CaseInsensitive: settings.List.CaseInsensitive,
		UseRegex:        settings.List.UseRegex,
		Logger:          logger,
	})
	defer s.Close()

	if err := s.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
