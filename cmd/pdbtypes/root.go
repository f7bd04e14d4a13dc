package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skdltmxn/pdbtypes/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const toolName = "pdbtypes"

var (
	outputFile string
	configFile string
	output     io.Writer

	settings config.Config
	logger   = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "pdbtypes",
	Short: "Browse and reconstruct C++ types from PDB files",
	Long: `pdbtypes lists the user-defined types recorded in a Microsoft PDB
(Program Database) file and reconstructs their C++ declarations.

Defaults for the list and dump flags are read from config.toml in the
user configuration directory; see "pdbtypes config".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadSettings(); err != nil {
			return err
		}
		return openOutput()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeOutput()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "settings file (default: <user config dir>/pdbtypes/config.toml)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func loadSettings() error {
	cfg, used, err := config.Load(viper.New(), configFile)
	if err != nil {
		return err
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}

	settings = cfg
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	if used != "" {
		logger.Debug("settings loaded", "path", used)
	}
	return nil
}

func openOutput() error {
	if outputFile == "" {
		output = os.Stdout
		return nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	output = f
	return nil
}

func closeOutput() {
	if f, ok := output.(*os.File); ok && f != os.Stdout {
		f.Close()
	}
}
