// Command warehouse runs the CSV warehouse operations against a database
// file without the HTTP server.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/JayJamieson/csv-warehouse/pkg/config"
	"github.com/JayJamieson/csv-warehouse/pkg/logging"
	"github.com/JayJamieson/csv-warehouse/pkg/warehouse"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "warehouse",
		Short:         "Import CSV files into SQL tables and export them back",
		SilenceErrors: true,
		SilenceUsage:  true,
		// No Run, so it prints help.
	}

	flags := root.PersistentFlags()
	config.RegisterFlags(flags)
	flags.MarkHidden("port")

	root.AddCommand(
		newImportCmd(),
		newExportCmd(),
		newQueryCmd(),
		newExecCmd(),
		newSchemasCmd(),
		newDropCmd(),
		newInferCmd(),
	)
	return root
}

// loadConfig reads configuration for cmd and points the default logger at
// stderr so stdout carries only command output.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return cfg, nil
}

func openSession(cmd *cobra.Command) (*warehouse.Session, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.Path == "" {
		return nil, nil, errors.New("no database: pass --db or set WAREHOUSE_DATABASE_PATH")
	}

	session, err := warehouse.Open(cfg.Database.Path, cfg.SessionConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return session, cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
