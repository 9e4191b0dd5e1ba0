package main

import (
	"fmt"

	"github.com/JayJamieson/csv-warehouse/pkg/models"
	"github.com/JayJamieson/csv-warehouse/pkg/utils"
	"github.com/JayJamieson/csv-warehouse/pkg/warehouse"
	"github.com/spf13/cobra"
)

func newImportCmd() *cobra.Command {
	var (
		table           string
		url             string
		createIfMissing bool
		replace         bool
		checkTypes      bool
	)

	cmd := &cobra.Command{
		Use:   "import [csv-path]",
		Short: "Import a CSV file, or a CSV at --url, into a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (url == "") {
				return fmt.Errorf("pass exactly one of a csv path or --url")
			}

			session, cfg, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer session.Close()

			opts := warehouse.ImportOptions{
				CreateIfMissing: createIfMissing,
				Replace:         replace,
				CheckTypes:      checkTypes,
			}

			var path string
			if url != "" {
				tmp, cleanup, err := utils.DownloadToTemp(cmd.Context(), url, cfg.Import.DownloadTimeout)
				if err != nil {
					return err
				}
				defer cleanup()
				path = tmp
				opts.Filename = utils.FilenameFromURL(url)
			} else {
				path = args[0]
			}

			record, err := session.ImportCSV(cmd.Context(), path, table, opts)
			if err != nil {
				if record != nil && record.Rows > 0 {
					return fmt.Errorf("%w (%d rows committed)", err, record.Rows)
				}
				return err
			}
			return writeJSON(cmd.OutOrStdout(), record)
		},
	}

	cmd.Flags().StringVarP(&table, "table", "t", "", "target table")
	cmd.Flags().StringVar(&url, "url", "", "download the CSV from this URL")
	cmd.Flags().BoolVar(&createIfMissing, "create", false, "create the table when it does not exist")
	cmd.Flags().BoolVar(&replace, "replace", false, "drop and recreate the table from the CSV")
	cmd.Flags().BoolVar(&checkTypes, "check-types", false, "infer column types for new tables")
	cmd.MarkFlagRequired("table")
	return cmd
}

func newExportCmd() *cobra.Command {
	var noHeader bool

	cmd := &cobra.Command{
		Use:   "export <table> <csv-path>",
		Short: "Export a table to a CSV file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := session.ExportTable(cmd.Context(), args[0], args[1], !noHeader); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), models.ExportResponse{
				OK:        true,
				TableName: args[0],
				CreatedAt: args[1],
			})
		},
	}

	cmd.Flags().BoolVar(&noHeader, "no-header", false, "omit the header row")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var shape string

	cmd := &cobra.Command{
		Use:   "query <sql> [params...]",
		Short: "Run a read query and print every row",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer session.Close()

			res, err := session.Query(cmd.Context(), args[0], toArgs(args[1:])...)
			if err != nil {
				return err
			}

			rows, err := res.Shape(shape)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), models.DataResponse{
				DataResponseBase: models.DataResponseBase{
					OK:      true,
					QueryMS: float64(res.Elapsed.Microseconds()) / 1000.0,
					Columns: res.Names(),
					Total:   len(rows),
				},
				Shape: shape,
				Rows:  rows,
			})
		},
	}

	cmd.Flags().StringVar(&shape, "shape", "objects", "row format: objects|array")
	return cmd
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql> [params...]",
		Short: "Execute a write statement",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer session.Close()

			id, err := session.Execute(cmd.Context(), args[0], toArgs(args[1:])...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), models.ExecuteResponse{OK: true, LastRowID: id})
		},
	}
}

func newSchemasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schemas",
		Short: "Describe every table and its columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, _, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer session.Close()

			snapshot, err := session.Schemas(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), models.SchemaResponse{OK: true, Tables: snapshot})
		},
	}
}

func newDropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop <db-path>",
		Short: "Delete a database file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(cmd); err != nil {
				return err
			}

			deleted, err := warehouse.DeleteDatabaseFile(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), models.DeleteResponse{OK: true, Path: args[0], Deleted: deleted})
		},
	}
}

func newInferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "infer <csv-path>",
		Short: "Print the column types the configured backend infers for a CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			res, err := cfg.Inferrer().Infer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func toArgs(params []string) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p
	}
	return args
}
