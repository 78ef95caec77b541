package cmd

import (
	"fmt"
	"os"

	"github.com/jon4hz/evoting/internal/engine"
	"github.com/jon4hz/evoting/internal/export"
	"github.com/spf13/cobra"
)

var exportCmdFlags struct {
	Output string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all votes as an xlsx workbook",
	Long:  `Write the vote ledger to an xlsx workbook, the same file admins can download from the server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := loadDatabase()
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck

		e, err := engine.New(cfg, db)
		if err != nil {
			return fmt.Errorf("failed to create engine: %w", err)
		}
		defer e.Close() //nolint:errcheck

		rows, err := e.ExportRows(cmd.Context())
		if err != nil {
			return err
		}

		f, err := os.Create(exportCmdFlags.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		if err := export.WriteVotes(f, rows); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close output file: %w", err)
		}

		fmt.Printf("Exported %d votes to %s\n", len(rows), exportCmdFlags.Output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportCmdFlags.Output, "output", "o", export.FileName, "Output file")
	rootCmd.AddCommand(exportCmd)
}
