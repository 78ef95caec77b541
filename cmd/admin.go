package cmd

import (
	"fmt"

	"github.com/jon4hz/evoting/internal/engine"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin accounts",
	Long:  `Grant or revoke the admin flag of registered users. Admins can manage candidates and see the results.`,
}

var adminPromoteCmd = &cobra.Command{
	Use:   "promote <usn>",
	Short: "Grant the admin flag to a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, args[0], true)
	},
}

var adminDemoteCmd = &cobra.Command{
	Use:   "demote <usn>",
	Short: "Revoke the admin flag of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setAdmin(cmd, args[0], false)
	},
}

func init() {
	adminCmd.AddCommand(adminPromoteCmd, adminDemoteCmd)
	rootCmd.AddCommand(adminCmd)
}

func setAdmin(cmd *cobra.Command, identifier string, isAdmin bool) error {
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

	if err := e.SetAdmin(cmd.Context(), identifier, isAdmin); err != nil {
		return err
	}

	if isAdmin {
		fmt.Printf("%s is now an admin\n", identifier)
	} else {
		fmt.Printf("%s is no longer an admin\n", identifier)
	}
	return nil
}
