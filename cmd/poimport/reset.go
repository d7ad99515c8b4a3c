package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jivoecom/po-import/internal/admin"
	"github.com/jivoecom/po-import/internal/config"
)

var resetConfirmed bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all imported PO data",
	Long: `Reset truncates the platform and canonical PO tables. Item mappings
and platform registrations survive. Intended for development and staging
databases; it refuses to run without --yes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return fmt.Errorf("refusing to delete imported data without --yes")
		}

		godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		pool, err := connect(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := admin.ResetImports(cmd.Context(), pool); err != nil {
			return err
		}
		fmt.Println("imported PO data cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm the destructive reset")
}
