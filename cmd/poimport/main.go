// poimport is the command-line companion to the import server. It
// previews platform PO exports without touching the database, runs full
// imports, and performs maintenance operations against the import
// schema.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "poimport",
	Short: "Import purchase-order exports from quick-commerce platforms",
	Long: `poimport parses purchase-order exports (CSV or XLSX) from supported
platforms, validates them against their declared totals, and writes them
to the PO database.

Examples:
  poimport preview --platform flipkart po.xlsx
  poimport import --platform zepto orders.csv
  poimport platforms`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
