package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jivoecom/po-import/internal/platform"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List the supported platform keys",
	Run: func(cmd *cobra.Command, args []string) {
		for _, key := range platform.Known() {
			fmt.Println(key)
		}
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
