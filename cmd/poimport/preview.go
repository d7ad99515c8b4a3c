package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jivoecom/po-import/internal/platform"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

var (
	previewPlatform  string
	previewSheet     string
	previewDelimiter string
)

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Parse a PO export without importing it",
	Long: `Preview parses one export file with the platform's parser and prints
the extracted POs as JSON. Nothing is validated against the database and
nothing is persisted, so it needs no DATABASE_URL.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		docs, err := parseFile(args[0], previewPlatform, previewSheet, previewDelimiter)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)

	previewCmd.Flags().StringVarP(&previewPlatform, "platform", "p", "", "platform key (required)")
	previewCmd.Flags().StringVar(&previewSheet, "sheet", "", "worksheet name for xlsx files")
	previewCmd.Flags().StringVar(&previewDelimiter, "delimiter", "", "field delimiter for csv files")
	previewCmd.MarkFlagRequired("platform")
}

// parseFile reads and parses one export file.
func parseFile(path, platformKey, sheet, delimiter string) ([]po.Document, error) {
	parser, ok := platform.Get(platformKey)
	if !ok {
		return nil, fmt.Errorf("unknown platform %q (known: %v)", platformKey, platform.Known())
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := tabular.RawDocument{
		Content: content,
		Format:  tabular.DetectFormat(path, content),
		Sheet:   sheet,
	}
	if delimiter != "" {
		doc.Delimiter = rune(delimiter[0])
	}

	rows, err := tabular.ReadAll(doc)
	if err != nil {
		return nil, err
	}
	return parser.Parse(rows)
}
