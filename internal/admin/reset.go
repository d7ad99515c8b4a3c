// Package admin provides administrative operations for database
// maintenance.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jivoecom/po-import/internal/store"
)

// ResetTimeout is the maximum duration for database reset operations.
const ResetTimeout = 30 * time.Second

// importTables lists the import tables to clear; their line tables
// cascade from the foreign keys.
var importTables = []string{
	"platform_po",
	"po_master",
}

// ResetImports truncates all imported PO data, platform and canonical.
// Item mappings and platform registrations are kept. This is a
// destructive operation intended for development and staging databases.
func ResetImports(ctx context.Context, db store.DBTX) error {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	for _, table := range importTables {
		if _, err := db.Exec(ctx, "TRUNCATE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
