// mapping.go resolves platform names and item codes against the master
// tables. Item lookup implements resolve.Lookup.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const selectItemID = `
SELECT canonical_item_id
FROM platform_items
WHERE platform_id = $1 AND btrim(item_code) = btrim($2)
LIMIT 1`

// LookupItem returns the canonical item id mapped to a platform item
// code, or (nil, nil) when no mapping exists. Codes are compared with
// surrounding whitespace stripped; the caller is responsible for any
// further normalisation (zero padding, export artifacts).
func (s *Store) LookupItem(ctx context.Context, platformID int64, code string) (*int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, selectItemID, platformID, code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup item %q: %w", code, err)
	}
	return &id, nil
}

const selectPlatformID = `SELECT id FROM platforms WHERE lower(name) = lower($1)`

const insertPlatform = `
INSERT INTO platforms (name) VALUES ($1)
ON CONFLICT (name) DO NOTHING
RETURNING id`

// EnsurePlatform returns the id for a platform name, creating the row
// on first use. Names are matched case-insensitively.
func (s *Store) EnsurePlatform(ctx context.Context, name string) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, selectPlatformID, name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("lookup platform %q: %w", name, err)
	}

	err = s.pool.QueryRow(ctx, insertPlatform, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// A concurrent caller inserted it between our two queries.
		err = s.pool.QueryRow(ctx, selectPlatformID, name).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("create platform %q: %w", name, err)
	}
	return id, nil
}
