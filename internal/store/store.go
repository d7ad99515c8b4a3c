// Package store persists imported POs in PostgreSQL through pgx.
//
// It is the single writer of canonical state: the platform-fidelity record
// and the canonical po_master/po_lines rows are inserted inside one
// transaction, replacing the database triggers that used to mirror
// platform tables into the canonical ones (and double-inserted whenever
// trigger and application code both fired). Idempotency is enforced by
// the unique constraint on (platform_id, po_number): a violation on that
// key is the AlreadyExists outcome, not an error.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jivoecom/po-import/internal/po"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store wraps a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New returns a store over the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// PlatformRecord is the platform-fidelity half of a dual write.
type PlatformRecord struct {
	PlatformID int64
	Header     po.ParsedHeader
	Lines      []po.ParsedLine
}

// InsertResult reports the outcome of InsertIfAbsent. Created is false
// when the idempotency key already existed; the ids then refer to the
// previously persisted records.
type InsertResult struct {
	Created      bool
	PlatformPOID int64
	CanonicalID  int64
}

const insertPlatformPO = `
INSERT INTO platform_po (
	platform_id, po_number, vendor_name, vendor_code, vendor_gstin,
	po_date, expiry_date, declared_quantity, declared_amount, declared_tax, attrs
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING id`

const insertPlatformPOLine = `
INSERT INTO platform_po_lines (
	platform_po_id, line_number, item_code, description, quantity,
	unit_price, line_amount, tax_amount, canonical_item_id, flags, attrs
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const insertPOMaster = `
INSERT INTO po_master (
	platform_id, vendor_po_number, vendor_name, po_date, expiry_date,
	total_quantity, total_amount, total_tax
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

const insertPOLine = `
INSERT INTO po_lines (
	po_id, line_number, item_id, quantity, basic_amount, tax_amount, total_amount
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

const selectExistingPO = `
SELECT p.id, m.id
FROM platform_po p
JOIN po_master m ON m.platform_id = p.platform_id AND m.vendor_po_number = p.po_number
WHERE p.platform_id = $1 AND p.po_number = $2`

// InsertIfAbsent persists one PO: the platform record and the canonical
// record in a single transaction. If a PO with the same (platform, PO
// number) already exists, nothing is written and the existing ids are
// returned. Any failure of the canonical write rolls back the platform
// write too; there is never a platform row without its canonical twin.
func (s *Store) InsertIfAbsent(ctx context.Context, rec PlatformRecord, canonical po.CanonicalPO, lines []po.CanonicalLine) (InsertResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return InsertResult{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	h := rec.Header
	var platformPOID int64
	err = tx.QueryRow(ctx, insertPlatformPO,
		rec.PlatformID, h.PONumber, h.VendorName, h.VendorCode, h.VendorGSTIN,
		nullDate(h.PODate), nullDate(h.ExpiryDate),
		h.DeclaredQuantity, h.DeclaredAmount, h.DeclaredTax, h.Attrs,
	).Scan(&platformPOID)
	if err != nil {
		if IsUniqueViolation(err) {
			// Another import of the same PO won the race (or ran
			// earlier). The aborted transaction is discarded and the
			// existing ids are read outside it.
			tx.Rollback(ctx)
			return s.lookupExisting(ctx, rec.PlatformID, h.PONumber)
		}
		return InsertResult{}, fmt.Errorf("insert platform po: %w", err)
	}

	for _, line := range rec.Lines {
		_, err = tx.Exec(ctx, insertPlatformPOLine,
			platformPOID, line.LineNumber, line.ItemCode, line.Description,
			line.Quantity, line.UnitPrice, line.LineAmount, line.TaxAmount,
			line.CanonicalItemID, flagStrings(line.Flags), line.Attrs,
		)
		if err != nil {
			return InsertResult{}, fmt.Errorf("insert platform line %d: %w", line.LineNumber, err)
		}
	}

	var canonicalID int64
	err = tx.QueryRow(ctx, insertPOMaster,
		canonical.PlatformID, canonical.PONumber, canonical.VendorName,
		nullDate(canonical.PODate), nullDate(canonical.ExpiryDate),
		canonical.TotalQuantity, canonical.TotalAmount, canonical.TotalTax,
	).Scan(&canonicalID)
	if err != nil {
		if IsUniqueViolation(err) {
			tx.Rollback(ctx)
			return s.lookupExisting(ctx, rec.PlatformID, h.PONumber)
		}
		return InsertResult{}, fmt.Errorf("insert po_master: %w", err)
	}

	for _, line := range lines {
		_, err = tx.Exec(ctx, insertPOLine,
			canonicalID, line.LineNumber, line.ItemID,
			line.Quantity, line.BasicAmount, line.TaxAmount, line.TotalAmount,
		)
		if err != nil {
			return InsertResult{}, fmt.Errorf("insert po_line %d: %w", line.LineNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return InsertResult{}, fmt.Errorf("commit: %w", err)
	}
	return InsertResult{Created: true, PlatformPOID: platformPOID, CanonicalID: canonicalID}, nil
}

// lookupExisting fetches the ids persisted by an earlier import of the
// same idempotency key. The committer inserts both halves in one
// transaction, so once the platform row is visible the canonical row is
// too.
func (s *Store) lookupExisting(ctx context.Context, platformID int64, poNumber string) (InsertResult, error) {
	var res InsertResult
	err := s.pool.QueryRow(ctx, selectExistingPO, platformID, poNumber).Scan(&res.PlatformPOID, &res.CanonicalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return InsertResult{}, fmt.Errorf("po %q reported duplicate but not found", poNumber)
	}
	if err != nil {
		return InsertResult{}, fmt.Errorf("lookup existing po %q: %w", poNumber, err)
	}
	return res, nil
}

// nullDate maps the zero time to SQL NULL.
func nullDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: !t.IsZero()}
}

// flagStrings always returns a non-nil slice: pgx encodes a nil
// []string as SQL NULL, which the NOT NULL flags column rejects.
func flagStrings(flags []po.LineFlag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = string(f)
	}
	return out
}
