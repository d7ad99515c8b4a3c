// Package resolve maps platform item codes to canonical item identities.
//
// The mapping store and the platform exports disagree about how codes are
// typed: one side stores padded fixed-width text, the other bare integers,
// and historical rows carry whitespace. The resolver absorbs those
// mismatches with explicit candidate keys instead of ad-hoc fix-up scripts
// against the database. It never writes to the mapping store, and an
// absent mapping is not an error: the line is imported with a null
// canonical item and flagged for later reconciliation.
package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/jivoecom/po-import/internal/coerce"
	"github.com/jivoecom/po-import/internal/po"
)

// Lookup is the external item-mapping lookup. Implementations return
// (nil, nil) when no mapping exists for the code.
type Lookup interface {
	LookupItem(ctx context.Context, platformID int64, code string) (*int64, error)
}

// Resolver resolves platform item codes through a Lookup.
type Resolver struct {
	lookup Lookup
}

// New returns a resolver over the given lookup.
func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the canonical item id for a platform item code, or nil
// when unmapped. Candidate keys are tried in order: the trimmed code as
// written, then with leading zeros stripped. Identifiers are compared as
// text and never truncated.
func (r *Resolver) Resolve(ctx context.Context, platformID int64, code string) (*int64, error) {
	normalized := coerce.Identifier(code)
	if normalized == "" {
		return nil, nil
	}

	for _, candidate := range candidates(normalized) {
		id, err := r.lookup.LookupItem(ctx, platformID, candidate)
		if err != nil {
			return nil, fmt.Errorf("item lookup %q: %w", candidate, err)
		}
		if id != nil {
			return id, nil
		}
	}
	return nil, nil
}

// ResolveLines resolves every line in place, flagging unmapped lines, and
// returns the line numbers that stayed unmapped.
func (r *Resolver) ResolveLines(ctx context.Context, platformID int64, lines []po.ParsedLine) ([]int, error) {
	var unmapped []int
	for i := range lines {
		id, err := r.Resolve(ctx, platformID, lines[i].ItemCode)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lines[i].LineNumber, err)
		}
		lines[i].CanonicalItemID = id
		if id == nil {
			lines[i].AddFlag(po.FlagUnmapped)
			unmapped = append(unmapped, lines[i].LineNumber)
		}
	}
	return unmapped, nil
}

// candidates returns the lookup keys for a normalized code, most exact
// first, without duplicates.
func candidates(code string) []string {
	out := []string{code}
	if stripped := strings.TrimLeft(code, "0"); stripped != "" && stripped != code {
		out = append(out, stripped)
	}
	return out
}
