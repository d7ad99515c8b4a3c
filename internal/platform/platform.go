// Package platform holds the per-platform PO parsers and their registry.
//
// Every platform exports POs in its own irregular layout: banner rows above
// the header region, label/value pairs scattered across merged cells, data
// tables that start at a different row in every export. Each parser variant
// implements the same two-phase scan (locate the header region by label
// matching, then extract the line table), so adding a platform means adding
// a file with an init() registration, not branching inside a monolith.
package platform

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

// MaxHeaderScanRows bounds the label search for the header region.
// Vendors insert and remove banner rows between exports, so parsers match
// labels instead of fixed row indices, but never scan past this bound.
const MaxHeaderScanRows = 30

// Parser extracts zero or more (header, lines) groups from one decoded
// document. Parse is pure: same rows in, same documents out, no side
// effects, so imports can run on any worker without coordination.
type Parser interface {
	// Platform returns the registry key, e.g. "flipkart".
	Platform() string

	// Parse scans the rows and returns the POs found, in document order.
	// It fails with *po.StructureError when no recognizable header or
	// line region exists, never with a silent empty result.
	Parse(rows []tabular.RawRow) ([]po.Document, error)
}

var (
	registry   = make(map[string]Parser)
	registryMu sync.RWMutex
)

// Register adds a parser to the registry. Panics if the platform key is
// already taken; registration happens in init() so a duplicate is a
// programming error.
func Register(p Parser) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := p.Platform()
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("platform parser already registered: %s", key))
	}
	registry[key] = p
}

// Get returns the parser for a platform key.
func Get(key string) (Parser, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	p, ok := registry[strings.ToLower(strings.TrimSpace(key))]
	return p, ok
}

// Known returns the registered platform keys, sorted.
func Known() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// --- label-matching helpers shared by the variants ----------------------

// labelMatch reports whether a cell text matches a known label:
// case-insensitive substring, because exports vary between "PO Number",
// "PO number:" and "VENDOR PO NUMBER".
func labelMatch(cellText, label string) bool {
	return strings.Contains(strings.ToLower(cellText), strings.ToLower(label))
}

// findRow returns the index of the first row within limit that satisfies
// match, or -1.
func findRow(rows []tabular.RawRow, limit int, match func(tabular.RawRow) bool) int {
	if limit <= 0 || limit > len(rows) {
		limit = len(rows)
	}
	for i := 0; i < limit; i++ {
		if match(rows[i]) {
			return i
		}
	}
	return -1
}

// valueAfter finds the first cell in row whose text matches label and
// returns the next non-empty cell within the following three columns.
// Label/value pairs sit at varying offsets because of merged cells.
func valueAfter(row tabular.RawRow, label string) (tabular.Cell, bool) {
	for i, c := range row.Cells {
		if c.Kind == tabular.CellText && labelMatch(c.Text, label) {
			for off := 1; off <= 3; off++ {
				if v := row.Cell(i + off); !v.IsEmpty() {
					return v, true
				}
			}
			return tabular.Cell{}, false
		}
	}
	return tabular.Cell{}, false
}

// columnIndex maps lowered column labels to their position in the data
// table's header row.
type columnIndex struct {
	byLabel map[string]int
}

// indexColumns builds a column index from a header row.
func indexColumns(row tabular.RawRow) columnIndex {
	idx := columnIndex{byLabel: make(map[string]int, len(row.Cells))}
	for i, c := range row.Cells {
		label := strings.ToLower(strings.TrimSpace(c.Text))
		if label == "" {
			continue
		}
		if _, taken := idx.byLabel[label]; !taken {
			idx.byLabel[label] = i
		}
	}
	return idx
}

// find returns the column position of the first label that matches any
// indexed header, trying exact match first and substring match second.
func (ci columnIndex) find(labels ...string) (int, bool) {
	for _, want := range labels {
		w := strings.ToLower(want)
		if pos, ok := ci.byLabel[w]; ok {
			return pos, true
		}
	}
	for _, want := range labels {
		w := strings.ToLower(want)
		best, found := 0, false
		for have, pos := range ci.byLabel {
			if strings.Contains(have, w) && (!found || pos < best) {
				best, found = pos, true
			}
		}
		if found {
			return best, true
		}
	}
	return 0, false
}

// has reports whether all labels are present.
func (ci columnIndex) has(labels ...string) bool {
	for _, l := range labels {
		if _, ok := ci.find(l); !ok {
			return false
		}
	}
	return true
}
