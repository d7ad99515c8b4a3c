package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/jivoecom/po-import/internal/po"
)

// mapLookup is an in-memory Lookup keyed by (platformID, code).
type mapLookup struct {
	items map[string]int64
	err   error
	calls []string
}

func (m *mapLookup) LookupItem(_ context.Context, platformID int64, code string) (*int64, error) {
	m.calls = append(m.calls, code)
	if m.err != nil {
		return nil, m.err
	}
	if id, ok := m.items[code]; ok {
		return &id, nil
	}
	return nil, nil
}

func TestResolveCandidateOrder(t *testing.T) {
	lookup := &mapLookup{items: map[string]int64{"42": 7}}
	r := New(lookup)

	// Padded code resolves through the zero-stripped candidate.
	id, err := r.Resolve(context.Background(), 1, "0042")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id == nil || *id != 7 {
		t.Fatalf("id = %v, want 7", id)
	}
	if len(lookup.calls) != 2 || lookup.calls[0] != "0042" || lookup.calls[1] != "42" {
		t.Errorf("candidate order = %v, want [0042 42]", lookup.calls)
	}
}

func TestResolveExactWins(t *testing.T) {
	lookup := &mapLookup{items: map[string]int64{"0042": 1, "42": 2}}
	r := New(lookup)
	id, err := r.Resolve(context.Background(), 1, " 0042 ")
	if err != nil {
		t.Fatal(err)
	}
	if id == nil || *id != 1 {
		t.Errorf("id = %v, want exact-match 1", id)
	}
}

func TestResolveNumericCellArtifact(t *testing.T) {
	lookup := &mapLookup{items: map[string]int64{"8901234": 9}}
	r := New(lookup)
	id, err := r.Resolve(context.Background(), 1, "8901234.0")
	if err != nil {
		t.Fatal(err)
	}
	if id == nil || *id != 9 {
		t.Errorf("id = %v, want 9", id)
	}
}

func TestResolveAbsentIsNotError(t *testing.T) {
	r := New(&mapLookup{})
	id, err := r.Resolve(context.Background(), 1, "UNKNOWN")
	if err != nil {
		t.Fatalf("absence must not be an error: %v", err)
	}
	if id != nil {
		t.Errorf("id = %v, want nil", id)
	}
}

func TestResolveEmptyCodeSkipsLookup(t *testing.T) {
	lookup := &mapLookup{}
	r := New(lookup)
	id, err := r.Resolve(context.Background(), 1, "   ")
	if err != nil || id != nil {
		t.Fatalf("got %v, %v", id, err)
	}
	if len(lookup.calls) != 0 {
		t.Errorf("empty code should not hit the store: %v", lookup.calls)
	}
}

func TestResolveLines(t *testing.T) {
	lookup := &mapLookup{items: map[string]int64{"A": 1}}
	r := New(lookup)

	lines := []po.ParsedLine{
		{LineNumber: 1, ItemCode: "A"},
		{LineNumber: 2, ItemCode: "B"},
	}
	unmapped, err := r.ResolveLines(context.Background(), 1, lines)
	if err != nil {
		t.Fatalf("ResolveLines: %v", err)
	}
	if lines[0].CanonicalItemID == nil || *lines[0].CanonicalItemID != 1 {
		t.Errorf("line 1 not resolved: %+v", lines[0])
	}
	if lines[0].HasFlag(po.FlagUnmapped) {
		t.Error("mapped line must not be flagged")
	}
	if lines[1].CanonicalItemID != nil {
		t.Errorf("line 2 should be unmapped")
	}
	if !lines[1].HasFlag(po.FlagUnmapped) {
		t.Error("unmapped line must carry FlagUnmapped")
	}
	if len(unmapped) != 1 || unmapped[0] != 2 {
		t.Errorf("unmapped = %v, want [2]", unmapped)
	}
}

func TestResolveLookupError(t *testing.T) {
	boom := errors.New("connection refused")
	r := New(&mapLookup{err: boom})
	_, err := r.Resolve(context.Background(), 1, "A")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}
