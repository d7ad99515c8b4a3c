package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/jivoecom/po-import/internal/po"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection reset by peer" }
func (fakeNetError) Timeout() bool   { return false }
func (fakeNetError) Temporary() bool { return true }

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "unique violation",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "platform_po_platform_id_po_number_key"},
			want: true,
		},
		{
			name: "wrapped unique violation",
			err:  fmt.Errorf("insert platform po: %w", &pgconn.PgError{Code: "23505"}),
			want: true,
		},
		{
			name: "not null violation",
			err:  &pgconn.PgError{Code: "23502"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.want {
				t.Errorf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, want: true},
		{name: "deadlock", err: &pgconn.PgError{Code: "40P01"}, want: true},
		{name: "connection failure class", err: &pgconn.PgError{Code: "08006"}, want: true},
		{name: "admin shutdown class", err: &pgconn.PgError{Code: "57P01"}, want: true},
		{name: "unique violation is not transient", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "syntax error is not transient", err: &pgconn.PgError{Code: "42601"}, want: false},
		{name: "network error", err: fakeNetError{}, want: true},
		{
			name: "wrapped network error",
			err:  fmt.Errorf("exec: %w", fakeNetError{}),
			want: true,
		},
		{name: "context canceled", err: context.Canceled, want: false},
		{name: "deadline exceeded", err: context.DeadlineExceeded, want: false},
		{
			name: "deadline wrapped around transient code",
			err:  fmt.Errorf("%w: %w", context.DeadlineExceeded, &pgconn.PgError{Code: "40001"}),
			want: false,
		},
		{name: "plain error", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

// An unflagged line must still encode as an empty array: pgx turns a
// nil []string into SQL NULL, and the flags column is NOT NULL.
func TestFlagStringsNeverNil(t *testing.T) {
	got := flagStrings(nil)
	if got == nil {
		t.Fatal("flagStrings(nil) = nil, want empty non-nil slice")
	}
	if len(got) != 0 {
		t.Errorf("flagStrings(nil) = %v, want empty", got)
	}

	got = flagStrings([]po.LineFlag{po.FlagUnmapped, po.FlagZeroQuantity})
	if len(got) != 2 || got[0] != "unmapped" || got[1] != "zero_quantity" {
		t.Errorf("flagStrings = %v, want [unmapped zero_quantity]", got)
	}
}

func TestFlagStringsEncodesAsEmptyArray(t *testing.T) {
	m := pgtype.NewMap()
	plan := m.PlanEncode(pgtype.TextArrayOID, pgtype.TextFormatCode, flagStrings(nil))
	if plan == nil {
		t.Fatal("no encode plan for []string")
	}
	buf, err := plan.Encode(flagStrings(nil), nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if buf == nil {
		t.Fatal("empty flags encoded as SQL NULL, want empty array")
	}
}
