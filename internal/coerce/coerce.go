// Package coerce converts raw cell values into canonical field types:
// currency amounts, quantities, dates and item identifiers.
//
// Vendor exports are messy: currency symbols and thousand separators inside
// amounts, three different date notations in one file, Excel date serials
// where a sibling export has text dates, item codes that one system stores
// as padded text and another as integers. Every function here is pure and
// total: defined for all inputs, returning an error instead of panicking.
package coerce

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/tabular"
)

// coercionErr builds a CoercionError carrying the raw value and the
// failure reason. Row and column context is attached by the caller,
// which knows where the cell came from.
func coercionErr(value, format string, args ...interface{}) error {
	return &po.CoercionError{Value: value, Reason: fmt.Sprintf(format, args...)}
}

// numericRegex validates a cleaned amount string: integers, decimals and
// scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// amountJunk matches the characters stripped from amounts before parsing:
// currency symbols, thousands separators, surrounding whitespace.
var amountJunk = strings.NewReplacer(
	",", "",
	"₹", "",
	"$", "",
	"Rs.", "",
	"Rs", "",
	"INR", "",
	" ", "",
)

// Amount parses a currency amount, stripping thousands separators and
// currency symbols. Negative values parse successfully; whether a negative
// amount is legal on a given line (credit/adjustment lines only) is the
// platform parser's call.
func Amount(s string) (float64, error) {
	cleaned := amountJunk.Replace(strings.TrimSpace(s))
	if cleaned == "" {
		return 0, coercionErr(s, "empty amount")
	}
	// Accounting negatives: (123.45)
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	if !numericRegex.MatchString(cleaned) {
		return 0, coercionErr(s, "non-numeric residue %q", cleaned)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, coercionErr(s, "non-numeric residue %q", cleaned)
	}
	return v, nil
}

// Quantity parses a non-negative quantity. Fractional quantities are
// accepted: several platforms order by weight.
func Quantity(s string) (float64, error) {
	v, err := Amount(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, coercionErr(s, "negative quantity %v", v)
	}
	return v, nil
}

// Identifier normalizes a platform item code: trimmed, case preserved.
// A code that arrived through a numeric spreadsheet cell may carry a
// spurious ".0" suffix; that is stripped. Nothing else is altered, and in
// particular leading zeros survive, so a fixed-width padded code is never
// truncated.
func Identifier(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i > 0 && allDigits(s[:i]) && allZeros(s[i+1:]) {
		return s[:i]
	}
	return s
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func allZeros(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '0' {
			return false
		}
	}
	return true
}

// AmountsReconcile reports whether quantity x unitPrice matches lineAmount
// within tol. The default tolerance is one minor currency unit per line,
// absorbing per-line rounding in the source document.
func AmountsReconcile(quantity, unitPrice, lineAmount, tol float64) bool {
	if tol <= 0 {
		tol = 0.01
	}
	return math.Abs(quantity*unitPrice-lineAmount) <= tol+1e-9
}

// Round2 rounds to two decimal places. Aggregate totals are compared and
// persisted at minor-unit precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// --- dates --------------------------------------------------------------

// SerialEpoch is the spreadsheet date epoch: serial 1 renders as this
// date. Excel's 1900 date system.
var SerialEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// LeapBugThreshold is the serial beyond which the historical 1900
// leap-year bug shifts the calendar by one day. Excel serial 60 renders as
// the nonexistent 1900-02-29; every later serial is off by one against a
// real calendar.
const LeapBugThreshold = 59

// dateLayouts are tried in order. Four-digit-year layouts first because
// they are unambiguous; day-first forms before month-first because the
// platforms served here emit DD-MM-YYYY.
var (
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"2-1-2006", "02-01-2006", "2/1/2006", "02/01/2006",
		"2.1.2006", "02.01.2006",
		"Jan 2, 2006", "2 Jan 2006", "02 Jan 2006",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00",
		"2/1/2006 15:04", "02/01/2006 15:04",
		"20060102",
		// Month-first fallbacks: only reachable when the day-first reading
		// is impossible (month > 12), e.g. Zepto's "9/17/2025 12:04".
		"1/2/2006", "1/2/2006 15:04",
	}
	twoDigitYearLayouts = []string{
		"2-1-06", "02-01-06", "2/1/06", "02/01/06",
	}
)

// TwoDigitYearPivot interprets 2-digit years: values below it land in the
// 2000s, the rest in the 1900s.
var TwoDigitYearPivot = 50

// serialRegex matches a bare spreadsheet date serial rendered as text.
var serialRegex = regexp.MustCompile(`^\d+(\.\d+)?$`)

// Date coerces a cell into a calendar date. Numeric cells and bare-digit
// text are treated as spreadsheet serials; everything else goes through
// the layout list. The serial conversion reproduces the exact date a
// spreadsheet application displays for the same serial, including the
// 1900 leap-year artifact.
func Date(cell tabular.Cell) (time.Time, error) {
	switch cell.Kind {
	case tabular.CellEmpty:
		return time.Time{}, coercionErr("", "empty date")
	case tabular.CellNumber:
		return SerialDate(cell.Number)
	}
	s := strings.TrimSpace(cell.Text)
	if serialRegex.MatchString(s) {
		n, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return SerialDate(n)
		}
	}
	return DateString(s)
}

// SerialDate converts a spreadsheet date serial to a calendar date.
// Serial 1 is SerialEpoch; serials past LeapBugThreshold are corrected
// for the fictitious 1900-02-29.
func SerialDate(serial float64) (time.Time, error) {
	if serial < 1 || serial > 2958465 { // 9999-12-31 in the 1900 system
		return time.Time{}, coercionErr(strconv.FormatFloat(serial, 'f', -1, 64), "date serial %v out of range", serial)
	}
	days := int(serial) - 1
	if int(serial) > LeapBugThreshold {
		days--
	}
	return SerialEpoch.AddDate(0, 0, days), nil
}

// DateString parses a textual date against the known layouts.
func DateString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, coercionErr(s, "empty date")
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() >= 2000+TwoDigitYearPivot {
				t = t.AddDate(-100, 0, 0)
			}
			return t, nil
		}
	}
	return time.Time{}, coercionErr(s, "unrecognized date format %q", s)
}
