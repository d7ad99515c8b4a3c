// Package importer orchestrates one PO import end to end: parse the raw
// document, validate totals, resolve item codes, and commit both the
// platform and canonical records in a single transaction. Every attempt
// gets a UUID so a result can be matched to its log lines.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jivoecom/po-import/internal/coerce"
	"github.com/jivoecom/po-import/internal/platform"
	"github.com/jivoecom/po-import/internal/po"
	"github.com/jivoecom/po-import/internal/resolve"
	"github.com/jivoecom/po-import/internal/store"
	"github.com/jivoecom/po-import/internal/tabular"
	"github.com/jivoecom/po-import/internal/validate"
)

// Store is the persistence surface the importer needs. Satisfied by
// *store.Store.
type Store interface {
	EnsurePlatform(ctx context.Context, name string) (int64, error)
	InsertIfAbsent(ctx context.Context, rec store.PlatformRecord, canonical po.CanonicalPO, lines []po.CanonicalLine) (store.InsertResult, error)
}

// Options tune commit behavior and validation rules.
type Options struct {
	// CommitTimeout bounds one commit including its retries.
	CommitTimeout time.Duration

	// MaxRetries is the number of extra attempts after a transient
	// storage failure. The transaction is retried whole; partial state
	// never survives a failed attempt.
	MaxRetries int

	// RetryBackoff is the initial delay between attempts; it doubles on
	// each retry.
	RetryBackoff time.Duration

	// Default validation rules, overridable per platform key.
	Default validate.Validator
	Rules   map[string]validate.Validator
}

func (o *Options) fillDefaults() {
	if o.CommitTimeout <= 0 {
		o.CommitTimeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 100 * time.Millisecond
	}
	if o.Default.TolerancePerLine == 0 {
		o.Default.TolerancePerLine = validate.DefaultTolerancePerLine
	}
}

// Service runs imports. Safe for concurrent use.
type Service struct {
	store    Store
	resolver *resolve.Resolver
	log      *slog.Logger
	opts     Options
}

// New builds a Service. lookup is the item-mapping source, usually the
// same *store.Store as st.
func New(st Store, lookup resolve.Lookup, log *slog.Logger, opts Options) *Service {
	opts.fillDefaults()
	return &Service{
		store:    st,
		resolver: resolve.New(lookup),
		log:      log,
		opts:     opts,
	}
}

// Parse decodes a raw upload and runs the parser registered for the
// platform key. It persists nothing; the web preview endpoint and the
// CLI dry run call it directly.
func (s *Service) Parse(doc tabular.RawDocument, platformKey string) ([]po.Document, error) {
	parser, ok := platform.Get(platformKey)
	if !ok {
		return nil, fmt.Errorf("%w: %q", po.ErrUnknownPlatform, platformKey)
	}
	rows, err := tabular.ReadAll(doc)
	if err != nil {
		return nil, err
	}
	return parser.Parse(rows)
}

// ImportPO validates, resolves and persists one parsed PO. It never
// returns an error: every failure mode is an ImportResult with outcome
// Rejected and a reason, so callers handle one shape.
func (s *Service) ImportPO(ctx context.Context, platformKey string, doc *po.Document) po.ImportResult {
	result := po.ImportResult{
		AttemptID: uuid.NewString(),
		PONumber:  doc.Header.PONumber,
		Warnings:  doc.Warnings,
	}
	log := s.log.With(
		"attempt_id", result.AttemptID,
		"platform", platformKey,
		"po_number", doc.Header.PONumber,
	)

	platformID, err := s.store.EnsurePlatform(ctx, platformKey)
	if err != nil {
		return s.reject(log, result, fmt.Sprintf("platform lookup failed: %v", err))
	}

	validator := s.validatorFor(platformKey)
	report, err := validator.Validate(doc)
	if err != nil {
		return s.reject(log, result, err.Error())
	}
	result.Warnings = append(result.Warnings, report.Discrepancies...)

	unmapped, err := s.resolver.ResolveLines(ctx, platformID, doc.Lines)
	if err != nil {
		return s.reject(log, result, fmt.Sprintf("item lookup failed: %v", err))
	}
	result.UnmappedLines = unmapped

	rec := store.PlatformRecord{PlatformID: platformID, Header: doc.Header, Lines: doc.Lines}
	canonical, lines := canonicalize(platformID, doc, report.Totals)

	inserted, err := s.commit(ctx, rec, canonical, lines)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return s.reject(log, result, "timeout")
		}
		return s.reject(log, result, fmt.Sprintf("storage failure: %v", err))
	}
	result.PlatformPOID = inserted.PlatformPOID
	result.CanonicalID = inserted.CanonicalID

	switch {
	case !inserted.Created:
		result.Outcome = po.AlreadyExists
	case len(report.Discrepancies) > 0 || len(unmapped) > 0:
		result.Outcome = po.PartiallyImported
	default:
		result.Outcome = po.Created
	}

	log.InfoContext(ctx, "po import finished",
		"outcome", string(result.Outcome),
		"lines", len(doc.Lines),
		"unmapped", len(unmapped),
		"discrepancies", len(report.Discrepancies),
	)
	return result
}

// ImportDocument parses a raw upload and imports every PO it contains.
// Parse failures reject the whole document; per-PO failures only affect
// their own result.
func (s *Service) ImportDocument(ctx context.Context, raw tabular.RawDocument, platformKey string) ([]po.ImportResult, error) {
	docs, err := s.Parse(raw, platformKey)
	if err != nil {
		return nil, err
	}
	results := make([]po.ImportResult, 0, len(docs))
	for i := range docs {
		results = append(results, s.ImportPO(ctx, platformKey, &docs[i]))
	}
	return results, nil
}

// commit writes one PO, retrying transient failures with doubling
// backoff inside the commit timeout.
func (s *Service) commit(ctx context.Context, rec store.PlatformRecord, canonical po.CanonicalPO, lines []po.CanonicalLine) (store.InsertResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.CommitTimeout)
	defer cancel()

	backoff := s.opts.RetryBackoff
	var lastErr error
	for attempt := 0; attempt <= s.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return store.InsertResult{}, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		res, err := s.commitOnce(ctx, rec, canonical, lines)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !store.IsTransient(err) {
			break
		}
		s.log.WarnContext(ctx, "transient storage failure, retrying",
			"po_number", rec.Header.PONumber,
			"attempt", attempt+1,
			"error", err,
		)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return store.InsertResult{}, ctxErr
	}
	return store.InsertResult{}, lastErr
}

func (s *Service) commitOnce(ctx context.Context, rec store.PlatformRecord, canonical po.CanonicalPO, lines []po.CanonicalLine) (store.InsertResult, error) {
	return s.store.InsertIfAbsent(ctx, rec, canonical, lines)
}

func (s *Service) validatorFor(platformKey string) validate.Validator {
	if v, ok := s.opts.Rules[platformKey]; ok {
		if v.TolerancePerLine <= 0 {
			v.TolerancePerLine = s.opts.Default.TolerancePerLine
		}
		return v
	}
	return s.opts.Default
}

func (s *Service) reject(log *slog.Logger, result po.ImportResult, reason string) po.ImportResult {
	result.Outcome = po.Rejected
	result.Reason = reason
	log.Warn("po import rejected", "reason", reason)
	return result
}

// canonicalize derives the cross-platform record from a parsed document
// and its recomputed totals. Basic amount is the line amount net of tax.
func canonicalize(platformID int64, doc *po.Document, totals validate.Totals) (po.CanonicalPO, []po.CanonicalLine) {
	canonical := po.CanonicalPO{
		PlatformID:    platformID,
		PONumber:      doc.Header.PONumber,
		VendorName:    doc.Header.VendorName,
		PODate:        doc.Header.PODate,
		ExpiryDate:    doc.Header.ExpiryDate,
		TotalQuantity: totals.Quantity,
		TotalAmount:   totals.Amount,
		TotalTax:      totals.Tax,
	}
	lines := make([]po.CanonicalLine, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, po.CanonicalLine{
			LineNumber:  l.LineNumber,
			ItemID:      l.CanonicalItemID,
			Quantity:    l.Quantity,
			BasicAmount: basicAmount(l.LineAmount, l.TaxAmount),
			TaxAmount:   l.TaxAmount,
			TotalAmount: l.LineAmount,
		})
	}
	return canonical, lines
}

func basicAmount(lineAmount, taxAmount float64) float64 {
	basic := coerce.Round2(lineAmount - taxAmount)
	if basic < 0 {
		return 0
	}
	return basic
}
