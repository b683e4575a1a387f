// Package store persists transformed citation records in PostgreSQL: it
// decides which requested PMIDs need fetching, turns records into stored
// citations with their annotated text sections, and links content-addressed
// attachment files to citations.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/medline-ingest-service/internal/domain"
	"github.com/helixir/medline-ingest-service/internal/medline"
	"github.com/helixir/medline-ingest-service/internal/observability"
	"github.com/helixir/medline-ingest-service/internal/repository"
)

// Dump outcome labels for the records_dumped_total metric.
const (
	outcomeCreated = "created"
	outcomeUpdated = "updated"
	outcomeRefused = "refused"
	outcomeFailed  = "failed"
)

// Fetcher retrieves citation XML for batches of PMIDs.
type Fetcher interface {
	// Fetch returns the XML stream for up to FetchSize PMIDs.
	Fetch(ctx context.Context, pmids []string) (io.ReadCloser, error)

	// FetchSize is the maximum batch size Fetch accepts.
	FetchSize() int
}

// Result summarizes one dump run.
type Result struct {
	// Created and Updated count citations written to the store.
	Created int
	Updated int

	// Skipped counts requested PMIDs the update policy left alone.
	Skipped int

	// Refused counts existing citations whose text changed upstream;
	// those are never overwritten.
	Refused int

	// Failed lists PMIDs that could not be persisted.
	Failed []string
}

// Processed returns the number of citations written.
func (r *Result) Processed() int {
	return r.Created + r.Updated
}

// Dumper fetches citation records and persists them according to an update
// policy. Safe for concurrent use as long as the underlying repository is.
type Dumper struct {
	citations repository.CitationRepository
	fetcher   Fetcher
	policy    UpdatePolicy
	logger    zerolog.Logger
	metrics   *observability.Metrics
}

// NewDumper creates a dumper over the given repository and fetcher.
func NewDumper(
	citations repository.CitationRepository,
	fetcher Fetcher,
	policy UpdatePolicy,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Dumper {
	return &Dumper{
		citations: citations,
		fetcher:   fetcher,
		policy:    policy,
		logger:    logger,
		metrics:   metrics,
	}
}

// Dump fetches the given PMIDs in batches and persists each record, skipping
// PMIDs the update policy rules out. A fetch or XML failure aborts the run;
// per-record persistence failures are collected in the result instead.
func (d *Dumper) Dump(ctx context.Context, pmids []string) (*Result, error) {
	result := &Result{}
	size := d.fetcher.FetchSize()

	for start := 0; start < len(pmids); start += size {
		end := start + size
		if end > len(pmids) {
			end = len(pmids)
		}

		if err := d.dumpBatch(ctx, pmids[start:end], result); err != nil {
			return result, err
		}
	}

	return result, nil
}

func (d *Dumper) dumpBatch(ctx context.Context, batch []string, result *Result) error {
	existing, err := d.citations.Existing(ctx, batch)
	if err != nil {
		return fmt.Errorf("failed to look up existing citations: %w", err)
	}

	query, replacing := d.policy.Plan(batch, existing, time.Now().UTC())
	result.Skipped += len(batch) - len(query)
	if len(query) == 0 {
		return nil
	}

	started := time.Now()
	defer func() {
		d.metrics.DumpDuration.Observe(time.Since(started).Seconds())
	}()

	d.metrics.FetchRequestsTotal.Inc()
	fetchStarted := time.Now()
	body, err := d.fetcher.Fetch(ctx, query)
	d.metrics.FetchRequestDuration.Observe(time.Since(fetchStarted).Seconds())
	if err != nil {
		d.metrics.FetchRequestsFailed.Inc()
		return fmt.Errorf("failed to fetch batch: %w", err)
	}
	defer body.Close()

	reader := medline.NewReader(body)
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			d.metrics.RecordsFailed.WithLabelValues(errorKind(err)).Inc()
			return fmt.Errorf("failed to read citation records: %w", err)
		}
		d.metrics.RecordsParsed.Inc()

		d.persistRecord(ctx, rec, replacing, result)
	}
}

// DumpStream persists every record in an already-open XML stream, bypassing
// the fetcher and the update policy. Used for loading local MEDLINE
// distribution files.
func (d *Dumper) DumpStream(ctx context.Context, r io.Reader) (*Result, error) {
	result := &Result{}
	reader := medline.NewReader(r)
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return result, nil
		}
		if err != nil {
			d.metrics.RecordsFailed.WithLabelValues(errorKind(err)).Inc()
			return result, fmt.Errorf("failed to read citation records: %w", err)
		}
		d.metrics.RecordsParsed.Inc()

		d.persistRecord(ctx, rec, nil, result)
	}
}

// persistRecord writes one record and its sections, honouring the guard
// against records whose upstream text changed.
func (d *Dumper) persistRecord(ctx context.Context, rec medline.Record, replacing map[string]*domain.Citation, result *Result) {
	citation, sections, err := buildCitation(rec)
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to build citation from record")
		d.metrics.RecordsDumped.WithLabelValues(outcomeFailed).Inc()
		return
	}

	logger := observability.WithCitationContext(d.logger, citation.PMID)

	old, isReplace := replacing[citation.PMID]
	if isReplace && old.Text != citation.Text {
		logger.Error().Msg("text changed upstream; not updating")
		d.metrics.RecordsDumped.WithLabelValues(outcomeRefused).Inc()
		result.Refused++
		return
	}

	if _, err := d.citations.Upsert(ctx, citation); err != nil {
		logger.Error().Err(err).Msg("failed to save citation")
		d.metrics.RecordsDumped.WithLabelValues(outcomeFailed).Inc()
		result.Failed = append(result.Failed, citation.PMID)
		return
	}
	if err := d.citations.ReplaceSections(ctx, citation.PMID, sections); err != nil {
		logger.Error().Err(err).Msg("failed to save citation sections")
		d.metrics.RecordsDumped.WithLabelValues(outcomeFailed).Inc()
		result.Failed = append(result.Failed, citation.PMID)
		return
	}

	if isReplace {
		d.metrics.RecordsDumped.WithLabelValues(outcomeUpdated).Inc()
		result.Updated++
		logger.Debug().Msg("citation updated")
	} else {
		d.metrics.RecordsDumped.WithLabelValues(outcomeCreated).Inc()
		result.Created++
		logger.Debug().Msg("citation created")
	}
}

// buildCitation converts one transformed record into its stored form.
func buildCitation(rec medline.Record) (*domain.Citation, []domain.Section, error) {
	pmid, ok := rec["PMID"].(medline.Identifier)
	if !ok {
		return nil, nil, domain.ErrMissingIdentifier
	}

	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	status, _ := rec.Scalar("Status")
	citation := &domain.Citation{
		PMID:          pmid.Value,
		Version:       pmid.Version,
		Status:        status,
		Document:      doc,
		Text:          Text(rec),
		DateCreated:   dateField(rec, "DateCreated"),
		DateCompleted: dateField(rec, "DateCompleted"),
		DateRevised:   dateField(rec, "DateRevised"),
	}

	return citation, Sections(rec), nil
}

// errorKind labels a record read failure for the records_failed_total metric.
func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrMalformedXML):
		return "malformed_xml"
	case errors.Is(err, domain.ErrUnrecognizedElement):
		return "unrecognized_element"
	case errors.Is(err, domain.ErrMissingIdentifier):
		return "missing_identifier"
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		return "duplicate_identifier"
	default:
		return "other"
	}
}

// dateField extracts a resolved date field as a timestamp, nil when absent.
func dateField(rec medline.Record, key string) *time.Time {
	d, ok := rec[key].(medline.Date)
	if !ok {
		return nil
	}
	t := d.Time()
	return &t
}
