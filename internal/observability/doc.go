// Package observability provides logging and metrics support for the
// medline ingest service.
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("pmid", pmid).Msg("record dumped")
//
// # Metrics
//
// Initialize and record metrics:
//
//	metrics := observability.NewMetrics("medline_ingest")
//	metrics.RecordsParsed.Inc()
//	metrics.RecordsDumped.WithLabelValues("created").Inc()
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - pmid: PubMed identifier of a citation
//   - run_id: Dump run identifier
//   - batch_size: Number of PMIDs in an efetch request
//   - outcome: Result class of a store operation
//
// All components are safe for concurrent use from multiple goroutines.
package observability
