// Package observability provides logging, metrics, and context helpers for
// the book content service.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	})
//	logger = observability.WithBookContext(logger, requestID, title, author)
//
// # Metrics
//
//	metrics := observability.NewMetrics("book_content")
//	metrics.RecordCacheHit("books")
//	metrics.RecordSearchCompleted("gutenberg", 5, 0.42)
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - title, author: the book being resolved
//   - source: catalog name (gutenberg, archive, openlibrary)
//   - query: search string sent to a catalog
//   - workflow_id, workflow_run_id: Temporal identifiers
package observability
