// Package events publishes domain events to Kafka and consumes reading-list
// prewarm requests.
//
// The service emits one book_content.resolved event per aggregation. When
// Kafka is disabled a NoopPublisher takes its place, so callers never branch
// on configuration.
package events
