// Package ingest connects the watcher pipeline to the persistence worker
// through a bounded FIFO queue.
package ingest

import "journal/internal/model"

// DefaultQueueSize is the queue capacity used when none is configured.
const DefaultQueueSize = 1024

// Payload is one item on the ingestion queue: a parsed document, or a
// diagnostic. Exactly one field is set. Diagnostics are non-fatal and never
// block the payloads behind them.
type Payload struct {
	Doc     *model.Doc
	Warning string
	Error   string
}

// DocPayload wraps a parsed document.
func DocPayload(doc *model.Doc) Payload {
	return Payload{Doc: doc}
}

// WarningPayload wraps a non-fatal diagnostic.
func WarningPayload(msg string) Payload {
	return Payload{Warning: msg}
}

// ErrorPayload wraps an error diagnostic.
func ErrorPayload(msg string) Payload {
	return Payload{Error: msg}
}

// NewQueue returns the bounded channel between the watcher and the worker.
// A full queue blocks the producer; nothing is dropped or reordered. This is
// the sole backpressure mechanism in the process.
func NewQueue(size int) chan Payload {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return make(chan Payload, size)
}
