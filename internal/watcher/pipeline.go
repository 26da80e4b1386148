package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"journal/internal/ingest"
)

// ErrSourceClosed is returned by Pipeline.Run when the event source
// terminates on its own. The pipeline does not restart it.
var ErrSourceClosed = errors.New("watcher: event source terminated")

// EventSource is the raw event feed the pipeline drains. *Source is the
// production implementation; tests feed synthetic events.
type EventSource interface {
	Events() <-chan RawEvent
	Errors() <-chan error
}

// Pipeline composes the event source, the classifier and the parser, and
// feeds the ingestion queue. Per-file failures become diagnostic payloads
// and the pipeline moves on; only the source dying ends the run.
type Pipeline struct {
	source EventSource
	parser *Parser
	out    chan<- ingest.Payload
	logger *slog.Logger
}

// NewPipeline wires a pipeline onto an established source.
func NewPipeline(source EventSource, parser *Parser, out chan<- ingest.Payload, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{source: source, parser: parser, out: out, logger: logger}
}

// Run drains the source until it terminates or ctx is cancelled. Sends to
// the queue block when it is full; that backpressure deliberately slows
// event processing instead of overwhelming the store.
func (p *Pipeline) Run(ctx context.Context) error {
	events := p.source.Events()
	errs := p.source.Errors()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			p.send(ctx, ingest.WarningPayload(fmt.Sprintf("watch error: %v", err)))

		case ev, ok := <-events:
			if !ok {
				p.send(ctx, ingest.ErrorPayload("event source terminated"))
				return ErrSourceClosed
			}
			p.handle(ctx, ev)
		}
	}
}

func (p *Pipeline) handle(ctx context.Context, ev RawEvent) {
	path, ok := Classify(ev)
	if !ok {
		p.logger.Debug("event discarded", "path", ev.Path, "op", ev.Op.String(), "dir", ev.IsDir)
		return
	}

	doc, err := p.parser.Parse(path)
	if err != nil {
		p.send(ctx, ingest.WarningPayload(err.Error()))
		return
	}
	if doc == nil {
		// Empty file, the real content follows with the next write event.
		p.logger.Debug("empty file skipped", "path", path)
		return
	}

	p.logger.Debug("document parsed", "id", doc.ID, "path", path)
	p.send(ctx, ingest.DocPayload(doc))
}

func (p *Pipeline) send(ctx context.Context, payload ingest.Payload) {
	select {
	case p.out <- payload:
	case <-ctx.Done():
	}
}
