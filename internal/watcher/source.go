// Package watcher turns filesystem activity in the journal directory into
// parsed documents for the ingestion queue.
package watcher

import (
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ChangeOp represents the kind of filesystem change.
type ChangeOp int

const (
	// OpCreate indicates a new file was created.
	OpCreate ChangeOp = iota
	// OpModify indicates an existing file was written to.
	OpModify
	// OpRemove indicates a file was removed or renamed away.
	OpRemove
	// OpOther covers everything else (chmod and friends).
	OpOther
)

// String returns a human-readable representation of the operation.
func (op ChangeOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpRemove:
		return "remove"
	default:
		return "other"
	}
}

// RawEvent is one filesystem change as seen by the source, before
// classification.
type RawEvent struct {
	Path  string
	Op    ChangeOp
	IsDir bool
}

// Source watches a single directory (non-recursive) and emits RawEvents.
// The stream is live and non-restartable: when the underlying watch handle
// dies the Events channel is closed, and it is up to the caller to treat
// that as the watcher having died.
type Source struct {
	fsw    *fsnotify.Watcher
	events chan RawEvent
	errs   chan error
	done   chan struct{}
	wg     sync.WaitGroup
	closed sync.Once
}

// NewSource establishes the directory watch. Failure here (missing path,
// permissions) is a fatal setup error; no events are produced.
func NewSource(dir string) (*Source, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	s := &Source{
		fsw:    fsw,
		events: make(chan RawEvent, 64),
		errs:   make(chan error, 8),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.loop()
	return s, nil
}

// Events returns the raw event stream. Closed when the watch dies or the
// source is closed.
func (s *Source) Events() <-chan RawEvent {
	return s.events
}

// Errors returns non-fatal watch errors.
func (s *Source) Errors() <-chan error {
	return s.errs
}

// Close tears down the watch and waits for the event loop to exit.
func (s *Source) Close() error {
	var err error
	s.closed.Do(func() {
		close(s.done)
		err = s.fsw.Close()
		s.wg.Wait()
	})
	return err
}

func (s *Source) loop() {
	defer s.wg.Done()
	defer close(s.events)

	for {
		select {
		case <-s.done:
			return

		case ev, ok := <-s.fsw.Events:
			if !ok {
				// Watch handle died.
				return
			}
			select {
			case s.events <- convertEvent(ev):
			case <-s.done:
				return
			}

		case err, ok := <-s.fsw.Errors:
			if !ok {
				return
			}
			select {
			case s.errs <- err:
			case <-s.done:
				return
			}
		}
	}
}

// convertEvent maps an fsnotify event to a RawEvent. The directory flag is
// resolved with a stat; paths that no longer exist are treated as files.
func convertEvent(ev fsnotify.Event) RawEvent {
	var op ChangeOp
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpModify
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		op = OpRemove
	default:
		op = OpOther
	}

	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	return RawEvent{Path: ev.Name, Op: op, IsDir: isDir}
}
