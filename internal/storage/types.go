// Package storage defines the persistence contracts used by the sync worker
// and the notification relay.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"journal/internal/model"
)

// ErrorClass is a coarse classification of store failures, preserved so
// callers can react differently (retry vs reject) even though the sync
// worker treats them all the same.
type ErrorClass int

const (
	// ClassUnclassified is any failure the backend could not categorize.
	ClassUnclassified ErrorClass = iota
	// ClassUniqueness is a uniqueness violation.
	ClassUniqueness
	// ClassConstraint is a constraint or model violation.
	ClassConstraint
)

// String returns a human-readable representation of the class.
func (c ErrorClass) String() string {
	switch c {
	case ClassUniqueness:
		return "uniqueness"
	case ClassConstraint:
		return "constraint"
	default:
		return "unclassified"
	}
}

// StoreError wraps a backend failure with its classification.
type StoreError struct {
	Class ErrorClass
	Err   error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Class, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ClassOf extracts the classification from an error chain.
func ClassOf(err error) ErrorClass {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Class
	}
	return ClassUnclassified
}

// UpsertResult reports the outcome of an idempotent create-or-update.
type UpsertResult struct {
	ID        uuid.UUID
	UpdatedAt time.Time
	Created   bool
}

// DocumentStore is the contract the persistence worker drains into. Upsert
// is keyed by doc.ID: insert if absent, replace fields if present,
// last write wins.
type DocumentStore interface {
	Upsert(ctx context.Context, doc *model.Doc) (UpsertResult, error)
	Close(ctx context.Context) error
}

// Notification is one message from the store's native change feed. The
// payload is opaque at this layer; the relay forwards it untouched.
type Notification struct {
	Channel string `json:"channel"`
	Payload string `json:"payload"`
}

// Notifier is the store-native change feed the relay listens on.
// Implementations hold their own dedicated connection, separate from the
// one behind DocumentStore, so a stuck query cannot starve notification
// delivery. The returned channel closes when the feed dies; it is not
// restarted here.
type Notifier interface {
	Watch(ctx context.Context, channel string) (<-chan Notification, error)
	Close(ctx context.Context) error
}
