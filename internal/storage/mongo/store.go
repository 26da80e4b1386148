// Package mongo implements the document store and its change-stream
// notification feed on MongoDB.
package mongo

import (
	"context"
	"encoding/json"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"journal/internal/model"
	"journal/internal/storage"
)

// record is the on-disk shape of a journal document.
type record struct {
	ID        string   `bson:"_id"`
	Title     string   `bson:"title"`
	Outline   string   `bson:"outline"`
	Author    string   `bson:"author"`
	Content   string   `bson:"content"`
	Tags      []string `bson:"tags"`
	Image     string   `bson:"image"`
	Kind      string   `bson:"kind"`
	Genre     string   `bson:"genre"`
	CreatedAt int64    `bson:"created_at"`
	UpdatedAt int64    `bson:"updated_at"`
}

// Store is a MongoDB-backed storage.DocumentStore and storage.Notifier.
// Each Store owns its own client, so the manager can give the relay a
// connection separate from the worker's.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Connect opens a client, verifies it with a ping and returns the store.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, err
	}
	s := &Store{
		client: client,
		coll:   client.Database(database).Collection(collection),
	}
	s.ensureIndexes(ctx)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	return err
}

// Upsert inserts the document or replaces the stored fields sharing its id.
// Last write wins; there is no version check.
func (s *Store) Upsert(ctx context.Context, doc *model.Doc) (storage.UpsertResult, error) {
	ts := doc.UpdatedAt.UnixMilli()
	update := bson.M{
		"$set": bson.M{
			"title":      doc.Front.Title,
			"outline":    doc.Front.Outline,
			"author":     doc.Front.Author,
			"content":    doc.Content,
			"tags":       doc.Front.Tags,
			"image":      doc.Front.Image,
			"kind":       string(doc.Front.Kind),
			"genre":      string(doc.Front.Genre),
			"updated_at": ts,
		},
		"$setOnInsert": bson.M{
			"created_at": ts,
		},
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": doc.ID.String()}, update,
		options.Update().SetUpsert(true))
	if err != nil {
		return storage.UpsertResult{}, classify(err)
	}

	return storage.UpsertResult{
		ID:        doc.ID,
		UpdatedAt: doc.UpdatedAt,
		Created:   res.UpsertedCount > 0,
	}, nil
}

// Watch opens a change stream on the collection and emits one notification
// per document change, tagged with the given channel name. The returned
// channel closes when the stream dies; callers own reconnection.
func (s *Store) Watch(ctx context.Context, channel string) (<-chan storage.Notification, error) {
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)
	stream, err := s.coll.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, err
	}

	out := make(chan storage.Notification)
	go func() {
		defer close(out)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			var change struct {
				OperationType string `bson:"operationType"`
				DocumentKey   struct {
					ID string `bson:"_id"`
				} `bson:"documentKey"`
				FullDocument *record `bson:"fullDocument"`
			}
			if err := stream.Decode(&change); err != nil {
				continue
			}

			n, ok := encodeNotification(channel, change.OperationType, change.DocumentKey.ID, change.FullDocument)
			if !ok {
				continue
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// encodeNotification builds the opaque wire payload for one change: a small
// JSON object with the document id and the operation. Consumers treat it as
// a string.
func encodeNotification(channel, op, id string, doc *record) (storage.Notification, bool) {
	switch op {
	case "insert", "update", "replace":
	default:
		return storage.Notification{}, false
	}

	body := struct {
		ID        string `json:"id"`
		Op        string `json:"op"`
		UpdatedAt int64  `json:"updated_at,omitempty"`
	}{ID: id, Op: op}
	if doc != nil {
		body.UpdatedAt = doc.UpdatedAt
	}

	b, err := json.Marshal(body)
	if err != nil {
		return storage.Notification{}, false
	}
	return storage.Notification{Channel: channel, Payload: string(b)}, true
}

// classify maps driver errors onto the store error taxonomy. Duplicate keys
// are uniqueness violations, server-side document validation (code 121) is
// a constraint violation, everything else stays unclassified.
func classify(err error) error {
	switch {
	case mongo.IsDuplicateKeyError(err):
		return &storage.StoreError{Class: storage.ClassUniqueness, Err: err}
	case isValidationError(err):
		return &storage.StoreError{Class: storage.ClassConstraint, Err: err}
	default:
		return &storage.StoreError{Class: storage.ClassUnclassified, Err: err}
	}
}

const codeDocumentValidationFailure = 121

func isValidationError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == codeDocumentValidationFailure {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == codeDocumentValidationFailure {
		return true
	}
	return false
}
