package mongo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"journal/internal/storage"
)

func TestEncodeNotification_DocumentChanges(t *testing.T) {
	doc := &record{ID: "abc", UpdatedAt: 1700000000000}

	for _, op := range []string{"insert", "update", "replace"} {
		n, ok := encodeNotification("documents", op, "abc", doc)
		require.True(t, ok, op)
		assert.Equal(t, "documents", n.Channel)
		assert.JSONEq(t, `{"id":"abc","op":"`+op+`","updated_at":1700000000000}`, n.Payload)
	}
}

func TestEncodeNotification_NoFullDocument(t *testing.T) {
	// Update lookup can miss if the document was deleted right after the
	// change; the notification still carries id and op.
	n, ok := encodeNotification("documents", "update", "abc", nil)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"abc","op":"update"}`, n.Payload)
}

func TestEncodeNotification_IgnoresOtherOperations(t *testing.T) {
	for _, op := range []string{"delete", "drop", "invalidate", "rename"} {
		_, ok := encodeNotification("documents", op, "abc", nil)
		assert.False(t, ok, op)
	}
}

func TestClassify_DuplicateKey(t *testing.T) {
	err := classify(mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}},
	})

	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ClassUniqueness, se.Class)
}

func TestClassify_DocumentValidation(t *testing.T) {
	err := classify(mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 121, Message: "Document failed validation"}},
	})

	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ClassConstraint, se.Class)

	err = classify(mongo.CommandError{Code: 121, Message: "Document failed validation"})
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ClassConstraint, se.Class)
}

func TestClassify_UnknownErrorsStayUnclassified(t *testing.T) {
	cause := errors.New("connection reset")
	err := classify(cause)

	var se *storage.StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, storage.ClassUnclassified, se.Class)
	assert.ErrorIs(t, err, cause)
}

func TestClassOf(t *testing.T) {
	dup := classify(mongo.WriteException{
		WriteErrors: mongo.WriteErrors{{Code: 11000}},
	})
	assert.Equal(t, storage.ClassUniqueness, storage.ClassOf(dup))
	assert.Equal(t, storage.ClassUnclassified, storage.ClassOf(errors.New("plain")))
}
