package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJetStream struct {
	published  []string
	payloads   [][]byte
	streams    []jetstream.StreamConfig
	publishErr error
	streamErr  error
}

func (f *fakeJetStream) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	f.published = append(f.published, subject)
	f.payloads = append(f.payloads, payload)
	return &jetstream.PubAck{Stream: "JOURNAL"}, nil
}

func (f *fakeJetStream) CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	f.streams = append(f.streams, cfg)
	return nil, nil
}

func TestNewPublisher_EnsuresStream(t *testing.T) {
	js := &fakeJetStream{}
	_, err := NewPublisher(context.Background(), js, Options{StreamName: "JOURNAL"})
	require.NoError(t, err)

	require.Len(t, js.streams, 1)
	assert.Equal(t, "JOURNAL", js.streams[0].Name)
	assert.Equal(t, []string{"JOURNAL.>"}, js.streams[0].Subjects)
	assert.Equal(t, jetstream.MemoryStorage, js.streams[0].Storage)
}

func TestNewPublisher_PrefixDrivesStreamSubjects(t *testing.T) {
	js := &fakeJetStream{}
	_, err := NewPublisher(context.Background(), js, Options{StreamName: "JOURNAL", SubjectPrefix: "journal"})
	require.NoError(t, err)

	require.Len(t, js.streams, 1)
	assert.Equal(t, []string{"journal.>"}, js.streams[0].Subjects)
}

func TestNewPublisher_Errors(t *testing.T) {
	_, err := NewPublisher(context.Background(), nil, Options{})
	assert.Error(t, err)

	js := &fakeJetStream{streamErr: errors.New("no jetstream")}
	_, err = NewPublisher(context.Background(), js, Options{StreamName: "JOURNAL"})
	assert.Error(t, err)
}

func TestPublish_PrependsPrefix(t *testing.T) {
	js := &fakeJetStream{}
	pub, err := NewPublisher(context.Background(), js, Options{StreamName: "JOURNAL", SubjectPrefix: "journal"})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), "documents", []byte("payload")))
	assert.Equal(t, []string{"journal.documents"}, js.published)
	assert.Equal(t, "payload", string(js.payloads[0]))
}

func TestPublish_NoPrefixUsesSubjectAsIs(t *testing.T) {
	js := &fakeJetStream{}
	pub, err := NewPublisher(context.Background(), js, Options{})
	require.NoError(t, err)

	require.NoError(t, pub.Publish(context.Background(), "documents", nil))
	assert.Equal(t, []string{"documents"}, js.published)
}

func TestPublish_WrapsError(t *testing.T) {
	cause := errors.New("timeout")
	js := &fakeJetStream{publishErr: cause}
	pub, err := NewPublisher(context.Background(), js, Options{SubjectPrefix: "journal"})
	require.NoError(t, err)

	err = pub.Publish(context.Background(), "documents", nil)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "journal.documents")
}
