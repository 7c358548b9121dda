package telemetry

import (
	"testing"

	"github.com/posthog/posthog-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEnqueuer records enqueued messages instead of sending them.
type mockEnqueuer struct {
	messages []posthog.Message
	closed   bool
}

func (m *mockEnqueuer) Enqueue(msg posthog.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *mockEnqueuer) Close() error {
	m.closed = true
	return nil
}

func TestNew_DisabledWithoutCredentials(t *testing.T) {
	client, err := New(Config{})
	require.NoError(t, err)
	assert.IsType(t, NoopClient{}, client)

	client, err = New(Config{APIKey: "phc_test"})
	require.NoError(t, err)
	assert.IsType(t, NoopClient{}, client, "anonymous id is required too")
}

func TestPostHogClient_TrackEnrichesProperties(t *testing.T) {
	mock := &mockEnqueuer{}
	client := &PostHogClient{client: mock, anonymousID: "anon-1", version: "0.3.0"}

	client.Track("frame_created", Properties{"type": "bug"})

	require.Len(t, mock.messages, 1)
	capture, ok := mock.messages[0].(posthog.Capture)
	require.True(t, ok)
	assert.Equal(t, "anon-1", capture.DistinctId)
	assert.Equal(t, "frame_created", capture.Event)
	assert.Equal(t, "bug", capture.Properties["type"])
	assert.Equal(t, "0.3.0", capture.Properties["version"])
	assert.NotEmpty(t, capture.Properties["os"])
}

func TestPostHogClient_CloseFlushes(t *testing.T) {
	mock := &mockEnqueuer{}
	client := &PostHogClient{client: mock}
	require.NoError(t, client.Close())
	assert.True(t, mock.closed)
}

func TestNoopClient(t *testing.T) {
	var c NoopClient
	c.Track("anything", Properties{"k": "v"})
	assert.NoError(t, c.Close())
}
