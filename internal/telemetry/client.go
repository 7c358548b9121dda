// Package telemetry sends anonymous usage events to PostHog. Events never
// include frame or conversation content, only lifecycle milestones.
package telemetry

import (
	"io"
	"runtime"
	"time"

	"github.com/posthog/posthog-go"
)

// Client is the interface for telemetry clients. This abstraction allows
// mocking in tests and a no-op implementation when telemetry is disabled.
type Client interface {
	// Track sends an event asynchronously. Returns immediately without blocking.
	Track(event string, properties map[string]any)

	// Close flushes pending events and closes the client.
	Close() error
}

// Properties is a type alias for event properties.
type Properties = map[string]any

// enqueuer is the subset of the PostHog client we use, extracted so tests
// can substitute a recorder.
type enqueuer interface {
	io.Closer
	Enqueue(msg posthog.Message) error
}

// PostHogClient wraps the PostHog SDK for async telemetry.
type PostHogClient struct {
	client      enqueuer
	anonymousID string
	version     string
}

// Config holds what the client needs to initialize.
type Config struct {
	APIKey      string
	Endpoint    string
	AnonymousID string
	Version     string
}

// New creates a PostHog-backed client, or a no-op client when the API key
// is missing.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" || cfg.AnonymousID == "" {
		return NoopClient{}, nil
	}
	phConfig := posthog.Config{
		// CLI processes exit quickly; keep batches small and flush fast.
		BatchSize: 10,
		Interval:  1 * time.Second,
	}
	if cfg.Endpoint != "" {
		phConfig.Endpoint = cfg.Endpoint
	}
	ph, err := posthog.NewWithConfig(cfg.APIKey, phConfig)
	if err != nil {
		return nil, err
	}
	return &PostHogClient{client: ph, anonymousID: cfg.AnonymousID, version: cfg.Version}, nil
}

func (c *PostHogClient) Track(event string, properties map[string]any) {
	props := posthog.NewProperties().
		Set("version", c.version).
		Set("os", runtime.GOOS).
		Set("arch", runtime.GOARCH)
	for k, v := range properties {
		props.Set(k, v)
	}
	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.anonymousID,
		Event:      event,
		Properties: props,
	})
}

func (c *PostHogClient) Close() error {
	return c.client.Close()
}

// NoopClient drops all events. Used when telemetry is disabled.
type NoopClient struct{}

func (NoopClient) Track(string, map[string]any) {}
func (NoopClient) Close() error                 { return nil }
