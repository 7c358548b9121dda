package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/framerhq/framer/internal/engine"
	"github.com/framerhq/framer/internal/lifecycle"
	"github.com/framerhq/framer/internal/telemetry"
	"github.com/framerhq/framer/remote"
	"github.com/framerhq/framer/store"
)

// App wires the coordination core together for one CLI invocation: the
// remote clients, the two engines seeded from the local snapshot, and the
// telemetry client.
type App struct {
	Engine    *engine.Engine
	Lifecycle *lifecycle.Lifecycle

	snapshots store.SnapshotStore
	telemetry telemetry.Client
}

// newApp builds the core and restores the persisted snapshot.
func newApp() (*App, error) {
	cfg := GetConfig()

	tel, err := telemetry.New(telemetry.Config{
		APIKey:      cfg.Telemetry.APIKey,
		Endpoint:    cfg.Telemetry.Endpoint,
		AnonymousID: cfg.Telemetry.AnonymousID,
		Version:     version,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}
	if !cfg.Telemetry.Enabled {
		tel = telemetry.NoopClient{}
	}

	client := remote.NewClient(
		cfg.Backend.BaseURL,
		cfg.Backend.APIKey,
		time.Duration(cfg.Backend.RequestTimeoutSeconds)*time.Second,
		cfg.Backend.Debug || cfg.Verbose,
	)

	app := &App{
		Engine:    engine.New(remote.NewConversationClient(client, cfg.Backend.Language), tel),
		Lifecycle: lifecycle.New(remote.NewFrameClient(client), tel),
		snapshots: store.NewFileSnapshotStore(),
		telemetry: tel,
	}

	storeConfig := map[string]string{
		"dataFile":       DataFilePath(),
		"dataFileFormat": cfg.Data.Format,
	}
	if err := app.snapshots.Initialize(storeConfig); err != nil {
		return nil, fmt.Errorf("initialize snapshot store: %w", err)
	}
	snapshot, err := app.snapshots.Load()
	if err != nil {
		_ = app.snapshots.Close()
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	app.Lifecycle.Load(snapshot.Frames)
	if snapshot.Conversation != nil {
		app.Engine.Resume(*snapshot.Conversation)
	}
	return app, nil
}

// Close persists the current state and releases resources. This is the
// serialize half of the explicit persistence boundary.
func (a *App) Close() error {
	snapshot := store.Snapshot{Frames: a.Lifecycle.Frames()}
	if conv, ok := a.Engine.Conversation(); ok {
		snapshot.Conversation = &conv
	}
	saveErr := a.snapshots.Save(snapshot)
	if err := a.snapshots.Close(); err != nil && saveErr == nil {
		saveErr = err
	}
	_ = a.telemetry.Close()
	return saveErr
}

// opContext returns a context bounded by the configured request timeout.
func opContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(GetConfig().Backend.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// withApp runs fn against a fully wired app and persists state afterward.
func withApp(fn func(app *App) error) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	runErr := fn(app)
	if err := app.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to persist state: %v\n", err)
	}
	return runErr
}

// HandleError prints a message and exits non-zero.
func HandleError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
