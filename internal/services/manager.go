// Package services constructs and runs the three long-lived activities of
// the process: the watcher pipeline, the persistence worker and the
// notification relay. Exactly one of each runs per process; everything is
// passed explicitly, no ambient globals.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	natsio "github.com/nats-io/nats.go"

	"journal/internal/auth"
	"journal/internal/config"
	"journal/internal/ingest"
	"journal/internal/pubsub"
	natsps "journal/internal/pubsub/nats"
	"journal/internal/realtime"
	"journal/internal/server"
	"journal/internal/storage/mongo"
	"journal/internal/watcher"
)

// Options selects which services this process runs.
type Options struct {
	RunWatcher  bool
	RunRealtime bool
}

// Manager owns service construction and lifecycle.
type Manager struct {
	cfg  *config.Config
	opts Options

	// ingestion side
	queue       chan ingest.Payload
	source      *watcher.Source
	pipeline    *watcher.Pipeline
	worker      *ingest.Worker
	workerStore *mongo.Store

	// realtime side
	hub        *realtime.Hub
	relay      *realtime.Relay
	relayStore *mongo.Store
	natsConn   *natsio.Conn
	mirror     pubsub.Publisher
	httpServer *server.Server

	errChan chan error
	wg      sync.WaitGroup
}

// NewManager creates an uninitialized manager.
func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{
		cfg:     cfg,
		opts:    opts,
		errChan: make(chan error, 4),
	}
}

// Init constructs every enabled service. Any error here is a fatal setup
// failure: a watch that cannot be established or a store that cannot be
// reached must abort startup.
func (m *Manager) Init(ctx context.Context) error {
	if m.opts.RunWatcher {
		if err := m.initIngestion(ctx); err != nil {
			return err
		}
	}
	if m.opts.RunRealtime {
		if err := m.initRealtime(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) initIngestion(ctx context.Context) error {
	store, err := mongo.Connect(ctx, m.cfg.Storage.URI, m.cfg.Storage.Database, m.cfg.Storage.Collection)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	m.workerStore = store

	source, err := watcher.NewSource(m.cfg.Watcher.Dir)
	if err != nil {
		return err
	}
	m.source = source

	m.queue = ingest.NewQueue(m.cfg.Watcher.QueueSize)
	m.pipeline = watcher.NewPipeline(source, watcher.NewParser(), m.queue, slog.Default())
	m.worker = ingest.NewWorker(store, slog.Default())
	return nil
}

func (m *Manager) initRealtime(ctx context.Context) error {
	// The relay listens on its own connection, isolated from the worker's,
	// so a slow ingestion write cannot starve notification delivery.
	store, err := mongo.Connect(ctx, m.cfg.Storage.URI, m.cfg.Storage.Database, m.cfg.Storage.Collection)
	if err != nil {
		return fmt.Errorf("connect notification store: %w", err)
	}
	m.relayStore = store

	m.hub = realtime.NewHub()

	var relayOpts []realtime.RelayOption
	if m.cfg.Realtime.Mirror.Enabled {
		nc, js, err := natsps.Connect(m.cfg.Realtime.Mirror.URL)
		if err != nil {
			return fmt.Errorf("connect mirror bus: %w", err)
		}
		m.natsConn = nc
		pub, err := natsps.NewPublisher(ctx, js, natsps.Options{
			StreamName:    m.cfg.Realtime.Mirror.Stream,
			SubjectPrefix: m.cfg.Realtime.Mirror.Subject,
		})
		if err != nil {
			return fmt.Errorf("mirror publisher: %w", err)
		}
		m.mirror = pub
		relayOpts = append(relayOpts, realtime.WithMirror(pub))
	}

	m.relay = realtime.NewRelay(store, m.hub, m.cfg.Storage.Channel, realtime.BackoffConfig{
		Initial:     m.cfg.Realtime.Reconnect.Initial,
		Max:         m.cfg.Realtime.Reconnect.Max,
		MaxAttempts: m.cfg.Realtime.Reconnect.MaxAttempts,
	}, slog.Default(), relayOpts...)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	secret := m.cfg.Realtime.AuthSecret
	mux.Handle("GET /realtime/ws", auth.Middleware(secret, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realtime.ServeWS(m.hub, w, r)
	})))
	mux.Handle("GET /realtime/sse", auth.Middleware(secret, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		realtime.ServeSSE(m.hub, w, r)
	})))

	m.httpServer = server.New(m.cfg.Server, mux, slog.Default())
	return nil
}

// Start launches every initialized service. The three activities share no
// state apart from the ingestion queue between pipeline and worker.
func (m *Manager) Start(ctx context.Context) {
	if m.pipeline != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.pipeline.Run(ctx); err != nil && err != context.Canceled {
				// Watcher death is not recovered here; operators restart
				// the process.
				slog.Error("watcher pipeline stopped", "error", err)
			}
		}()
	}

	if m.worker != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.worker.Run(ctx, m.queue)
		}()
	}

	if m.hub != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.hub.Run(ctx)
		}()
	}

	if m.relay != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := m.relay.Run(ctx); err != nil && err != context.Canceled {
				slog.Error("notification relay stopped", "error", err)
				m.errChan <- err
			}
		}()
	}

	if m.httpServer != nil {
		go m.httpServer.Run(m.errChan)
	}
}

// Errors surfaces fatal runtime failures (relay giving up, listener dying).
func (m *Manager) Errors() <-chan error {
	return m.errChan
}

// Shutdown stops services and releases connections. The background context
// passed to Start must already be cancelled.
func (m *Manager) Shutdown(ctx context.Context) {
	if m.source != nil {
		m.source.Close()
	}
	if m.httpServer != nil {
		if err := m.httpServer.Shutdown(ctx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}
	}

	m.wg.Wait()

	if m.mirror != nil {
		m.mirror.Close()
	}
	if m.natsConn != nil {
		m.natsConn.Close()
	}
	if m.workerStore != nil {
		m.workerStore.Close(ctx)
	}
	if m.relayStore != nil {
		m.relayStore.Close(ctx)
	}
}
