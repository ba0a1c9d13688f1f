// Package worker provides the HTTP service for emostream: REST session
// control, the SSE emotion feed, and the websocket chat endpoint.
package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/emostream-io/emostream/internal/config"
	"github.com/emostream-io/emostream/internal/db/sqlite"
	"github.com/emostream-io/emostream/internal/replay"
	"github.com/emostream-io/emostream/internal/session"
	"github.com/emostream-io/emostream/internal/worker/stream"
)

// Service wires the session manager, the event stream and the journal
// behind one router.
type Service struct {
	version     string
	config      *config.Config
	store       *sqlite.Store // nil disables journaling
	sessions    *session.Manager
	broadcaster *stream.Broadcaster

	recMu      sync.RWMutex
	recordings []string

	replayMu sync.Mutex
	replays  map[string]context.CancelFunc

	router    *chi.Mux
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	ready     atomic.Bool
	startTime time.Time
}

// New creates the service and mounts its routes. store may be nil when
// journaling is disabled.
func New(cfg *config.Config, store *sqlite.Store, sessions *session.Manager, broadcaster *stream.Broadcaster, version string) *Service {
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{
		version:     version,
		config:      cfg,
		store:       store,
		sessions:    sessions,
		broadcaster: broadcaster,
		replays:     make(map[string]context.CancelFunc),
		router:      chi.NewRouter(),
		ctx:         ctx,
		cancel:      cancel,
		startTime:   time.Now(),
	}
	svc.setupRoutes()

	if err := svc.RefreshRecordings(); err != nil {
		log.Warn().Err(err).Str("dir", cfg.RecordingsDir).Msg("Recordings directory not readable")
	}

	svc.ready.Store(true)
	return svc
}

// Router returns the mounted router.
func (s *Service) Router() http.Handler {
	return s.router
}

// Start serves HTTP until ctx is cancelled, then drains connections.
func (s *Service) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.WorkerPort)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("version", s.version).Msg("Worker listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// Stop cancels every in-flight replay and the service context.
func (s *Service) Stop() {
	s.replayMu.Lock()
	for id, cancel := range s.replays {
		cancel()
		delete(s.replays, id)
	}
	s.replayMu.Unlock()
	s.cancel()
}

// RefreshRecordings reloads the recordings index from disk.
func (s *Service) RefreshRecordings() error {
	names, err := replay.ListRecordings(s.config.RecordingsDir)
	if err != nil {
		return err
	}
	s.recMu.Lock()
	s.recordings = names
	s.recMu.Unlock()

	log.Debug().Int("count", len(names)).Msg("Refreshed recordings index")
	return nil
}

// Recordings returns a copy of the recordings index.
func (s *Service) Recordings() []string {
	s.recMu.RLock()
	defer s.recMu.RUnlock()
	out := make([]string, len(s.recordings))
	copy(out, s.recordings)
	return out
}

// hasRecording reports whether the index holds the named file.
func (s *Service) hasRecording(name string) bool {
	s.recMu.RLock()
	defer s.recMu.RUnlock()
	for _, n := range s.recordings {
		if n == name {
			return true
		}
	}
	return false
}

// stopReplay cancels the session's in-flight replay, if any.
func (s *Service) stopReplay(sessionID string) {
	s.replayMu.Lock()
	defer s.replayMu.Unlock()
	if cancel, ok := s.replays[sessionID]; ok {
		cancel()
		delete(s.replays, sessionID)
	}
}
