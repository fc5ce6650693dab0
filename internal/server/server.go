// Package server exposes the HTTP surface: the streaming /chat endpoint that
// drives stage-completion runs, the non-streaming /message pass-through, and
// /healthz.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/ShayCichocki/sprintforge/internal/completion"
	"github.com/ShayCichocki/sprintforge/internal/protocol"
	"github.com/ShayCichocki/sprintforge/internal/store"
)

// Orchestrator runs stage-completion state machines. *completion.Runner is
// the production implementation.
type Orchestrator interface {
	Acquire(sessionID string) (release func(), err error)
	Run(ctx context.Context, snap *completion.Snapshot, out completion.Sink) error
}

// Responder answers ordinary (stage < 8) chat exchanges with a single
// envelope.
type Responder interface {
	Respond(ctx context.Context, req *protocol.ChatRequest) (*protocol.ChatResponse, error)
}

// Server wires the handlers to their collaborators.
type Server struct {
	db    *store.DB
	orch  Orchestrator
	chat  Responder
	maint *MaintenanceWatcher

	httpSrv         *http.Server
	shutdownTimeout time.Duration
}

// New builds a Server. maint may be nil; the server then never enters
// maintenance mode.
func New(db *store.DB, orch Orchestrator, chat Responder, maint *MaintenanceWatcher, addr string, shutdownTimeout time.Duration) *Server {
	s := &Server{
		db:              db,
		orch:            orch,
		chat:            chat,
		maint:           maint,
		shutdownTimeout: shutdownTimeout,
	}
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the route table. Exposed for httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/message", s.handleMessage)
	mux.HandleFunc("/healthz", s.handleHealthz)
	return mux
}

// ListenAndServe runs the server until ctx is canceled, then drains with the
// configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		log.Printf("[server] listening on %s", s.httpSrv.Addr)
		errc <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	log.Printf("[server] shutting down")
	return s.httpSrv.Shutdown(sctx)
}

func (s *Server) maintenanceActive() bool {
	return s.maint != nil && s.maint.Active()
}
