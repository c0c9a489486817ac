package server

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/soar/padcontrol/internal/hub"
)

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	ctl         hub.Controller
	frontendFS  fs.FS
	addr        string
	logger      *slog.Logger
	carStats    func() CarStats
	httpServer  *http.Server
}

// CarStats is reported by /api/status when set.
type CarStats struct {
	Instruction string `json:"instruction,omitempty"`
	LatencyMS   int64  `json:"latency_ms"`
	Dispatched  int    `json:"dispatched"`
	Dropped     int    `json:"dropped"`
}

func New(h *hub.Hub, b *hub.Broadcaster, ctl hub.Controller, frontendFS fs.FS, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		hub:         h,
		broadcaster: b,
		ctl:         ctl,
		frontendFS:  frontendFS,
		addr:        addr,
		logger:      logger,
	}
}

// SetCarStats adds the car section to /api/status.
func (s *Server) SetCarStats(fn func() CarStats) {
	s.carStats = fn
}

// Handler builds the route table.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/session", s.handleSession)
	mux.HandleFunc("POST /api/thresholds", s.handleThresholds)

	static, err := newStaticHandler(s.frontendFS)
	if err != nil {
		return nil, err
	}
	mux.Handle("/", static)
	return mux, nil
}

func (s *Server) ListenAndServe() error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	s.logger.Info("HTTP server listening", "addr", s.addr)
	err = s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("Shutting down HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
