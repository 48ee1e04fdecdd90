// Package serve runs the overlay: the browser source stream, chat ingestion
// and the state endpoints.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tableflip.dev/teamviz/pkg/overlay"
	"tableflip.dev/teamviz/pkg/widget"
)

const shutdownTimeout = 5 * time.Second

// Server serves one widget.
type Server struct {
	Widget *widget.Widget
	Hub    *overlay.Hub
	Addr   string
	Logger *zap.Logger

	// MCP is mounted at /mcp when set.
	MCP http.Handler

	OnListening func(net.Addr)
}

// Router returns the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/ws", s.Hub)

	r.Get("/state", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"keys":  s.Widget.Keys(),
			"slots": s.Widget.Snapshot(),
		})
	})

	r.Post("/message", func(w http.ResponseWriter, r *http.Request) {
		var msg widget.Message
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&msg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		// A command runs to completion even if the sender hangs up.
		res, err := s.Widget.Handle(context.WithoutCancel(r.Context()), msg)
		body := map[string]any{
			"status":  res.Status.String(),
			"changed": res.Changed,
			"args":    res.Args,
		}
		if err != nil {
			body["error"] = err.Error()
		}
		writeJSON(w, http.StatusOK, body)
	})

	if s.MCP != nil {
		r.Handle("/mcp", s.MCP)
		r.Handle("/mcp/*", s.MCP)
	}
	return r
}

// Do loads the widget and serves until ctx ends. A pending save is flushed
// before returning.
func (s *Server) Do(ctx context.Context) error {
	if s.Widget == nil || s.Hub == nil {
		return errors.New("serve: widget and hub are required")
	}
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	defer func() {
		if err := s.Widget.Close(context.Background()); err != nil {
			log.Error("pending state not saved", zap.Error(err))
		}
	}()

	if err := s.Widget.Load(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("serve: listen: %w", err)
	}
	if s.OnListening != nil {
		s.OnListening(ln.Addr())
	}
	log.Info("overlay listening", zap.String("addr", ln.Addr().String()))

	httpSrv := &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.Hub.Close()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
