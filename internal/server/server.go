// Package server exposes a running demo over HTTP: the annotated frames as
// MJPEG, per-frame results over a websocket and the attendance so far.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"gocv.io/x/gocv"

	"github.com/ayusman/facecam/internal/attendance"
	"github.com/ayusman/facecam/internal/demo"
	"github.com/ayusman/facecam/internal/log"
)

// AttendanceSource lists the records marked so far.
type AttendanceSource interface {
	Records() []attendance.Record
}

// Config holds the server configuration.
type Config struct {
	Addr string

	// Ledger serves /api/attendance while a recognition demo runs.
	Ledger AttendanceSource

	// AttendanceFile is read instead when Ledger is nil.
	AttendanceFile string
}

// Server serves the HTTP API. It also implements demo.FrameSink.
type Server struct {
	config     Config
	router     *chi.Mux
	httpServer *http.Server
	frames     *FrameBuffer
	hub        *Hub
	start      time.Time
}

func New(config Config) *Server {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	s := &Server{
		config: config,
		router: r,
		frames: NewFrameBuffer(),
		hub:    NewHub(),
		start:  time.Now(),
	}
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:        config.Addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/attendance", s.handleAttendance)
		r.Method(http.MethodGet, "/stream", NewStreamHandler(s.frames))
		r.Method(http.MethodGet, "/events", s.hub)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Publish stores the annotated frame for the stream and broadcasts ev.
func (s *Server) Publish(img gocv.Mat, ev demo.Event) {
	if err := s.frames.SetMat(img); err != nil {
		log.Debug("Frame not published", "seq", ev.Seq, "error", err)
	}

	msg, err := json.Marshal(ev)
	if err != nil {
		log.Warn("Encode event", "error", err)
		return
	}
	s.hub.Broadcast(msg)
}

var _ demo.FrameSink = (*Server)(nil)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uptime":  time.Since(s.start).String(),
		"clients": s.hub.Count(),
	})
}

func (s *Server) handleAttendance(w http.ResponseWriter, r *http.Request) {
	if s.config.Ledger != nil {
		writeJSON(w, http.StatusOK, nonNil(s.config.Ledger.Records()))
		return
	}
	if s.config.AttendanceFile == "" {
		writeJSON(w, http.StatusOK, []attendance.Record{})
		return
	}

	records, err := attendance.Load(s.config.AttendanceFile)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		writeJSON(w, http.StatusOK, []attendance.Record{})
	case err != nil:
		log.Error("Read attendance", "file", s.config.AttendanceFile, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, nonNil(records))
	}
}

func nonNil(records []attendance.Record) []attendance.Record {
	if records == nil {
		return []attendance.Record{}
	}
	return records
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Write response", "error", err)
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	log.Info("Starting web server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", s.httpServer.Addr, err)
	}
	return nil
}

// Shutdown closes websocket clients and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Shutting down web server")
	s.hub.CloseAll()
	s.frames.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
