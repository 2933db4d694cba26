// Package web provides an HTTP status server for the receiver daemon.
package web

import (
	"context"
	"encoding/json"
	"net"
	"net/http"

	"github.com/womat/debug"

	"github.com/sweeney/dcf77-receiver/internal/dcf77"
	"github.com/sweeney/dcf77-receiver/internal/status"
)

// Diagnostics gives read-and-clear access to the decoder fault latch.
type Diagnostics interface {
	TakeLastFault() (dcf77.Fault, bool)
	TakeFaultCount() uint16
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	diag       Diagnostics
}

// New creates a Server that reads state from the given tracker. metrics
// is mounted on /metrics when not nil.
func New(addr string, tracker *status.Tracker, diag Diagnostics, metrics http.Handler) *Server {
	s := &Server{tracker: tracker, diag: diag}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	mux.HandleFunc("POST /diag/error", s.handleLastFault)
	mux.HandleFunc("POST /diag/count", s.handleFaultCount)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	return s
}

// Handler returns the request router. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		debug.ErrorLog.Printf("render status page: %v", err)
	}
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// FaultJSON is the response of POST /diag/error.
type FaultJSON struct {
	Fault  string `json:"fault"`
	State  string `json:"state,omitempty"`
	Second *int   `json:"second,omitempty"`
}

// CountJSON is the response of POST /diag/count.
type CountJSON struct {
	Count uint16 `json:"count"`
}

// handleLastFault returns the latched fault and clears it.
func (s *Server) handleLastFault(w http.ResponseWriter, r *http.Request) {
	resp := FaultJSON{Fault: dcf77.NoFault.String()}
	if f, ok := s.diag.TakeLastFault(); ok {
		sec := f.Second
		resp = FaultJSON{Fault: f.Kind.String(), State: f.State.String(), Second: &sec}
	}
	writeJSON(w, resp)
}

// handleFaultCount returns the fault counter and resets it.
func (s *Server) handleFaultCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, CountJSON{Count: s.diag.TakeFaultCount()})
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
