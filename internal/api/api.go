// Package api serves the presubmit gates over HTTP and WebSocket.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/webmproject/presubmit/internal/battery"
	"github.com/webmproject/presubmit/internal/config"
	"github.com/webmproject/presubmit/internal/diff"
	"github.com/webmproject/presubmit/internal/model"
	"github.com/webmproject/presubmit/internal/presubmit"
	"github.com/webmproject/presubmit/internal/tool"
)

// Server is the presubmit HTTP API server.
type Server struct {
	addr   string
	cfg    *config.Config
	log    *slog.Logger
	mux    *http.ServeMux
	server *http.Server

	// tools returns the tool runner used for a request rooted at dir.
	tools func(dir string) tool.Runner

	// AllowRepoDir lets clients name a local checkout in repo_dir. When
	// false the field is ignored and modified files are checked from the
	// diff alone.
	AllowRepoDir bool
}

// New creates a server that runs gates with cfg. cfg must already be validated.
func New(addr string, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr: addr,
		cfg:  cfg,
		log:  logger,
		tools: func(dir string) tool.Runner {
			return &tool.ExecRunner{Dir: dir, Timeout: cfg.Tools.Timeout}
		},
	}
	s.mux = http.NewServeMux()
	s.registerRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/on-upload", s.handleGate(model.GateUpload))
	s.mux.HandleFunc("POST /api/on-commit", s.handleGate(model.GateCommit))
	s.mux.HandleFunc("POST /api/parse", s.handleParse)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log.Info("presubmit API server listening", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Handler returns the HTTP handler for testing.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// runner builds a fresh orchestrator for one request. sink may be nil.
func (s *Server) runner(repoDir string, sink presubmit.Sink) (*presubmit.Runner, error) {
	rule, err := s.cfg.SourceRule()
	if err != nil {
		return nil, err
	}
	skip, err := s.cfg.SkipPatterns()
	if err != nil {
		return nil, err
	}
	return &presubmit.Runner{
		Spec:     s.cfg.Spec(),
		Registry: battery.Builtin(s.cfg.BatteryOptions(s.tools(repoDir))),
		Sources:  rule,
		Skip:     skip,
		WarnOnly: s.cfg.WarnOnly,
		Sink:     sink,
		Logger:   s.log,
	}, nil
}

// repoDir returns the checkout a request may read, or "" when the server
// does not trust client-supplied paths.
func (s *Server) repoDir(requested string) string {
	if requested == "" || s.AllowRepoDir {
		return requested
	}
	s.log.Warn("ignoring repo_dir; start the server with --allow-repo-dir to use it", "repo_dir", requested)
	return ""
}

func patchSource(raw, repoDir string) diff.Source {
	return &diff.PatchSource{Reader: strings.NewReader(raw), RepoDir: repoDir}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.Error("json encode", "err", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v.
func readJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
