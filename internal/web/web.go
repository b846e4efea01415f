// Package web serves the upload form, the formatting API and the preview
// page used for proof captures.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"gdformat/internal/config"
	"gdformat/internal/export"
	"gdformat/internal/format"
	appLog "gdformat/internal/log"
	"gdformat/internal/model"
	"gdformat/internal/vocab"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options wires optional collaborators into the server.
type Options struct {
	Debug bool

	// Collector backs /api/format. Nil disables the endpoint.
	Collector export.Collector

	// Exporter, if set, is reported by /api/export.
	Exporter *export.Exporter
}

// Server provides the HTTP UI and API.
type Server struct {
	cfg       *config.Config
	opts      Options
	mux       *http.ServeMux
	tmpl      *template.Template
	formatter *format.Formatter
	loc       *time.Location

	// Last successful result, shown by /preview.
	lastMu sync.RWMutex
	last   *format.Result
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, opts Options) (*Server, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"reason": reasonText,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	loc := resolveLocationOrLocal(cfg.Timezone)
	s := &Server{
		cfg:  cfg,
		opts: opts,
		mux:  http.NewServeMux(),
		tmpl: tmpl,
		formatter: format.New(format.Options{
			NameStyle:    vocab.ParseNameStyle(cfg.NameStyle),
			ServiceRules: cfg.ServiceRules,
			Location:     loc,
		}),
		loc: loc,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="gdformat", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves s on cfg.Listen until ctx is done, then shuts down
// gracefully.
func StartServer(ctx context.Context, cfg *config.Config, s *Server) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen, "debug", s.opts.Debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		appLog.Info("stopping HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /upload", s.handleUpload)
	s.mux.HandleFunc("POST /download", s.handleDownload)
	s.mux.HandleFunc("GET /preview", s.handlePreview)
	s.mux.HandleFunc("GET /api/format", s.handleAPIFormat)
	s.mux.HandleFunc("GET /api/export", s.handleAPIExport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// SetResult stores res as the result shown by /preview.
func (s *Server) SetResult(res format.Result) {
	s.lastMu.Lock()
	s.last = &res
	s.lastMu.Unlock()
}

// lastResult returns the stored result, if any.
func (s *Server) lastResult() (format.Result, bool) {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return format.Result{}, false
	}
	return *s.last, true
}

func reasonText(r model.SkipReason) string {
	switch r {
	case model.SkipMissingStart:
		return "Datum/Uhrzeit fehlt"
	case model.SkipMissingLocation:
		return "Ort fehlt"
	case model.SkipAllDay:
		return "ganztägig, keine Uhrzeit"
	default:
		return string(r)
	}
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
