// sitecheck
// (C) 2024, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

// Package sitesim serves the static site in process with the headers the
// nginx server block sets. It stands in for the container when no container
// runtime is available.
package sitesim

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/caas-team/sitecheck/internal/logger"
)

var (
	// ErrAlreadyRunning is returned when Start is called on a running server
	ErrAlreadyRunning = errors.New("site server already running")
	// ErrNotRunning is returned when Shutdown is called on a stopped server
	ErrNotRunning = errors.New("site server not running")
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	// ServerHeader identifies the simulated web server
	ServerHeader = "nginx"
	// cacheMaxAge matches "expires 1y"
	cacheMaxAge = 365 * 24 * time.Hour
)

// Server serves a static document root. It can be started and stopped repeatedly.
type Server struct {
	mu      sync.Mutex
	handler http.Handler
	server  *http.Server
	ln      net.Listener
	done    chan error
}

// New creates a server for the document root site
func New(ctx context.Context, site fs.FS) *Server {
	return &Server{handler: Handler(ctx, site)}
}

// Handler returns the router serving site
func Handler(ctx context.Context, site fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.Middleware(ctx))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(middleware.Compress(5, "text/html", "text/css", "text/plain", "application/javascript"))
	r.Method(http.MethodGet, "/*", staticHandler(site))
	r.Method(http.MethodHead, "/*", staticHandler(site))
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusMethodNotAllowed)
		_, _ = w.Write(errorPage(http.StatusMethodNotAllowed))
	})
	return r
}

// Start listens on addr and serves in the background
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logger.FromContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrAlreadyRunning
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		log.ErrorContext(ctx, "Failed to listen", "addr", addr, "error", err)
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: readHeaderTimeout}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		log.Info("Serving static site", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to serve static site", "error", err)
			done <- err
		}
	}()

	s.server, s.ln, s.done = srv, ln, done
	return nil
}

// Addr returns the listening address, empty when the server is stopped
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Running reports whether the server is listening
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

// Shutdown gracefully stops the server and releases the listener
func (s *Server) Shutdown(ctx context.Context) error {
	log := logger.FromContext(ctx)
	s.mu.Lock()
	srv, done := s.server, s.done
	s.server, s.ln, s.done = nil, nil, nil
	s.mu.Unlock()
	if srv == nil {
		return ErrNotRunning
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shutdown site server", "error", err)
		return fmt.Errorf("failed shutting down site server: %w", err)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("site server stopped with error: %w", err)
	}
	return nil
}

// Run serves on addr until ctx is done
func (s *Server) Run(ctx context.Context, addr string) error {
	if err := s.Start(ctx, addr); err != nil {
		return err
	}
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return s.Shutdown(ctx)
	case err := <-done:
		s.mu.Lock()
		s.server, s.ln, s.done = nil, nil, nil
		s.mu.Unlock()
		return err
	}
}

// securityHeaders sets the headers of the nginx server block on every response
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Server", ServerHeader)
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-XSS-Protection", "1; mode=block")
		next.ServeHTTP(w, r)
	})
}

// staticHandler serves files of site. Unlike http.FileServer it does not
// redirect /index.html to /, which nginx does not do either.
func staticHandler(site fs.FS) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" || strings.HasSuffix(r.URL.Path, "/") {
			name = path.Join(name, "index.html")
		}

		b, err := fs.ReadFile(site, name)
		if err != nil {
			log.Debug("Static file not found", "path", r.URL.Path)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusNotFound)
			if r.Method != http.MethodHead {
				_, _ = w.Write(errorPage(http.StatusNotFound))
			}
			return
		}

		if isAsset(name) {
			w.Header().Set("Cache-Control", "public, immutable")
			w.Header().Set("Expires", time.Now().Add(cacheMaxAge).UTC().Format(http.TimeFormat))
		}
		http.ServeContent(w, r, name, time.Time{}, bytes.NewReader(b))
	}
}

// isAsset matches the location block carrying the cache headers
func isAsset(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".gif", ".ico", ".svg", ".woff", ".woff2":
		return true
	}
	return false
}

func errorPage(code int) []byte {
	text := fmt.Sprintf("%d %s", code, http.StatusText(code))
	return []byte("<html>\r\n<head><title>" + text + "</title></head>\r\n<body>\r\n<center><h1>" + text +
		"</h1></center>\r\n<hr><center>" + ServerHeader + "</center>\r\n</body>\r\n</html>\r\n")
}
