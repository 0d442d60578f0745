/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package httpapi exposes the editor as a local JSON API for a browser front-end.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tourdeck/internal/auth"
	"tourdeck/internal/editor"
	"tourdeck/internal/export"
	applog "tourdeck/internal/log"
	"tourdeck/internal/storage"
)

const (
	sessionCookie       = "tourdeck_session"
	defaultMaxBodyBytes = 16 << 20
)

// Config configures the server.
type Config struct {
	// PasswordHash is the bcrypt hash guarding /api; empty disables the gate.
	PasswordHash string
	CORSOrigins  []string
	// PDF holds the defaults for /api/export/pdf.
	PDF          export.PDFOptions
	MaxBodyBytes int64
}

// Server serves one editor. Editor access is serialized by mu.
type Server struct {
	mu sync.Mutex
	ed *editor.Editor

	cfg     Config
	metrics *Metrics
	now     func() time.Time
	log     *slog.Logger

	sessMu   sync.Mutex
	sessions map[string]storage.Store
}

// New returns a server for ed.
func New(ed *editor.Editor, cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Server{
		ed:       ed,
		cfg:      cfg,
		metrics:  NewMetrics("tourdeck"),
		now:      time.Now,
		log:      applog.WithComponent("httpapi"),
		sessions: map[string]storage.Store{},
	}
}

// Metrics returns the server's metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.log, s.metrics))
	r.Use(chimiddleware.Recoverer)
	r.Use(corsHandler(s.cfg.CORSOrigins))
	r.Use(maxBody(s.cfg.MaxBodyBytes))

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)

		r.Group(func(r chi.Router) {
			r.Use(s.requireLogin)

			r.Get("/document", s.getDocument)
			r.Patch("/document", s.patchDocument)
			r.Post("/document/reset", s.resetDocument)

			r.Get("/pages", s.listPages)
			r.Post("/pages", s.addPage)
			r.Post("/pages/move", s.movePage)
			r.Post("/pages/import", s.importPage)
			r.Get("/pages/{index}", s.getPage)
			r.Patch("/pages/{index}", s.renamePage)
			r.Delete("/pages/{index}", s.removePage)
			r.Post("/pages/{index}/duplicate", s.duplicatePage)
			r.Patch("/pages/{index}/data", s.updatePageData)
			r.Get("/pages/{index}/export", s.exportPage)

			r.Get("/blur/{pageID}", s.listBlur)
			r.Post("/blur/{pageID}", s.addBlur)
			r.Delete("/blur/{pageID}", s.clearBlur)
			r.Delete("/blur/{pageID}/{regionID}", s.removeBlur)
			r.Post("/blur/{pageID}/mode", s.toggleBlurMode)

			r.Get("/export", s.exportSite)
			r.Post("/import", s.importSite)
			r.Get("/export/pdf", s.exportPDF)

			r.Post("/undo", s.undo)
			r.Post("/redo", s.redo)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("addr", addr), slog.Bool("gate", s.cfg.PasswordHash != ""))
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped")
	return nil
}

// gateFor returns the gate of the request's session, or nil.
func (s *Server) gateFor(r *http.Request) *auth.Gate {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil
	}
	s.sessMu.Lock()
	sess, ok := s.sessions[c.Value]
	s.sessMu.Unlock()
	if !ok {
		return nil
	}
	return auth.NewGate(sess, s.cfg.PasswordHash)
}
