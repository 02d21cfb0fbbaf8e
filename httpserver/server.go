// Package httpserver republishes fused feeds as Atom and RSS documents over HTTP.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/feedfuser/feedfuser/model"
	"github.com/feedfuser/feedfuser/republish"
)

// FeedFuser runs a fusion cycle for one feed and returns the merged result.
type FeedFuser interface {
	FuseFeed(ctx context.Context, feedID string) (*model.FusedFeed, error)
}

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 5 * time.Second
)

// Config carries the fuser and listener settings for the HTTP surface.
type Config struct {
	// Addr is the listen address, defaulting to ":8080".
	Addr            string
	Fuser           FeedFuser
	ShutdownTimeout time.Duration
}

// Server serves fused feeds at /feeds/{feedID} (Atom) and
// /feeds/{feedID}/rss (RSS 2.0). Feeds are fetched per request; the
// cross-request state lives behind the fuser.
type Server struct {
	addr            string
	fuser           FeedFuser
	shutdownTimeout time.Duration
	router          chi.Router
}

// NewServer checks the config, fills in listener defaults, and builds the
// routing tree.
func NewServer(config Config) (*Server, error) {
	if config.Fuser == nil {
		return nil, model.NewFeedError(model.ErrorTypeConfiguration, "Fuser is required").
			WithOperation("create_server").
			WithComponent("http_server")
	}

	s := &Server{
		addr:            config.Addr,
		fuser:           config.Fuser,
		shutdownTimeout: config.ShutdownTimeout,
	}
	if s.addr == "" {
		s.addr = defaultAddr
	}
	if s.shutdownTimeout <= 0 {
		s.shutdownTimeout = defaultShutdownTimeout
	}
	s.router = s.buildRouter()

	return s, nil
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Get("/feeds/{feedID}", s.handleAtomFeed)
	r.Get("/feeds/{feedID}/rss", s.handleRSSFeed)

	return r
}

// Handler returns the server's routing tree.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "Are we still in Kansas, Toto?")
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		model.WarnLog("failed to write health response", err)
	}
}

func (s *Server) handleAtomFeed(w http.ResponseWriter, r *http.Request) {
	s.serveFeed(w, r, republish.Atom, "application/atom+xml; charset=utf-8")
}

func (s *Server) handleRSSFeed(w http.ResponseWriter, r *http.Request) {
	s.serveFeed(w, r, republish.RSS, "application/rss+xml; charset=utf-8")
}

func (s *Server) serveFeed(w http.ResponseWriter, r *http.Request, render func(*republish.FeedDoc) (string, error), contentType string) {
	feedID := chi.URLParam(r, "feedID")

	feed, err := s.fuser.FuseFeed(r.Context(), feedID)
	if err != nil {
		writeError(w, err)
		return
	}

	doc := republish.NewFeedDoc(feed, requestURL(r), requestRoot(r))
	body, err := render(doc)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if _, err := w.Write([]byte(body)); err != nil {
		model.WarnLog("failed to write feed response", err)
	}
}

// writeError maps fusion errors to HTTP statuses: a missing spec is the
// client's 404, an unparseable one their 400, everything else a 500.
func writeError(w http.ResponseWriter, err error) {
	var feedErr *model.FeedError
	if errors.As(err, &feedErr) {
		model.LogFeedError(feedErr)
	} else {
		model.ErrorLog("fused feed request failed", err)
	}

	switch {
	case model.IsErrorType(err, model.ErrorTypeSpecNotFound):
		http.Error(w, "fused feed not found", http.StatusNotFound)
	case model.IsErrorType(err, model.ErrorTypeSpecInvalid):
		http.Error(w, "fused feed spec is invalid", http.StatusBadRequest)
	default:
		http.Error(w, "failed to build fused feed", http.StatusInternalServerError)
	}
}

// requestURL reconstructs the full URL the client requested, which becomes
// the feed's self link.
func requestURL(r *http.Request) string {
	return schemeFor(r) + "://" + r.Host + r.URL.RequestURI()
}

// requestRoot reconstructs the root URL of the service, the alternate link
// for feeds without a single upstream site.
func requestRoot(r *http.Request) string {
	return schemeFor(r) + "://" + r.Host + "/"
}

func schemeFor(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Run starts the HTTP server and blocks until the context is canceled or
// the listener fails.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return model.NewFeedErrorWithCause(model.ErrorTypeTransport, fmt.Sprintf("http server failed on %s", s.addr), err).
			WithOperation("run_server").
			WithComponent("http_server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return model.NewFeedErrorWithCause(model.ErrorTypeTransport, "http server shutdown failed", err).
			WithOperation("shutdown_server").
			WithComponent("http_server")
	}

	return nil
}
