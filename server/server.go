// Package server serves the portfolio dashboard as a web page.
//
// The page is server rendered: forms post to the handlers, which redirect
// back to the page with a transient banner. A websocket pushes the
// re-rendered dashboard after every change, including price refreshes.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/etnz/coinfolio"
	"github.com/etnz/coinfolio/metrics"
	"github.com/etnz/coinfolio/renderer"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Server is the web front end of a Tracker.
type Server struct {
	tracker   *coinfolio.Tracker
	weighting coinfolio.ChangeWeighting
	log       logrus.FieldLogger
	now       func() time.Time
	hub       *Hub
	refresher *coinfolio.Refresher
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger, defaults to the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option { return func(s *Server) { s.log = log } }

// WithWeighting sets how the total 24h change is computed.
func WithWeighting(w coinfolio.ChangeWeighting) Option { return func(s *Server) { s.weighting = w } }

// WithClock sets the function used to date the downloaded files.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.now = now } }

// WithRefresher sets the refresher used to price new holdings right after
// they are added or restored. Without one they wait for the next refresh.
func WithRefresher(r *coinfolio.Refresher) Option { return func(s *Server) { s.refresher = r } }

// New creates a server for 't'.
func New(t *coinfolio.Tracker, opts ...Option) *Server {
	s := &Server{
		tracker: t,
		log:     logrus.StandardLogger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithField("component", "server")
	s.hub = NewHub(s.log)
	return s
}

// Handler returns the HTTP router of the page.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"coinfolio"}`))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/ws", s.hub.HandleWS)

	r.Get("/", s.page)
	r.Post("/holdings", s.addHolding)
	r.Post("/holdings/{id}/remove", s.removeHolding)
	r.Post("/portfolio/clear", s.clearPortfolio)
	r.Post("/alerts", s.addAlert)
	r.Post("/alerts/{id}/remove", s.removeAlert)
	r.Post("/settings/darkmode", s.toggleDarkMode)
	r.Get("/export", s.export)
	r.Get("/backup", s.backup)
	r.Post("/restore", s.restore)
	r.Get("/charts", s.charts)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", s.apiDashboard)
	})
	return r
}

// Run pushes the dashboard to the websocket clients after every tracker
// change, until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	unsubscribe := s.tracker.Subscribe(s.push)
	defer unsubscribe()
	s.hub.Run(ctx)
	return nil
}

// ListenAndServe serves the page on 'addr' until ctx is done, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(ctx) })
	g.Go(func() error {
		s.log.WithField("addr", addr).Info("serving dashboard")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// push broadcasts the dashboard fragment after tracker event 'e'.
func (s *Server) push(e coinfolio.Event) {
	if s.hub.Clients() == 0 {
		return
	}
	fragment, err := s.fragment()
	if err != nil {
		s.log.WithError(err).Error("cannot render dashboard")
		return
	}
	s.hub.Broadcast(Message{
		Type:     "dashboard",
		Event:    e.Kind.String(),
		HTML:     fragment,
		DarkMode: s.tracker.DarkMode(),
	})
}

// dashboard returns the view model of the current session.
func (s *Server) dashboard() *renderer.Dashboard {
	return renderer.NewDashboard(s.tracker.View(s.weighting))
}

// fragment renders the dashboard to HTML.
func (s *Server) fragment() (string, error) {
	return renderer.HTML(renderer.RenderDashboard(s.dashboard(), renderer.Web))
}

// logRequests logs every request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
			"request":  middleware.GetReqID(r.Context()),
		}).Debug("request")
	})
}
