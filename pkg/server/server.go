package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solarmon/solarmon/pkg/common"
	"github.com/solarmon/solarmon/pkg/log"
	"github.com/solarmon/solarmon/pkg/session"
	"github.com/solarmon/solarmon/pkg/types"
)

// Energy is the part of api.Energy the dashboard reads from.
type Energy interface {
	InstallationDashboard(ctx context.Context, installationID int64) *types.InstallationDashboard
	ReadingsHistory(ctx context.Context, installationID int64, start, end time.Time) []types.EnergyReading
	Summaries(ctx context.Context, installationID int64, period types.SummaryPeriod, start, end time.Time) []types.EnergySummary
}

// Alerts is the part of api.Security the dashboard reads from.
type Alerts interface {
	InstallationAlerts(ctx context.Context, installationID int64) []types.TamperEvent
}

// Tokens reports the stored access token. *session.Store implements it.
type Tokens interface {
	Token(ctx context.Context) (string, session.Scope, error)
}

// Server is the dashboard backend. It serves chart-ready series and
// dashboard data for installations, backed by the SolarMon API.
type Server struct {
	energy Energy
	alerts Alerts
	tokens Tokens
	live   *Live

	listenAddr string
	httpServer *http.Server
	serverName string
	location   *time.Location
	normalize  bool
	now        func() time.Time
}

// Configured initializes the Server with dependencies.
// It uses lflag to register command-line flags for configuration.
func Configured(e Energy, a Alerts, t Tokens, l *Live) *Server {
	srv := &Server{
		energy:     e,
		alerts:     a,
		tokens:     t,
		live:       l,
		serverName: "solarmon/" + common.Version(),
		location:   time.UTC,
		now:        time.Now,
	}

	// get the port from PORT when running in cloud run
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	listenAddr := lflag.String("http-listen", ":"+port, "HTTP server listen address")
	tz := lflag.String("chart-timezone", "UTC", "IANA time zone used to bucket chart readings")
	normalize := lflag.Bool("chart-normalize", true, "Scale chart series to the dashboard's period totals")

	lflag.Do(func() {
		srv.listenAddr = *listenAddr
		srv.normalize = *normalize
		loc, err := time.LoadLocation(*tz)
		if err != nil {
			panic(fmt.Sprintf("invalid chart-timezone %q: %v", *tz, err))
		}
		srv.location = loc
	})

	return srv
}

func (s *Server) setupHandler() http.Handler {
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("GET /api/installations/{id}/dashboard", s.handleDashboard)
	apiMux.HandleFunc("GET /api/installations/{id}/chart", s.handleChart)
	apiMux.HandleFunc("GET /api/installations/{id}/alerts", s.handleAlerts)
	apiMux.HandleFunc("GET /api/installations/{id}/live", s.handleLive)
	apiMux.HandleFunc("GET /api/session", s.handleSession)

	mux := http.NewServeMux()
	mux.Handle("/api/", s.requestMiddleware(apiMux))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)
	return s.revisionMiddleware(gziphandler.GzipHandler(s.securityHeadersMiddleware(mux)))
}

// Run starts the HTTP server and blocks until the context is canceled or an error occurs.
// It also handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.listenAddr,
		Handler:      s.setupHandler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// use a channel to capturing server errors
	errChan := make(chan error, 1)
	go func() {
		defer close(errChan)
		log.Ctx(ctx).InfoContext(ctx, "starting server", slog.String("addr", s.listenAddr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Ctx(ctx).InfoContext(ctx, "shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func writeJSONError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(struct {
		Error string `json:"error"`
	}{Error: msg}); err != nil {
		slog.Warn("failed to write error response", slog.Any("error", err))
		panic(http.ErrAbortHandler)
	}
}

// installationID parses the {id} path value. It writes the error response
// itself and returns false when the id is invalid.
func installationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSONError(w, "invalid installation id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// requestMiddleware tags the request context logger with a request id that
// is echoed back to the caller.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		// dashboard data is per-session
		w.Header().Set("Cache-Control", "private, no-store")
		ctx := log.WithAttrs(r.Context(), slog.String("requestId", id), slog.String("path", r.URL.Path))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) revisionMiddleware(next http.Handler) http.Handler {
	if s.serverName == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", s.serverName)
		next.ServeHTTP(w, r)
	})
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
