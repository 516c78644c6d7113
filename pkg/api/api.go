// Package api serves a read-only HTTP view of a workspace for editor
// integrations: the project registry, manifests, the inferred project graph,
// version compatibility checks and a dry run of the shared environment sync.
//
// Nothing served here writes to the workspace or runs the package manager.
package api

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/monopy/pkg/manifest"
	"github.com/matzehuels/monopy/pkg/version"
	"github.com/matzehuels/monopy/pkg/workspace"
)

// DefaultShutdownTimeout bounds how long Serve waits for in-flight requests
// after its context is cancelled.
const DefaultShutdownTimeout = 5 * time.Second

// Options configures a Server.
type Options struct {
	Workspace *workspace.Workspace

	// Store caches parsed manifests between requests. Nil reads from disk
	// on every request.
	Store *manifest.Store

	Checker version.Checker
	Logger  *log.Logger
}

// Server is the inspector's HTTP handler.
type Server struct {
	ws      *workspace.Workspace
	store   *manifest.Store
	checker version.Checker
	logger  *log.Logger
	router  chi.Router
}

// New builds the inspector routes for opts.Workspace.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		ws:      opts.Workspace,
		store:   opts.Store,
		checker: opts.Checker,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/projects", s.handleProjects)
	r.Route("/projects/{name}", func(r chi.Router) {
		r.Get("/", s.handleProject)
		r.Get("/manifest", s.handleManifest)
	})
	r.Get("/graph", s.handleGraph)
	r.Get("/graph.dot", s.handleGraphDOT)
	r.Get("/compat", s.handleCompat)
	r.Get("/plan", s.handlePlan)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{Code: "NOT_FOUND", Message: "no route for " + r.URL.Path}})
	})

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("inspector listening", "addr", ln.Addr().String(), "workspace", s.ws.Root)
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	s.logger.Info("inspector shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
