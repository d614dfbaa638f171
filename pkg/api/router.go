package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kbase/idmapping/internal/logger"
	"github.com/kbase/idmapping/internal/telemetry"
	"github.com/kbase/idmapping/pkg/api/handlers"
	mw "github.com/kbase/idmapping/pkg/api/middleware"
	"github.com/kbase/idmapping/pkg/mapper"
	"github.com/kbase/idmapping/pkg/metrics"
	"github.com/kbase/idmapping/pkg/storage"
)

// NewRouter creates and configures the chi router with all middleware
// and routes.
//
// Middleware order matters: the real client IP must be resolved before
// the call ID middleware captures it, and the call ID must exist before
// the request logger and any error response.
func NewRouter(cfg Config, m *mapper.Mapper, store storage.Store) http.Handler {
	cfg.applyDefaults()
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if cfg.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(mw.CallID)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteHTTPError(w, r, http.StatusNotFound,
			fmt.Sprintf("Not Found: %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteHTTPError(w, r, http.StatusMethodNotAllowed,
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path))
	})

	rootHandler := handlers.NewRootHandler(cfg.Version, cfg.GitCommit)
	nsHandler := handlers.NewNamespaceHandler(m)
	mapHandler := handlers.NewMappingHandler(m)
	healthHandler := handlers.NewHealthHandler(store)

	r.Get("/", rootHandler.Get)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", healthHandler.Liveness)
		r.Get("/ready", healthHandler.Readiness)
	})

	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/namespace", func(r chi.Router) {
			r.Get("/", nsHandler.List)
			r.Put("/{namespace}", nsHandler.Create)
			r.Post("/{namespace}", nsHandler.Create)
			r.Get("/{namespace}", nsHandler.Get)
			r.Put("/{namespace}/set", nsHandler.SetPubliclyMappable)
			r.Put("/{namespace}/user/{authsource}/{user}", nsHandler.AddUser)
			r.Delete("/{namespace}/user/{authsource}/{user}", nsHandler.RemoveUser)
		})
		r.Route("/mapping", func(r chi.Router) {
			r.Get("/{namespace}", mapHandler.Get)
			r.Put("/{namespace}/{other_namespace}", mapHandler.Create)
			r.Post("/{namespace}/{other_namespace}", mapHandler.Create)
			r.Delete("/{namespace}/{other_namespace}", mapHandler.Delete)
		})
	})

	return r
}

// requestLogger logs every request, ties it to its call ID, records the
// HTTP metrics, and wraps the request in a trace span.
func requestLogger(next http.Handler) http.Handler {
	httpMetrics := metrics.NewHTTPMetrics()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		callID := mw.GetCallID(r.Context())

		ctx, span := telemetry.StartHTTPSpan(r.Context(), r.Method, r.URL.Path,
			telemetry.CallID(callID),
		)
		defer span.End()
		r = r.WithContext(ctx)

		logger.DebugCtx(ctx, "request started",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.UserAgent(r.UserAgent()),
		)

		done := httpMetrics.RequestStarted()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		done()

		duration := time.Since(start)
		span.SetAttributes(telemetry.HTTPStatus(ww.Status()))
		httpMetrics.ObserveRequest(r.Method, routePattern(r), strconv.Itoa(ww.Status()), duration)

		logger.InfoCtx(ctx, "request completed",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(ww.Status()),
			logger.DurationMs(logger.Duration(start)),
		)
	})
}

// routePattern returns the matched chi route pattern, falling back to
// the raw path when no route matched, so metric labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// recoverer converts a handler panic into a logged 500 with the
// standard error envelope instead of a dropped connection.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorCtx(r.Context(), "panic in request handler",
					logger.Path(r.URL.Path),
					slog.String("panic", fmt.Sprintf("%v", rec)),
					slog.String("stack", string(debug.Stack())),
				)
				handlers.WriteHTTPError(w, r, http.StatusInternalServerError,
					"Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
