package httpapi

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/MrEthical07/magicAuth"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// BasePath prefixes every auth route.
const BasePath = "/api/auth"

// ReadinessCheck reports whether a backing dependency is usable.
type ReadinessCheck func(ctx context.Context) error

type options struct {
	logger  *slog.Logger
	metrics http.Handler
	ready   []ReadinessCheck
	timeout time.Duration
}

// Option configures NewRouter.
type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetricsHandler mounts h at GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

// WithReadiness adds a check run by GET /readyz.
func WithReadiness(check ReadinessCheck) Option {
	return func(o *options) {
		if check != nil {
			o.ready = append(o.ready, check)
		}
	}
}

// WithTimeout bounds request handling. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// NewRouter returns the API handler for engine.
func NewRouter(engine *magicAuth.Engine, opts ...Option) http.Handler {
	o := options{
		logger:  slog.Default(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	h := &handler{engine: engine, logger: o.logger}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(authContext)
	if o.timeout > 0 {
		r.Use(chimiddleware.Timeout(o.timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		for _, check := range o.ready {
			if err := check(r.Context()); err != nil {
				o.logger.WarnContext(r.Context(), "readiness check failed", "error", err)
				writeStatus(w, r, http.StatusServiceUnavailable, "Service unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}

	r.Route(BasePath, func(r chi.Router) {
		r.Post("/magic-link", h.issueMagicLink)
		r.Post("/send-magic-link", h.issueMagicLink)
		r.Post("/verify", h.verify)
		r.Post("/verify-token", h.verify)
		r.Get("/me", h.me)
		r.Patch("/me", h.updateMe)
		r.Post("/logout", h.logout)
	})
	return r
}

// authContext copies the request id and client address into the context
// values the engine records on audit events. It runs after RealIP.
func authContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimiddleware.GetReqID(ctx); id != "" {
			ctx = magicAuth.WithRequestID(ctx, id)
		}
		ctx = magicAuth.WithClientIP(ctx, clientIP(r.RemoteAddr))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
