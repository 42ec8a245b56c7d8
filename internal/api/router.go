package api

import (
	"account_onboarding/pkg/metrics"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// NewRouter wires every route. A nil limiter leaves creation unthrottled.
func NewRouter(h *APIHandler, limiter *RateLimiter, collector *metrics.MetricsCollector) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if collector != nil {
		r.Use(metricsMiddleware(collector))
	}

	r.Get("/api/health", h.HealthCheckHandler)

	r.Route("/api/accounts", func(r chi.Router) {
		r.With(limiter.Handler).Post("/", h.CreateAccountRequestHandler)
		r.Get("/", h.ListAccountRequestsHandler)
		r.Get("/pending-reviews", h.PendingReviewsHandler)
		r.Get("/status/{status}", h.ListByStatusHandler)
		r.Get("/process/{processInstanceId}", h.GetByProcessInstanceHandler)
		r.Get("/{id}", h.GetAccountRequestHandler)
	})

	return r
}

func metricsMiddleware(collector *metrics.MetricsCollector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			startTime := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = r.Method + " " + rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			collector.ObserveHTTPRequest(route, strconv.Itoa(status), time.Since(startTime))
		})
	}
}

// RateLimiter throttles requests per client address with a token bucket.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	logger   *slog.Logger
}

// NewRateLimiter returns nil when requestsPerSecond is not positive, which
// disables throttling.
func NewRateLimiter(requestsPerSecond float64, burst int, logger *slog.Logger) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		logger:   logger,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, exists := rl.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr
		if host, _, err := net.SplitHostPort(key); err == nil {
			key = host
		}
		if !rl.getLimiter(key).Allow() {
			rl.logger.Warn("Rate limit exceeded",
				slog.String("client", key),
				slog.String("path", r.URL.Path))

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Too many requests","code":"RATE_LIMITED"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}
