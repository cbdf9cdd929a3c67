package app

import (
	"context"
	"errors"
	"medisched/internal/health"
	"medisched/pkg/config"
	"medisched/pkg/contracts"
	"medisched/pkg/metrics"
	"medisched/pkg/middleware"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Worker is a long-running background task, such as a Kafka consumer. It must
// return once ctx is cancelled.
type Worker func(ctx context.Context) error

// PublicPrefixes bypass authentication. Internal webhooks authenticate with
// a signature instead of a bearer token.
var PublicPrefixes = []string{"/health", "/ready", "/metrics", "/internal/"}

type Application struct {
	cfg              *config.Config
	registry         *prometheus.Registry
	server           *http.Server
	handler          http.Handler
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.KeyRateLimiter
	workers          []Worker
	onShutdown       []func(ctx context.Context) error
	wg               sync.WaitGroup
}

func NewApplication(cfg *config.Config) *Application {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Application{cfg: cfg, registry: registry}
}

// Registry is where services register their own collectors so they are
// exposed on /metrics.
func (a *Application) Registry() prometheus.Registerer {
	return a.registry
}

func (a *Application) AddWorker(w Worker) {
	a.workers = append(a.workers, w)
}

// OnShutdown registers a hook run after the HTTP server stops, in
// registration order.
func (a *Application) OnShutdown(hook func(ctx context.Context) error) {
	a.onShutdown = append(a.onShutdown, hook)
}

func (a *Application) SetApp(handlers ...contracts.Handler) {
	mux := http.NewServeMux()
	healthHandler := a.healthHandler()
	mux.Handle("/health", healthHandler)
	mux.Handle("/ready", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.Handle("/", a.appHandler(handlers))

	a.handler = mux
	a.server = &http.Server{
		Addr:         ":" + a.cfg.Port,
		Handler:      mux,
		ReadTimeout:  a.cfg.ReadTimeout,
		WriteTimeout: a.cfg.WriteTimeout,
		IdleTimeout:  a.cfg.IdleTimeout,
	}
	a.cfg.Log.Info("HTTP server configured", "port", a.cfg.Port)
}

// Handler returns the fully wired HTTP handler. SetApp must be called first.
func (a *Application) Handler() http.Handler {
	return a.handler
}

func (a *Application) healthHandler() http.Handler {
	router := httprouter.New()
	health.NewHandler(a.cfg.Log).
		WithMongo(a.cfg.Client.Mongo).
		WithRedis(a.cfg.Client.Redis).
		RegisterRoutes(router)

	a.cfg.Log.Info("Health endpoints configured with minimal middleware (Recovery + Logging only)")
	return middleware.Chain(router,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
	)
}

func (a *Application) appHandler(handlers []contracts.Handler) http.Handler {
	router := httprouter.New()
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	if a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Idempotency keys stored in Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}
	a.rateLimiter = middleware.NewKeyRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.PrincipalKey,
		a.cfg.Log,
	)
	httpMetrics := metrics.NewHTTPMetrics(a.registry, a.cfg.ServiceName)

	a.cfg.Log.Info("Application endpoints configured with full security middleware stack")
	return middleware.Chain(router,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
		middleware.Metrics(httpMetrics),
		middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize), a.cfg.Log),
		middleware.ContentTypeValidation(a.cfg.Log),
		middleware.Authenticate(a.cfg.JWTSecret, a.cfg.Log, PublicPrefixes...),
		middleware.RateLimit(a.rateLimiter),
		middleware.RequestTimeout(a.cfg.RequestTimeout),
		middleware.Idempotency(a.idempotencyStore, a.cfg.Log),
	)
}

func (a *Application) Run() {
	ctx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	a.startWorkers(ctx)

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		a.cfg.Log.Fatal("HTTP server failed", "error", err)

	case sig := <-shutdown:
		a.cfg.Log.Info("Shutdown signal received", "signal", sig)
		stopWorkers()
		a.gracefulShutdown()
	}
}

func (a *Application) startWorkers(ctx context.Context) {
	for i, w := range a.workers {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := w(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.cfg.Log.Error("Background worker stopped", "worker", i, "error", err)
			}
		}()
	}
}

func (a *Application) gracefulShutdown() {
	a.cfg.Log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed", "error", err)
		if err := a.server.Close(); err != nil {
			a.cfg.Log.Fatal("Could not stop server gracefully", "error", err)
		}
	}

	a.cfg.Log.Info("Stopping background workers...")
	a.wg.Wait()
	if a.idempotencyStore != nil {
		a.idempotencyStore.Stop()
	}
	if a.rateLimiter != nil {
		a.rateLimiter.Stop()
	}
	for _, hook := range a.onShutdown {
		if err := hook(ctx); err != nil {
			a.cfg.Log.Error("Shutdown hook failed", "error", err)
		}
	}
	a.cfg.Log.Info("Background workers stopped")

	a.cfg.GracefulShutdown()
	a.cfg.Log.Info("Server stopped gracefully")
}
