package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/inventory"
	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/domain/review"
	"github.com/xenking/storefront/internal/domain/store"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("driver", cfg.Database.Driver),
	)

	be, err := openBackend(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer be.close()

	// Health check service.
	healthSvc := health.New(lg)
	healthSvc.AddReadiness(cfg.Database.Driver, health.PingCheck(cfg.Database.Driver, be.ping), health.Timeout(5*time.Second))
	healthSvc.AddLiveness("goroutines", health.GoroutineCountCheck(10000))
	healthSvc.AddLiveness("gc_pause", health.GCMaxPauseCheck(time.Second), health.FailureThreshold(5))
	healthSvc.Start(ctx, cfg.HealthInterval)
	healthSvc.SetReady(true)

	api, err := newAPI(be, m)
	if err != nil {
		return err
	}

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           newRouter(zctx.From(ctx), healthSvc, api, m),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// newAPI builds the domain services over be.
func newAPI(be *backend, m httpmiddleware.Telemetry) (*handler.Handler, error) {
	orders, err := order.NewService(be.uow, be.orders, be.customers, m.TracerProvider(), m.MeterProvider())
	if err != nil {
		return nil, errors.Wrap(err, "create order service")
	}
	stores := store.NewService(be.stores)

	return handler.NewHandler(handler.Services{
		Orders:    orders,
		Products:  product.NewService(be.products),
		Inventory: inventory.NewService(be.inventory, be.products, stores),
		Stores:    stores,
		Reviews:   review.NewService(be.reviews),
	}), nil
}

// newRouter mounts the probes and the API on one mux behind the middleware
// chain.
func newRouter(lg *zap.Logger, hs *health.Health, api *handler.Handler, m httpmiddleware.Telemetry) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", hs.LiveEndpoint)
	mux.HandleFunc("GET /readyz", hs.ReadyEndpoint)
	api.Register(mux)

	routeFinder := httpmiddleware.MakeRouteFinder(mux)
	return httpmiddleware.Wrap(mux,
		httpmiddleware.Recovery(),
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Instrument("storefront", routeFinder, m),
		httpmiddleware.LogRequests(routeFinder),
		httpmiddleware.Labeler(routeFinder),
	)
}
