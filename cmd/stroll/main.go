package main

import (
	"context"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"stroll/config"
	"stroll/internal/delivery"
	"stroll/internal/delivery/http"
	"stroll/internal/delivery/http/middleware"
	"stroll/internal/delivery/http/router/handler"
	"stroll/internal/domain/service"
	"stroll/internal/infra/directions"
	"stroll/internal/infra/geocache"
	"stroll/internal/infra/limiter"
	logs "stroll/internal/infra/log"
	"stroll/internal/usecase"
	"stroll/internal/usecase/impl"
)

type startServerParams struct {
	fx.In
	fx.Lifecycle

	Deliveries []delivery.Delivery `group:"deliveries"`
}

func main() {
	fx.New(
		injectInfra(),
		injectUsecase(),
		injectDelivery(),
		injectMiddleware(),
		injectHandler(),
		fx.Invoke(
			startServer,
		),
	).Run()
}

func injectInfra() fx.Option {
	return fx.Provide(
		config.New,
		logs.New,
		context.Background,
		geocache.New,
		newPacer,
		newGate,
		newDirectionsProvider,
		newSegmentSource,
	)
}

// newPacer builds the process-wide request pacer from config.
func newPacer(cfg *config.Config) *limiter.Pacer {
	return limiter.NewPacer(cfg.Directions.PaceInterval)
}

// newGate builds the process-wide in-flight gate from config.
func newGate(cfg *config.Config) *limiter.Gate {
	return limiter.NewGate(cfg.Directions.MaxInFlight)
}

func newDirectionsProvider(cfg *config.Config) service.DirectionsProvider {
	return directions.NewOSRMClient(cfg.Directions)
}

// newSegmentSource wraps the raw provider with caching and quota control.
func newSegmentSource(
	cfg *config.Config,
	provider service.DirectionsProvider,
	cache *geocache.Tiered,
	pacer *limiter.Pacer,
	gate *limiter.Gate,
	logger *slog.Logger,
) usecase.SegmentSource {
	return directions.NewGateway(cfg.Directions, provider, cache, pacer, gate, logger)
}

func injectUsecase() fx.Option {
	return fx.Options(
		fx.Provide(
			impl.NewPlannerService,
			impl.NewSessionService,
		),
	)
}

func injectMiddleware() fx.Option {
	return fx.Options(
		fx.Provide(
			middleware.NewErrorMiddleware,
			middleware.NewRequestIDMiddleware,
		),
	)
}

func injectHandler() fx.Option {
	return fx.Options(
		fx.Provide(
			handler.NewPlanHandler,
			handler.NewSessionHandler,
		),
	)
}

func injectDelivery() fx.Option {
	return fx.Options(
		fx.Provide(
			fx.Annotate(
				http.NewServer,
				fx.ResultTags(`group:"deliveries"`),
			),
		),
	)
}

func startServer(ctx context.Context, params startServerParams) {
	for _, delivery := range params.Deliveries {
		go func() {
			if err := delivery.Serve(ctx); err != nil {
				slog.Error("Failed to start server", slog.Any("error", err))
				os.Exit(1)
			}
		}()
	}
}
