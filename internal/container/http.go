package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/samber/do"
	"github.com/serroba/speedbump/internal/handlers"
	"github.com/serroba/speedbump/internal/health"
	"github.com/serroba/speedbump/internal/middleware"
	"github.com/serroba/speedbump/internal/ratelimit"
	"go.uber.org/zap"
)

// HTTPPackage provides the *chi.Mux router and the huma.API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		limiter := do.MustInvoke[*ratelimit.FixedWindowLimiter](i)
		publish := do.MustInvoke[DecisionPublish](i)

		api := humachi.New(router, huma.DefaultConfig("Speedbump", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))
		api.UseMiddleware(middleware.RateLimiter(api, limiter, publish, logger))

		handlers.RegisterRoutes(api, handlers.NewLimitsHandler(limiter, publish, logger))
		health.RegisterRoutes(api, health.NewHandler(healthCheckers(i, opts)))

		return api, nil
	})
}

func healthCheckers(i *do.Injector, opts *Options) map[string]health.Checker {
	checkers := make(map[string]health.Checker)

	if opts.UsesRedis() {
		checkers["redis"] = health.NewRedisChecker(do.MustInvoke[*Redis](i).Client)
	}

	if opts.Store == StorePostgres || opts.Store == StoreCached {
		checkers["postgres"] = health.NewPostgresChecker(do.MustInvoke[*Postgres](i).Pool)
	}

	return checkers
}
