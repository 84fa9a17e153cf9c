package router

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/shop/backend/internal/infrastructure/logger"
	"github.com/shop/backend/internal/interfaces/http/handler"
	"github.com/shop/backend/internal/interfaces/http/middleware"
)

// Services are the read models the API serves from
type Services struct {
	Catalogue handler.CatalogueReader
	Countries handler.CountryLister
	DB        handler.Pinger
}

type engineOptions struct {
	tracerProvider trace.TracerProvider
}

// EngineOption configures NewEngine
type EngineOption func(*engineOptions)

// WithTracerProvider sends request spans to tp instead of the global provider
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(o *engineOptions) {
		o.tracerProvider = tp
	}
}

// NewEngine assembles the gin engine: middleware, /health, the /api routes
// and, for local storage, the media directory.
func NewEngine(cfg *config.Config, svc Services, log *zap.Logger, opts ...EngineOption) (*gin.Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("setting trusted proxies: %w", err)
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.AllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.AllowOrigins
	}
	// The server span wraps everything but panic recovery, so the request
	// logger and the handlers see it on the request context.
	chain := []gin.HandlerFunc{logger.Recovery(log)}
	if cfg.Telemetry.Enabled {
		chain = append(chain, middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			Enabled:        true,
			TracerProvider: o.tracerProvider,
		}))
	}
	chain = append(chain, logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		chain = append(chain, middleware.TracingAttributeInjector(), middleware.SpanErrorMarker())
	}
	chain = append(chain,
		middleware.CORSWithConfig(cors),
		middleware.SecureWithConfig(middleware.DefaultSecurityConfig()),
		middleware.ReadOnly(),
	)
	engine.Use(chain...)

	system := handler.NewSystemHandler(cfg.App.Name, svc.DB)
	engine.GET("/health", system.Health)

	catalogue := handler.NewCatalogHandler(svc.Catalogue)
	countries := handler.NewCountryHandler(svc.Countries)

	products := NewDomainGroup("products", "/products").
		GET("", catalogue.ListProducts).
		GET("/:id", catalogue.GetProduct)
	categories := NewDomainGroup("categories", "/categories").
		GET("", catalogue.ListCategories)
	partners := NewDomainGroup("partners", "/partners").
		GET("", catalogue.ListPartners)
	countryGroup := NewDomainGroup("countries", "/countries").
		GET("", countries.ListCountries)

	NewRouter(engine).
		Register(products).
		Register(categories).
		Register(partners).
		Register(countryGroup).
		Setup()

	// A full media URL means another host serves the files
	if cfg.Storage.Backend == config.StorageLocal && strings.HasPrefix(cfg.Storage.MediaURL, "/") {
		engine.Static(cfg.Storage.MediaURL, cfg.Storage.MediaRoot)
	}
	return engine, nil
}
