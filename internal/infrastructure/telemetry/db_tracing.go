package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shop/backend/internal/infrastructure/config"
)

// DBTracingConfig holds database tracing settings
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // keep query arguments in db.statement
	SlowQueryThresh time.Duration
	DBName          string
	// TracerProvider defaults to the global provider
	TracerProvider trace.TracerProvider
}

// DBTracingConfigFrom maps the application config. Database spans need the
// tracer provider, so they are off whenever tracing is.
func DBTracingConfigFrom(cfg *config.Config) DBTracingConfig {
	name := cfg.Database.DBName
	if cfg.Database.IsSQLite() {
		name = cfg.Database.Path
	}
	return DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          name,
	}
}

// DBTracingPlugin is a gorm.Plugin that installs otelgorm and flags slow
// statements on its spans.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

var _ gorm.Plugin = (*DBTracingPlugin)(nil)

// NewDBTracingPlugin creates the plugin; pass it to gorm.DB.Use
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Name implements gorm.Plugin
func (p *DBTracingPlugin) Name() string {
	return "shop:db_tracing"
}

// Initialize implements gorm.Plugin
func (p *DBTracingPlugin) Initialize(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithoutMetrics()}
	if p.config.DBName != "" {
		opts = append(opts, otelgorm.WithDBName(p.config.DBName))
	}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.config.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.config.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerTiming(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

type gormRegister interface {
	Register(name string, fn func(*gorm.DB)) error
}

// registerTiming stamps the start time before each statement and checks it
// before otelgorm ends the span. The otel:after:* names are otelgorm's hooks.
func (p *DBTracingPlugin) registerTiming(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		callback gormRegister
		hook     func(*gorm.DB)
		name     string
	}{
		{cb.Create().Before("gorm:create"), markStart, "before_create"},
		{cb.Create().After("gorm:create").Before("otel:after:create"), p.checkSlow, "after_create"},

		{cb.Query().Before("gorm:query"), markStart, "before_query"},
		{cb.Query().After("gorm:query").Before("otel:after:select"), p.checkSlow, "after_query"},

		{cb.Update().Before("gorm:update"), markStart, "before_update"},
		{cb.Update().After("gorm:update").Before("otel:after:update"), p.checkSlow, "after_update"},

		{cb.Delete().Before("gorm:delete"), markStart, "before_delete"},
		{cb.Delete().After("gorm:delete").Before("otel:after:delete"), p.checkSlow, "after_delete"},

		{cb.Row().Before("gorm:row"), markStart, "before_row"},
		{cb.Row().After("gorm:row").Before("otel:after:row"), p.checkSlow, "after_row"},

		{cb.Raw().Before("gorm:raw"), markStart, "before_raw"},
		{cb.Raw().After("gorm:raw").Before("otel:after:raw"), p.checkSlow, "after_raw"},
	}
	for _, h := range hooks {
		if err := h.callback.Register("shop_timing:"+h.name, h.hook); err != nil {
			return fmt.Errorf("register %s callback: %w", h.name, err)
		}
	}
	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "db_query_start_time"

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) checkSlow(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	start, ok := ctx.Value(queryStartTimeKey).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query_warning", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}
