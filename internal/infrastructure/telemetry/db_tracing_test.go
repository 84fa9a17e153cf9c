package telemetry_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	gormlogger "gorm.io/gorm/logger"

	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/shop/backend/internal/infrastructure/persistence"
	"github.com/shop/backend/internal/infrastructure/telemetry"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

// openTracedDB opens a sqlite database with the tracing plugin reporting to a span recorder
func openTracedDB(t *testing.T, cfg telemetry.DBTracingConfig) (*persistence.Database, *tracetest.SpanRecorder) {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(t.Context()) })
	cfg.TracerProvider = tp

	log := zaptest.NewLogger(t)
	db, err := persistence.NewDatabaseWithLogger(&config.DatabaseConfig{
		Driver:       config.DriverSQLite,
		Path:         filepath.Join(t.TempDir(), "db.sqlite3"),
		MaxOpenConns: 1,
	}, log, gormlogger.Silent, telemetry.NewDBTracingPlugin(cfg, log))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.DB.AutoMigrate(&widget{}))
	require.NoError(t, db.DB.Create(&widget{Name: "sprocket"}).Error)
	return db, sr
}

func spansNamed(sr *tracetest.SpanRecorder, name string) []sdktrace.ReadOnlySpan {
	var out []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func attrOf(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDBTracingConfigFrom(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: config.DriverPostgres, DBName: "catalogue"},
		Telemetry: config.TelemetryConfig{
			DBTraceEnabled:    true,
			DBSlowQueryThresh: time.Second,
		},
	}

	got := telemetry.DBTracingConfigFrom(cfg)
	assert.False(t, got.Enabled, "database spans need tracing enabled")
	assert.Equal(t, "catalogue", got.DBName)
	assert.Equal(t, time.Second, got.SlowQueryThresh)

	cfg.Telemetry.Enabled = true
	assert.True(t, telemetry.DBTracingConfigFrom(cfg).Enabled)

	cfg.Database = config.DatabaseConfig{Driver: config.DriverSQLite, Path: "db.sqlite3"}
	assert.Equal(t, "db.sqlite3", telemetry.DBTracingConfigFrom(cfg).DBName)
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	db, sr := openTracedDB(t, telemetry.DBTracingConfig{Enabled: false})

	var ws []widget
	require.NoError(t, db.DB.Find(&ws).Error)
	assert.Empty(t, sr.Ended())
	assert.NotContains(t, db.DB.Config.Plugins, "otelgorm")
}

func TestDBTracingPlugin_QuerySpans(t *testing.T) {
	db, sr := openTracedDB(t, telemetry.DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour})

	var ws []widget
	require.NoError(t, db.DB.Where("name = ?", "sprocket").Find(&ws).Error)
	require.Len(t, ws, 1)

	queries := spansNamed(sr, "gorm.Query")
	require.Len(t, queries, 1)
	span := queries[0]

	stmt, ok := attrOf(span, "db.statement")
	require.True(t, ok)
	assert.Contains(t, stmt.AsString(), "widgets")
	assert.NotContains(t, stmt.AsString(), "sprocket", "query arguments are masked")

	table, ok := attrOf(span, "db.sql.table")
	require.True(t, ok)
	assert.Equal(t, "widgets", table.AsString())

	_, slow := attrOf(span, "db.slow_query")
	assert.False(t, slow)
	assert.NotEmpty(t, spansNamed(sr, "gorm.Create"))
}

func TestDBTracingPlugin_FullSQL(t *testing.T) {
	db, sr := openTracedDB(t, telemetry.DBTracingConfig{Enabled: true, LogFullSQL: true})

	var ws []widget
	require.NoError(t, db.DB.Where("name = ?", "sprocket").Find(&ws).Error)

	queries := spansNamed(sr, "gorm.Query")
	require.Len(t, queries, 1)
	stmt, _ := attrOf(queries[0], "db.statement")
	assert.Contains(t, stmt.AsString(), "sprocket")
}

func TestDBTracingPlugin_SlowQuery(t *testing.T) {
	db, sr := openTracedDB(t, telemetry.DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond})

	var ws []widget
	require.NoError(t, db.DB.Find(&ws).Error)

	queries := spansNamed(sr, "gorm.Query")
	require.Len(t, queries, 1)

	slow, ok := attrOf(queries[0], "db.slow_query")
	require.True(t, ok, "attribute set before the span ends")
	assert.True(t, slow.AsBool())

	var events []string
	for _, e := range queries[0].Events() {
		events = append(events, e.Name)
	}
	assert.Contains(t, events, "slow_query_warning")
}

func TestDBTracingPlugin_ErrorStatus(t *testing.T) {
	db, sr := openTracedDB(t, telemetry.DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour})

	err := db.DB.Table("no_such_table").Find(&[]widget{}).Error
	require.Error(t, err)

	queries := spansNamed(sr, "gorm.Query")
	require.Len(t, queries, 1)
	assert.Equal(t, codes.Error, queries[0].Status().Code)
}
