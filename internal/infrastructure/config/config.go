package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Storage backends
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Default fixture sources: the sandbox book lists published with django-oscar
var DefaultFixtureURLs = []string{
	"https://raw.githubusercontent.com/django-oscar/django-oscar/master/sandbox/fixtures/books.computers-in-fiction.csv",
	"https://raw.githubusercontent.com/django-oscar/django-oscar/master/sandbox/fixtures/books.essential.csv",
	"https://raw.githubusercontent.com/django-oscar/django-oscar/master/sandbox/fixtures/books.hacking.csv",
}

// DefaultImageArchiveURL is the archive of product images matching the default fixtures
const DefaultImageArchiveURL = "https://github.com/django-oscar/django-oscar/raw/master/sandbox/fixtures/images.tar.gz"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Log       LogConfig
	Catalogue CatalogueConfig
	Storage   StorageConfig
	Build     BuildConfig
	HTTP      HTTPConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings.
// URL, when set, takes precedence over the discrete fields.
type DatabaseConfig struct {
	Driver          string // sqlite or postgres
	Path            string // sqlite database file
	URL             string
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// CatalogueConfig holds fixture and catalogue import settings
type CatalogueConfig struct {
	FixturePath     string
	FixtureURLs     []string
	ImageArchiveURL string
	ImageField      string
	Currency        string
	DownloadTimeout time.Duration
}

// StorageConfig holds media storage settings
type StorageConfig struct {
	Backend   string // local or s3
	MediaRoot string
	MediaURL  string
	S3        S3Config
}

// S3Config holds S3-compatible bucket settings
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PublicURL       string
	CreateBucket    bool
}

// BuildConfig holds the settings of the build targets
type BuildConfig struct {
	ProjectRoot    string
	VenvVar        string
	Requirements   string
	InstallCommand []string
	LintTrees      []string
	SortCommand    []string
	FormatCommand  []string
	AnalyzeCommand []string
	ImagesDir      string
	StaticDir      string
	CleanPatterns  []string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	ShutdownTimeout time.Duration
	TrustedProxies  []string
	AllowOrigins    []string
}

// TelemetryConfig holds OpenTelemetry tracing settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string  // OTLP gRPC endpoint, host:port
	SamplingRatio     float64 // 0.0-1.0
	ServiceName       string
	Insecure          bool // plaintext gRPC, development only
	DBTraceEnabled    bool
	DBLogFullSQL      bool // include query arguments in spans
	DBSlowQueryThresh time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with SHOP_ prefix (e.g., SHOP_DATABASE_DRIVER), and DATABASE_URL
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SHOP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// DATABASE_URL is honoured unprefixed, as hosting platforms set it
	if err := v.BindEnv("database.url", "SHOP_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind database url: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			URL:             v.GetString("database.url"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Catalogue: CatalogueConfig{
			FixturePath:     v.GetString("catalogue.fixture_path"),
			FixtureURLs:     v.GetStringSlice("catalogue.fixture_urls"),
			ImageArchiveURL: v.GetString("catalogue.image_archive_url"),
			ImageField:      v.GetString("catalogue.image_field"),
			Currency:        v.GetString("catalogue.currency"),
			DownloadTimeout: v.GetDuration("catalogue.download_timeout"),
		},
		Storage: StorageConfig{
			Backend:   v.GetString("storage.backend"),
			MediaRoot: v.GetString("storage.media_root"),
			MediaURL:  v.GetString("storage.media_url"),
			S3: S3Config{
				Endpoint:        v.GetString("storage.s3.endpoint"),
				Region:          v.GetString("storage.s3.region"),
				Bucket:          v.GetString("storage.s3.bucket"),
				AccessKeyID:     v.GetString("storage.s3.access_key_id"),
				SecretAccessKey: v.GetString("storage.s3.secret_access_key"),
				UsePathStyle:    v.GetBool("storage.s3.use_path_style"),
				PublicURL:       v.GetString("storage.s3.public_url"),
				CreateBucket:    v.GetBool("storage.s3.create_bucket"),
			},
		},
		Build: BuildConfig{
			ProjectRoot:    v.GetString("build.project_root"),
			VenvVar:        v.GetString("build.venv_var"),
			Requirements:   v.GetString("build.requirements"),
			InstallCommand: v.GetStringSlice("build.install_command"),
			LintTrees:      v.GetStringSlice("build.lint_trees"),
			SortCommand:    v.GetStringSlice("build.sort_command"),
			FormatCommand:  v.GetStringSlice("build.format_command"),
			AnalyzeCommand: v.GetStringSlice("build.analyze_command"),
			ImagesDir:      v.GetString("build.images_dir"),
			StaticDir:      v.GetString("build.static_dir"),
			CleanPatterns:  v.GetStringSlice("build.clean_patterns"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
			AllowOrigins:    v.GetStringSlice("http.allow_origins"),
		},
	}

	if err := cfg.Database.applyURL(); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyURL copies the connection settings held in URL into the discrete fields
func (d *DatabaseConfig) applyURL() error {
	if d.URL == "" {
		return nil
	}
	u, err := url.Parse(d.URL)
	if err != nil {
		return fmt.Errorf("invalid database.url: %w", err)
	}

	switch u.Scheme {
	case "postgres", "postgresql":
		d.Driver = DriverPostgres
		d.Host = u.Hostname()
		if p := u.Port(); p != "" {
			if _, err := fmt.Sscanf(p, "%d", &d.Port); err != nil {
				return fmt.Errorf("invalid database.url port %q", p)
			}
		}
		if u.User != nil {
			d.User = u.User.Username()
			d.Password, _ = u.User.Password()
		}
		d.DBName = strings.TrimPrefix(u.Path, "/")
		if mode := u.Query().Get("sslmode"); mode != "" {
			d.SSLMode = mode
		}
	case "sqlite", "sqlite3":
		d.Driver = DriverSQLite
		// sqlite:///abs/path and sqlite://rel/path
		path := u.Host + u.Path
		if u.Host == "" {
			path = u.Path
		}
		if path == "" {
			path = u.Opaque
		}
		d.Path = path
	default:
		return fmt.Errorf("unsupported database.url scheme %q", u.Scheme)
	}
	return nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shop"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverSQLite
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "db.sqlite3"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "shop"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Catalogue.FixturePath == "" {
		cfg.Catalogue.FixturePath = filepath.Join("fixtures", "catalogue.yaml")
	}
	if len(cfg.Catalogue.FixtureURLs) == 0 {
		cfg.Catalogue.FixtureURLs = append([]string(nil), DefaultFixtureURLs...)
	}
	if cfg.Catalogue.ImageArchiveURL == "" {
		cfg.Catalogue.ImageArchiveURL = DefaultImageArchiveURL
	}
	if cfg.Catalogue.ImageField == "" {
		cfg.Catalogue.ImageField = "upc"
	}
	if cfg.Catalogue.Currency == "" {
		cfg.Catalogue.Currency = "GBP"
	}
	if cfg.Catalogue.DownloadTimeout == 0 {
		cfg.Catalogue.DownloadTimeout = 2 * time.Minute
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageLocal
	}
	if cfg.Storage.MediaRoot == "" {
		cfg.Storage.MediaRoot = "media"
	}
	if cfg.Storage.MediaURL == "" {
		cfg.Storage.MediaURL = "/media/"
	}
	if cfg.Storage.S3.Region == "" {
		cfg.Storage.S3.Region = "us-east-1"
	}
	if cfg.Build.ProjectRoot == "" {
		cfg.Build.ProjectRoot = "."
	}
	if cfg.Build.VenvVar == "" {
		cfg.Build.VenvVar = "VIRTUAL_ENV"
	}
	if cfg.Build.Requirements == "" {
		cfg.Build.Requirements = "requirements.txt"
	}
	if len(cfg.Build.InstallCommand) == 0 {
		cfg.Build.InstallCommand = []string{"pip", "install", "-r"}
	}
	if len(cfg.Build.LintTrees) == 0 {
		cfg.Build.LintTrees = []string{"shop", "catalogue"}
	}
	if len(cfg.Build.SortCommand) == 0 {
		cfg.Build.SortCommand = []string{"isort", "-q"}
	}
	if len(cfg.Build.FormatCommand) == 0 {
		cfg.Build.FormatCommand = []string{"black", "-q"}
	}
	if len(cfg.Build.AnalyzeCommand) == 0 {
		cfg.Build.AnalyzeCommand = []string{"flake8"}
	}
	if cfg.Build.ImagesDir == "" {
		cfg.Build.ImagesDir = "images"
	}
	if cfg.Build.StaticDir == "" {
		cfg.Build.StaticDir = "static"
	}
	if len(cfg.Build.CleanPatterns) == 0 {
		cfg.Build.CleanPatterns = []string{"*.pyc", "*.pyo", "__pycache__"}
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Storage.Backend {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when storage.backend is s3")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", StorageLocal, StorageS3, c.Storage.Backend)
	}

	if !strings.HasPrefix(c.Storage.MediaURL, "/") && !strings.Contains(c.Storage.MediaURL, "://") {
		return fmt.Errorf("storage.media_url must be an absolute path or URL")
	}
	if c.Catalogue.DownloadTimeout < 0 {
		return fmt.Errorf("catalogue.download_timeout cannot be negative")
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)
	}
	if c.App.Env == "production" && c.Telemetry.DBLogFullSQL {
		return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
	}

	if c.App.Env == "production" && c.Database.Driver == DriverPostgres && c.Database.SSLMode == "disable" {
		return fmt.Errorf("database.sslmode cannot be 'disable' in production")
	}

	return nil
}

// IsSQLite reports whether the sqlite driver is configured
func (d *DatabaseConfig) IsSQLite() bool {
	return d.Driver == DriverSQLite
}

// DSN returns the connection string for the configured driver
func (d *DatabaseConfig) DSN() string {
	if d.IsSQLite() {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// MigrationURL returns the database URL in the form golang-migrate expects
func (d *DatabaseConfig) MigrationURL() string {
	if d.IsSQLite() {
		return "sqlite3://" + d.Path
	}
	return d.DSN()
}
