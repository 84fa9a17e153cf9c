package build_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/shop/backend/internal/application/build"
	catalogapp "github.com/shop/backend/internal/application/catalog"
	fixtureapp "github.com/shop/backend/internal/application/fixture"
	"github.com/shop/backend/internal/application/reference"
	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/shop/backend/internal/infrastructure/taskrunner"
)

// MockExecutor is a mock implementation of taskrunner.Executor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Run(ctx context.Context, cmd taskrunner.Command) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

// MockFixtureBuilder is a mock implementation of build.FixtureBuilder
type MockFixtureBuilder struct {
	mock.Mock
}

func (m *MockFixtureBuilder) Build(ctx context.Context, sources []string, outPath string) (*fixtureapp.BuildResult, error) {
	args := m.Called(ctx, sources, outPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fixtureapp.BuildResult), args.Error(1)
}

// MockSeeder is a mock implementation of build.DatabaseSeeder
type MockSeeder struct {
	mock.Mock
}

func (m *MockSeeder) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSeeder) PopulateCountries(ctx context.Context, opts reference.PopulateOptions) (int, error) {
	args := m.Called(ctx, opts)
	return args.Int(0), args.Error(1)
}

func (m *MockSeeder) ImportCatalogue(ctx context.Context, path string, opts catalogapp.ImportOptions) (*catalogapp.ImportResult, error) {
	args := m.Called(ctx, path, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalogapp.ImportResult), args.Error(1)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		Database: config.DatabaseConfig{
			Driver:       config.DriverSQLite,
			Path:         filepath.Join(root, "db.sqlite3"),
			MaxOpenConns: 1,
		},
		Log: config.LogConfig{Level: "warn"},
		Catalogue: config.CatalogueConfig{
			FixturePath:     filepath.Join(root, "fixtures", "catalogue.yaml"),
			FixtureURLs:     []string{"https://example.com/a.csv", "https://example.com/b.csv"},
			ImageArchiveURL: "https://example.com/images.tar.gz",
			ImageField:      "upc",
			Currency:        "GBP",
		},
		Storage: config.StorageConfig{
			Backend:   config.StorageLocal,
			MediaRoot: filepath.Join(root, "media"),
			MediaURL:  "/media/",
		},
		Build: config.BuildConfig{
			ProjectRoot:    root,
			VenvVar:        "VIRTUAL_ENV",
			Requirements:   "requirements.txt",
			InstallCommand: []string{"pip", "install", "-r"},
			LintTrees:      []string{"shop", "catalogue"},
			SortCommand:    []string{"isort", "-q"},
			FormatCommand:  []string{"black", "-q"},
			AnalyzeCommand: []string{"flake8"},
			ImagesDir:      filepath.Join(root, "images"),
			StaticDir:      filepath.Join(root, "static"),
			CleanPatterns:  []string{"*.pyc", "*.pyo", "__pycache__"},
		},
	}
}

func venv(path string) taskrunner.LookupFunc {
	return func(key string) (string, bool) {
		if key == "VIRTUAL_ENV" && path != "" {
			return path, true
		}
		return "", false
	}
}

func command(dir string, argv ...string) taskrunner.Command {
	cmd := taskrunner.NewCommand(argv...)
	cmd.Dir = dir
	return cmd
}

type harness struct {
	cfg      *config.Config
	exec     *MockExecutor
	fixtures *MockFixtureBuilder
	seeder   *MockSeeder
	runner   *taskrunner.Runner
	order    []string
}

func newHarness(t *testing.T, lookup taskrunner.LookupFunc) *harness {
	t.Helper()
	h := &harness{
		cfg:      testConfig(t),
		exec:     new(MockExecutor),
		fixtures: new(MockFixtureBuilder),
		seeder:   new(MockSeeder),
	}
	logger := zaptest.NewLogger(t)
	g, err := build.NewGraph(h.cfg, build.Dependencies{
		Fixtures: h.fixtures,
		Seeder:   h.seeder,
		Lookup:   lookup,
		Logger:   logger,
	})
	require.NoError(t, err)
	h.runner = taskrunner.NewRunner(g, h.exec, logger)
	return h
}

func (h *harness) record(step string) func(mock.Arguments) {
	return func(mock.Arguments) { h.order = append(h.order, step) }
}

func TestNewGraph_Plan(t *testing.T) {
	h := newHarness(t, venv("/venv"))
	g, err := build.NewGraph(h.cfg, build.Dependencies{})
	require.NoError(t, err)

	plan, err := g.Plan(build.DefaultTarget)
	require.NoError(t, err)
	var got []string
	for _, target := range plan {
		got = append(got, target.Name)
	}
	assert.Equal(t, []string{"check_for_venv", "depends", "fixtures", "database", "all"}, got)
	assert.Equal(t, []string{"all", "check_for_venv", "clean", "database", "depends", "fixtures", "lint"}, g.Names())
}

func TestAll_OutsideVirtualEnv(t *testing.T) {
	h := newHarness(t, venv(""))

	err := h.runner.Run(context.Background(), build.TargetAll)
	require.ErrorIs(t, err, taskrunner.ErrNoVirtualEnv)
	assert.Equal(t, 2, taskrunner.ExitCode(err))

	h.exec.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
	h.fixtures.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything)
	h.seeder.AssertNotCalled(t, "Migrate", mock.Anything)
	assert.NoFileExists(t, h.cfg.Database.Path)
}

func TestAll_RunsStepsInOrder(t *testing.T) {
	h := newHarness(t, venv("/venv"))
	root := h.cfg.Build.ProjectRoot

	h.exec.On("Run", mock.Anything, command(root, "pip", "install", "-r", "requirements.txt")).
		Run(h.record("install")).Return(nil).Once()
	h.fixtures.On("Build", mock.Anything, h.cfg.Catalogue.FixtureURLs, h.cfg.Catalogue.FixturePath).
		Run(h.record("fixtures")).Return(&fixtureapp.BuildResult{Stock: 3}, nil).Once()
	h.seeder.On("Migrate", mock.Anything).Run(h.record("migrate")).Return(nil).Once()
	h.seeder.On("PopulateCountries", mock.Anything, reference.PopulateOptions{Shipping: true}).
		Run(h.record("countries")).Return(0, reference.ErrCountriesExist).Once()
	h.seeder.On("ImportCatalogue", mock.Anything, h.cfg.Catalogue.FixturePath, catalogapp.ImportOptions{
		ImageField:   "upc",
		ImageArchive: "https://example.com/images.tar.gz",
	}).Run(h.record("catalogue")).Return(&catalogapp.ImportResult{}, nil).Once()

	require.NoError(t, h.runner.Run(context.Background(), build.TargetAll))

	assert.Equal(t, []string{"install", "fixtures", "migrate", "countries", "catalogue"}, h.order)
	h.exec.AssertExpectations(t)
	h.fixtures.AssertExpectations(t)
	h.seeder.AssertExpectations(t)
}

func TestFixtures_UpToDate(t *testing.T) {
	h := newHarness(t, venv("/venv"))
	path := h.cfg.Catalogue.FixturePath
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stock: []\n"), 0o644))

	h.exec.On("Run", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, h.runner.Run(context.Background(), build.TargetFixtures))
	h.fixtures.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything)

	history := h.runner.History()
	require.Len(t, history, 3)
	assert.Equal(t, taskrunner.StatusUpToDate, history[2].Status)
}

func TestDatabase_StopsOnCountryFailure(t *testing.T) {
	h := newHarness(t, venv("/venv"))
	path := h.cfg.Catalogue.FixturePath
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("stock: []\n"), 0o644))

	boom := errors.New("disk full")
	h.exec.On("Run", mock.Anything, mock.Anything).Return(nil)
	h.seeder.On("Migrate", mock.Anything).Return(nil)
	h.seeder.On("PopulateCountries", mock.Anything, mock.Anything).Return(0, boom)

	err := h.runner.Run(context.Background(), build.TargetDatabase)
	require.ErrorIs(t, err, boom)

	var targetErr *taskrunner.TargetError
	require.ErrorAs(t, err, &targetErr)
	assert.Equal(t, build.TargetDatabase, targetErr.Target)
	h.seeder.AssertNotCalled(t, "ImportCatalogue", mock.Anything, mock.Anything, mock.Anything)
}

func TestDepends_InstallFailurePropagatesExitStatus(t *testing.T) {
	h := newHarness(t, venv("/venv"))
	h.exec.On("Run", mock.Anything, mock.Anything).
		Return(&taskrunner.ExitError{Command: "pip install -r requirements.txt", Code: 1})

	err := h.runner.Run(context.Background(), build.TargetAll)
	require.Error(t, err)
	assert.Equal(t, 1, taskrunner.ExitCode(err))
	h.fixtures.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything)
}

func TestLint(t *testing.T) {
	h := newHarness(t, venv(""))
	root := h.cfg.Build.ProjectRoot

	var ran []string
	h.exec.On("Run", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		cmd := args.Get(1).(taskrunner.Command)
		assert.Equal(t, root, cmd.Dir)
		ran = append(ran, cmd.String())
	}).Return(nil)

	require.NoError(t, h.runner.Run(context.Background(), build.TargetLint))
	assert.Equal(t, []string{
		"isort -q shop catalogue",
		"black -q shop catalogue",
		"flake8 shop catalogue",
	}, ran)
}

func TestClean(t *testing.T) {
	h := newHarness(t, venv(""))
	root := h.cfg.Build.ProjectRoot

	for _, p := range []string{
		h.cfg.Database.Path,
		filepath.Join(h.cfg.Build.ImagesDir, "a.jpg"),
		filepath.Join(h.cfg.Build.StaticDir, "css", "app.css"),
		filepath.Join(h.cfg.Storage.MediaRoot, "images", "products", "b.jpg"),
		filepath.Join(root, "shop", "__pycache__", "urls.pyc"),
		filepath.Join(root, "catalogue", "views.pyo"),
		filepath.Join(root, "catalogue", "views.py"),
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	require.NoError(t, h.runner.Run(context.Background(), build.TargetClean))

	assert.NoFileExists(t, h.cfg.Database.Path)
	assert.NoDirExists(t, h.cfg.Build.ImagesDir)
	assert.NoDirExists(t, h.cfg.Build.StaticDir)
	assert.NoDirExists(t, h.cfg.Storage.MediaRoot)
	assert.NoDirExists(t, filepath.Join(root, "shop", "__pycache__"))
	assert.NoFileExists(t, filepath.Join(root, "catalogue", "views.pyo"))
	assert.FileExists(t, filepath.Join(root, "catalogue", "views.py"))

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, h.runner.Run(context.Background(), build.TargetClean))

		report, err := taskrunner.NewCleaner(build.CleanConfig(h.cfg, venv("")), nil).Clean(context.Background())
		require.NoError(t, err)
		assert.Empty(t, report.Removed)
	})
}

func TestCleanConfig(t *testing.T) {
	cfg := testConfig(t)
	venvDir := filepath.Join(cfg.Build.ProjectRoot, ".venv")

	cc := build.CleanConfig(cfg, venv(venvDir))
	assert.Equal(t, cfg.Build.ProjectRoot, cc.Root)
	assert.Equal(t, []string{cfg.Database.Path}, cc.Files)
	assert.Equal(t, []string{cfg.Build.ImagesDir, cfg.Build.StaticDir, cfg.Storage.MediaRoot}, cc.Dirs)
	assert.Equal(t, []string{venvDir}, cc.Skip)
	assert.Equal(t, cfg.Build.CleanPatterns, cc.Patterns)

	t.Run("postgres and s3 keep their data", func(t *testing.T) {
		cfg.Database.Driver = config.DriverPostgres
		cfg.Storage.Backend = config.StorageS3
		cc := build.CleanConfig(cfg, venv(""))
		assert.Empty(t, cc.Files)
		assert.Equal(t, []string{cfg.Build.ImagesDir, cfg.Build.StaticDir}, cc.Dirs)
		assert.Empty(t, cc.Skip)
	})
}
