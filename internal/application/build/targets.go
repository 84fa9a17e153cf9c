// Package build wires the shop's build targets onto the task runner.
package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	catalogapp "github.com/shop/backend/internal/application/catalog"
	fixtureapp "github.com/shop/backend/internal/application/fixture"
	"github.com/shop/backend/internal/application/reference"
	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/shop/backend/internal/infrastructure/taskrunner"
	"go.uber.org/zap"
)

// Target names
const (
	TargetAll          = "all"
	TargetCheckForVenv = "check_for_venv"
	TargetDepends      = "depends"
	TargetFixtures     = "fixtures"
	TargetDatabase     = "database"
	TargetClean        = "clean"
	TargetLint         = "lint"
)

// DefaultTarget runs when no target is named
const DefaultTarget = TargetAll

// FixtureBuilder writes the fixture file from its CSV sources
type FixtureBuilder interface {
	Build(ctx context.Context, sources []string, outPath string) (*fixtureapp.BuildResult, error)
}

// DatabaseSeeder performs the steps of the database target
type DatabaseSeeder interface {
	Migrate(ctx context.Context) error
	PopulateCountries(ctx context.Context, opts reference.PopulateOptions) (int, error)
	ImportCatalogue(ctx context.Context, path string, opts catalogapp.ImportOptions) (*catalogapp.ImportResult, error)
}

// Dependencies are the collaborators the targets call into
type Dependencies struct {
	Fixtures FixtureBuilder
	Seeder   DatabaseSeeder
	// Lookup reads environment variables; os.LookupEnv when nil
	Lookup taskrunner.LookupFunc
	Logger *zap.Logger
}

// NewGraph registers every shop target
func NewGraph(cfg *config.Config, deps Dependencies) (*taskrunner.Graph, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Lookup == nil {
		deps.Lookup = os.LookupEnv
	}
	b := &targets{cfg: cfg, deps: deps, logger: deps.Logger}

	g := taskrunner.NewGraph()
	for _, t := range []*taskrunner.Target{
		{
			Name:        TargetAll,
			Description: "install dependencies, build fixtures and seed the database",
			Deps:        []string{TargetDepends, TargetFixtures, TargetDatabase},
		},
		{
			Name:        TargetCheckForVenv,
			Description: "refuse to build outside a virtual environment",
			Action:      b.checkForVenv,
		},
		{
			Name:        TargetDepends,
			Description: "install the requirements manifest",
			Deps:        []string{TargetCheckForVenv},
			Commands:    []taskrunner.Command{b.installCommand()},
		},
		{
			Name:        TargetFixtures,
			Description: "download the stock lists and write the fixture file",
			Deps:        []string{TargetDepends},
			Output:      cfg.Catalogue.FixturePath,
			Action:      b.fixtures,
		},
		{
			Name:        TargetDatabase,
			Description: "migrate, add reference countries and load the catalogue",
			Deps:        []string{TargetDepends, TargetFixtures},
			Action:      b.database,
		},
		{
			Name:        TargetClean,
			Description: "remove the database, media and compiled artefacts",
			Action:      b.clean,
		},
		{
			Name:        TargetLint,
			Description: "sort imports, format and statically analyse the sources",
			Commands:    b.lintCommands(),
		},
	} {
		if err := g.Register(t); err != nil {
			return nil, err
		}
	}
	return g, nil
}

type targets struct {
	cfg    *config.Config
	deps   Dependencies
	logger *zap.Logger
}

func (b *targets) checkForVenv(ctx context.Context) error {
	return taskrunner.RequireVirtualEnv(b.cfg.Build.VenvVar, b.deps.Lookup)
}

func (b *targets) installCommand() taskrunner.Command {
	argv := append(append([]string(nil), b.cfg.Build.InstallCommand...), b.cfg.Build.Requirements)
	cmd := taskrunner.NewCommand(argv...)
	cmd.Dir = b.cfg.Build.ProjectRoot
	return cmd
}

func (b *targets) lintCommands() []taskrunner.Command {
	var cmds []taskrunner.Command
	for _, tool := range [][]string{b.cfg.Build.SortCommand, b.cfg.Build.FormatCommand, b.cfg.Build.AnalyzeCommand} {
		if len(tool) == 0 {
			continue
		}
		argv := append(append([]string(nil), tool...), b.cfg.Build.LintTrees...)
		cmd := taskrunner.NewCommand(argv...)
		cmd.Dir = b.cfg.Build.ProjectRoot
		cmds = append(cmds, cmd)
	}
	return cmds
}

func (b *targets) fixtures(ctx context.Context) error {
	_, err := b.deps.Fixtures.Build(ctx, b.cfg.Catalogue.FixtureURLs, b.cfg.Catalogue.FixturePath)
	return err
}

func (b *targets) database(ctx context.Context) error {
	if err := b.deps.Seeder.Migrate(ctx); err != nil {
		return err
	}

	n, err := b.deps.Seeder.PopulateCountries(ctx, reference.PopulateOptions{Shipping: true})
	switch {
	case errors.Is(err, reference.ErrCountriesExist):
		b.logger.Info("Countries already populated")
	case err != nil:
		return err
	default:
		b.logger.Info("Countries added", zap.Int("count", n))
	}

	_, err = b.deps.Seeder.ImportCatalogue(ctx, b.cfg.Catalogue.FixturePath, catalogapp.ImportOptions{
		ImageField:   b.cfg.Catalogue.ImageField,
		ImageArchive: b.cfg.Catalogue.ImageArchiveURL,
	})
	return err
}

func (b *targets) clean(ctx context.Context) error {
	report, err := taskrunner.NewCleaner(CleanConfig(b.cfg, b.deps.Lookup), b.logger).Clean(ctx)
	for _, p := range report.Removed {
		b.logger.Debug("Removed", zap.String("path", p))
	}
	return err
}

// CleanConfig lists what the clean target removes. Configured file paths
// are relative to the working directory; the bytecode walk covers the
// project root.
func CleanConfig(cfg *config.Config, lookup taskrunner.LookupFunc) taskrunner.CleanConfig {
	var files []string
	if cfg.Database.IsSQLite() && cfg.Database.Path != "" {
		files = append(files, absPath(cfg.Database.Path))
	}

	dirs := []string{absPath(cfg.Build.ImagesDir), absPath(cfg.Build.StaticDir)}
	if cfg.Storage.Backend == config.StorageLocal || cfg.Storage.Backend == "" {
		dirs = append(dirs, absPath(cfg.Storage.MediaRoot))
	}

	var skip []string
	if venv := taskrunner.VirtualEnvDir(cfg.Build.VenvVar, lookup); venv != "" {
		skip = append(skip, absPath(venv))
	}

	return taskrunner.CleanConfig{
		Root:     cfg.Build.ProjectRoot,
		Files:    files,
		Dirs:     dirs,
		Patterns: cfg.Build.CleanPatterns,
		Skip:     skip,
	}
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
