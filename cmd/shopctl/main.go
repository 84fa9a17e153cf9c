// Command shopctl runs the shop's build targets and seed commands.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/shop/backend/internal/application/build"
	catalogapp "github.com/shop/backend/internal/application/catalog"
	fixtureapp "github.com/shop/backend/internal/application/fixture"
	"github.com/shop/backend/internal/application/reference"
	"github.com/shop/backend/internal/infrastructure/config"
	"github.com/shop/backend/internal/infrastructure/fetch"
	"github.com/shop/backend/internal/infrastructure/logger"
	"github.com/shop/backend/internal/infrastructure/taskrunner"
)

// csv2yaml reports failures with this status
const conversionFailed = 255

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shopctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dryRun := fs.Bool("n", false, "Print the commands that would run without running them")
	alwaysMake := fs.Bool("B", false, "Rebuild file targets even when they are up to date")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error); overrides log.level")
	fs.Usage = func() { printUsage(stderr, fs) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 2
	}
	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}
	log, err := logger.New(&logger.Config{
		Level:      level,
		Format:     cfg.Log.Format,
		Output:     "stderr",
		TimeFormat: "15:04:05.000",
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 2
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	downloader := fetch.NewDownloader(cfg.Catalogue.DownloadTimeout, log)
	builder := fixtureapp.NewBuilder(downloader, log)

	command := build.DefaultTarget
	if len(rest) > 0 {
		command = rest[0]
		rest = rest[1:]
	}

	switch command {
	case "csv2yaml":
		if len(rest) != 1 {
			fmt.Fprintln(stderr, "Usage: shopctl csv2yaml <path>")
			return conversionFailed
		}
		if err := builder.ConvertCSV(ctx, rest[0], stdout); err != nil {
			fmt.Fprintln(stderr, err)
			return conversionFailed
		}
		return 0

	case "download-fixtures":
		sources := cfg.Catalogue.FixtureURLs
		if len(rest) > 0 {
			sources = rest
		}
		result, err := builder.Build(ctx, sources, cfg.Catalogue.FixturePath)
		if err != nil {
			log.Error("Building fixtures failed", zap.Error(err))
			return 1
		}
		fmt.Fprintf(stdout, "%d stock records written to %s\n", result.Stock, result.Path)
		return 0

	case "load-catalogue":
		return loadCatalogue(ctx, cfg, log, rest, stdout, stderr)

	case "populate-countries":
		return populateCountries(ctx, cfg, log, rest, stdout, stderr)

	case "targets":
		graph, err := build.NewGraph(cfg, build.Dependencies{Logger: log})
		if err != nil {
			log.Error("Registering targets failed", zap.Error(err))
			return 2
		}
		for _, t := range graph.Targets() {
			fmt.Fprintf(stdout, "%-16s %s\n", t.Name, t.Description)
		}
		return 0
	}

	seeder := build.NewSeeder(cfg, log)
	defer func() {
		if err := seeder.Close(); err != nil {
			log.Warn("Closing database failed", zap.Error(err))
		}
	}()

	graph, err := build.NewGraph(cfg, build.Dependencies{
		Fixtures: builder,
		Seeder:   seeder,
		Logger:   log,
	})
	if err != nil {
		log.Error("Registering targets failed", zap.Error(err))
		return 2
	}

	runner := taskrunner.NewRunner(graph,
		taskrunner.NewOSExecutor(stdout, stderr, log),
		log,
		taskrunner.WithDryRun(*dryRun),
		taskrunner.WithAlwaysMake(*alwaysMake),
		taskrunner.WithOutput(stdout),
	)
	targets := append([]string{command}, rest...)
	if err := runner.Run(ctx, targets...); err != nil {
		var targetErr *taskrunner.TargetError
		if errors.Is(err, taskrunner.ErrNoVirtualEnv) {
			if errors.As(err, &targetErr) {
				err = targetErr.Err
			}
			fmt.Fprintln(stderr, err)
		} else {
			log.Error("Build failed", zap.Error(err))
		}
		return taskrunner.ExitCode(err)
	}
	return 0
}

func loadCatalogue(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("load-catalogue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	field := fs.String("img-field", cfg.Catalogue.ImageField, "Product field image file names are matched against (upc or title)")
	clearFirst := fs.Bool("clear", false, "Empty the catalogue before loading")
	archive := fs.String("images", cfg.Catalogue.ImageArchiveURL, "Image archive URL or path")
	imagesDir := fs.String("images-dir", "", "Import images from an extracted directory instead of the archive")
	skipImages := fs.Bool("skip-images", false, "Load the fixture only")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return 2
	}
	if len(positional) != 1 {
		fmt.Fprintln(stderr, "Usage: shopctl load-catalogue [-img-field upc] [-clear] <path>")
		return 2
	}

	seeder := build.NewSeeder(cfg, log)
	defer func() { _ = seeder.Close() }()
	if err := seeder.Migrate(ctx); err != nil {
		log.Error("Migrating database failed", zap.Error(err))
		return 1
	}

	result, err := seeder.ImportCatalogue(ctx, positional[0], catalogapp.ImportOptions{
		ImageField:   *field,
		Clear:        *clearFirst,
		ImageArchive: *archive,
		ImagesDir:    *imagesDir,
		SkipImages:   *skipImages,
	})
	if err != nil {
		log.Error("Loading catalogue failed", zap.Error(err))
		return 1
	}
	fmt.Fprintf(stdout, "%d products, %d stock records, %d categories loaded\n",
		result.Load.Products, result.Load.StockRecords, result.Load.Categories)
	if result.Images != nil {
		fmt.Fprintf(stdout, "%d images imported, %d identical, %d unmatched\n",
			result.Images.Imported, result.Images.Identical, result.Images.Unmatched)
	}
	return 0
}

func populateCountries(ctx context.Context, cfg *config.Config, log *zap.Logger, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("populate-countries", flag.ContinueOnError)
	fs.SetOutput(stderr)
	noShipping := fs.Bool("no-shipping", false, "Do not mark countries as shipping countries")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	seeder := build.NewSeeder(cfg, log)
	defer func() { _ = seeder.Close() }()
	if err := seeder.Migrate(ctx); err != nil {
		log.Error("Migrating database failed", zap.Error(err))
		return 1
	}

	n, err := seeder.PopulateCountries(ctx, reference.PopulateOptions{Shipping: !*noShipping})
	if err != nil {
		log.Error("Populating countries failed", zap.Error(err))
		return 1
	}
	fmt.Fprintf(stdout, "%d countries added\n", n)
	return 0
}

// parseInterspersed parses flags on either side of positional arguments,
// so "load-catalogue <path> -clear" works like "load-catalogue -clear <path>".
// Arguments after "--" are positional.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, `Usage:
  shopctl [flags] [target ...]        run build targets (default: all)
  shopctl targets                     list build targets
  shopctl csv2yaml <path>             convert one stock CSV to YAML on stdout
  shopctl download-fixtures [src ...] build the fixture file
  shopctl load-catalogue <path>       load a fixture file and product images
  shopctl populate-countries          fill the countries table

Flags:`)
	fs.PrintDefaults()
}
