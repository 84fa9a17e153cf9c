// Package fixture builds the catalogue fixture file from stock CSV sources.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shop/backend/internal/infrastructure/fixture"
	"go.uber.org/zap"
)

// ErrNoSources is returned when Build is called without any source
var ErrNoSources = errors.New("no fixture sources configured")

// SourceOpener opens a fixture source given as a URL or a local path
type SourceOpener interface {
	Open(ctx context.Context, src string) (io.ReadCloser, error)
}

// BuildResult summarises a fixture build
type BuildResult struct {
	Path    string         `json:"path"`
	Sources int            `json:"sources"`
	Stock   int            `json:"stock"`
	PerFile map[string]int `json:"per_file"`
}

// Builder downloads stock CSVs and merges them into one fixture document
type Builder struct {
	opener SourceOpener
	logger *zap.Logger
}

// NewBuilder creates a new Builder
func NewBuilder(opener SourceOpener, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{opener: opener, logger: logger}
}

// Collect reads every source in order and returns the merged document.
// Any unreadable source or rejected row fails the whole build.
func (b *Builder) Collect(ctx context.Context, sources []string) (*fixture.Document, map[string]int, error) {
	if len(sources) == 0 {
		return nil, nil, ErrNoSources
	}

	doc := fixture.NewDocument()
	perFile := make(map[string]int, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		part, err := b.read(ctx, src)
		if err != nil {
			return nil, nil, err
		}
		perFile[src] = len(part.Stock)
		doc.Append(part)

		b.logger.Info("Fixture source converted",
			zap.String("source", src),
			zap.Int("stock", len(part.Stock)))
	}
	return doc, perFile, nil
}

func (b *Builder) read(ctx context.Context, src string) (*fixture.Document, error) {
	body, err := b.opener.Open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", src, err)
	}
	defer body.Close()

	part, err := fixture.ParseStockCSV(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src, err)
	}
	return part, nil
}

// Build writes the merged document of sources to outPath
func (b *Builder) Build(ctx context.Context, sources []string, outPath string) (*BuildResult, error) {
	doc, perFile, err := b.Collect(ctx, sources)
	if err != nil {
		return nil, err
	}
	if err := doc.WriteFile(outPath); err != nil {
		return nil, err
	}

	b.logger.Info("Fixture written",
		zap.String("path", outPath),
		zap.Int("stock", len(doc.Stock)))
	return &BuildResult{
		Path:    outPath,
		Sources: len(sources),
		Stock:   len(doc.Stock),
		PerFile: perFile,
	}, nil
}

// ConvertCSV converts the single stock CSV at src and writes it to w as YAML
func (b *Builder) ConvertCSV(ctx context.Context, src string, w io.Writer) error {
	doc, err := b.read(ctx, src)
	if err != nil {
		return err
	}
	return doc.Encode(w)
}
