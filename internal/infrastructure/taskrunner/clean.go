package taskrunner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// CleanConfig lists what Clean removes
type CleanConfig struct {
	// Root is walked for Patterns
	Root string
	// Files and Dirs are removed outright; relative paths are taken from Root
	Files []string
	Dirs  []string
	// Patterns are matched against base names, e.g. "*.pyc" or "__pycache__"
	Patterns []string
	// Skip lists directories never descended into, such as the virtualenv
	Skip []string
}

// CleanReport lists the paths Clean removed
type CleanReport struct {
	Removed []string
}

// Cleaner deletes generated artefacts
type Cleaner struct {
	cfg    CleanConfig
	logger *zap.Logger
}

// NewCleaner creates a cleaner
func NewCleaner(cfg CleanConfig, logger *zap.Logger) *Cleaner {
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{cfg: cfg, logger: logger}
}

// Clean removes the configured files, directories and pattern matches.
// Paths that do not exist are ignored, so a second run removes nothing.
func (c *Cleaner) Clean(ctx context.Context) (CleanReport, error) {
	var report CleanReport

	for _, p := range append(append([]string(nil), c.cfg.Files...), c.cfg.Dirs...) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if p == "" {
			continue
		}
		removed, err := removePath(c.resolve(p))
		if err != nil {
			return report, err
		}
		if removed {
			report.Removed = append(report.Removed, c.resolve(p))
		}
	}

	if len(c.cfg.Patterns) > 0 {
		matches, err := c.matches(ctx)
		if err != nil {
			return report, err
		}
		for _, p := range matches {
			removed, err := removePath(p)
			if err != nil {
				return report, err
			}
			if removed {
				report.Removed = append(report.Removed, p)
			}
		}
	}

	c.logger.Info("Clean complete", zap.Int("removed", len(report.Removed)))
	return report, nil
}

func (c *Cleaner) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.cfg.Root, p)
}

// matches collects pattern matches without descending into matched
// directories, .git or skipped paths.
func (c *Cleaner) matches(ctx context.Context) ([]string, error) {
	skip := make(map[string]bool, len(c.cfg.Skip))
	for _, s := range c.cfg.Skip {
		if s == "" {
			continue
		}
		if abs, err := filepath.Abs(c.resolve(s)); err == nil {
			skip[abs] = true
		}
	}

	var out []string
	err := filepath.WalkDir(c.cfg.Root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() && p != c.cfg.Root {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if abs, err := filepath.Abs(p); err == nil && skip[abs] {
				return filepath.SkipDir
			}
		}
		if p == c.cfg.Root {
			return nil
		}

		for _, pattern := range c.cfg.Patterns {
			ok, err := filepath.Match(pattern, d.Name())
			if err != nil {
				return fmt.Errorf("clean pattern %q: %w", pattern, err)
			}
			if ok {
				out = append(out, p)
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}
		return nil
	})
	return out, err
}

// removePath deletes p recursively and reports whether anything was there
func removePath(p string) (bool, error) {
	if _, err := os.Lstat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if err := os.RemoveAll(p); err != nil {
		return false, fmt.Errorf("removing %s: %w", p, err)
	}
	return true, nil
}
