package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Classifier classifies requested paths into test files.
type Classifier struct {
	searcher Searcher
	logger   *slog.Logger
}

// NewClassifier creates a classifier backed by searcher. A nil logger
// discards output.
func NewClassifier(searcher Searcher, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Classifier{searcher: searcher, logger: logger}
}

// Searcher returns the backend used to expand directories.
func (c *Classifier) Searcher() Searcher { return c.searcher }

// Classify resolves each path:
//   - a path that cannot be stat'ed is NotFound
//   - a file is Valid when its name ends in _test.nix, Invalid otherwise
//   - a directory expands to every test file the searcher finds below it
//
// The result is sorted by kind rank then path, without duplicates.
// A searcher failure aborts classification.
func (c *Classifier) Classify(ctx context.Context, paths []string) ([]core.TestFile, error) {
	var files []core.TestFile

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			c.logger.Debug("path not found", "path", path, "error", err)
			files = append(files, core.NotFoundFile(path))
			continue
		}

		if !info.IsDir() {
			if core.IsTestFileName(path) {
				files = append(files, core.ValidFile(path))
			} else {
				files = append(files, core.InvalidFile(path))
			}
			continue
		}

		found, err := c.searcher.Search(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to discover test files in %s: %w", path, err)
		}
		c.logger.Debug("searched directory", "path", path, "backend", c.searcher.Name(), "found", len(found))
		for _, f := range found {
			files = append(files, core.ValidFile(f))
		}
	}

	return core.SortTestFiles(files), nil
}
