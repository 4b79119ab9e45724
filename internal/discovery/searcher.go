// Package discovery turns user supplied paths into classified test files.
//
// Directory expansion is delegated to a Searcher. Two external backends
// (ripgrep and find) and an in-process walker implement the same interface;
// SelectSearcher picks one once at startup based on which tools exist.
package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/nixtests/pkg/core"
)

// Searcher lists the test files below a directory.
type Searcher interface {
	// Name identifies the backend in logs and diagnostics.
	Name() string
	// Search returns every test file below dir.
	Search(ctx context.Context, dir string) ([]string, error)
}

// LookPathFunc resolves a binary name, like exec.LookPath.
type LookPathFunc func(file string) (string, error)

// Backend binary names.
const (
	RipgrepBinary = "rg"
	FindBinary    = "find"
)

var testFileGlob = "*" + core.TestFileSuffix

// SelectSearcher picks the preferred available backend: ripgrep, then find,
// then the in-process walker.
func SelectSearcher(lookPath LookPathFunc) Searcher {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if path, err := lookPath(RipgrepBinary); err == nil {
		return &RipgrepSearcher{Binary: path}
	}
	if path, err := lookPath(FindBinary); err == nil {
		return &FindSearcher{Binary: path}
	}
	return WalkSearcher{}
}

// RipgrepSearcher lists files with `rg --files`, which honours ignore files.
type RipgrepSearcher struct {
	Binary string
}

// Name implements Searcher.
func (s *RipgrepSearcher) Name() string { return RipgrepBinary }

// Search implements Searcher.
func (s *RipgrepSearcher) Search(ctx context.Context, dir string) ([]string, error) {
	out, err := runSearch(ctx, binaryOr(s.Binary, RipgrepBinary), "--files", "--glob", testFileGlob, dir)
	if err != nil {
		// rg exits 1 when nothing matched
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && len(exitErr.Stderr) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("rg search in %s failed: %w", dir, err)
	}
	return splitLines(out), nil
}

// FindSearcher lists files with find(1).
type FindSearcher struct {
	Binary string
}

// Name implements Searcher.
func (s *FindSearcher) Name() string { return FindBinary }

// Search implements Searcher.
func (s *FindSearcher) Search(ctx context.Context, dir string) ([]string, error) {
	out, err := runSearch(ctx, binaryOr(s.Binary, FindBinary), dir, "-type", "f", "-name", testFileGlob)
	if err != nil {
		return nil, fmt.Errorf("find search in %s failed: %w", dir, err)
	}
	return splitLines(out), nil
}

// WalkSearcher walks the directory tree in process. It is the fallback when
// neither rg nor find is installed.
type WalkSearcher struct{}

// Name implements Searcher.
func (WalkSearcher) Name() string { return "walk" }

// Search implements Searcher.
func (WalkSearcher) Search(ctx context.Context, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type().IsRegular() && core.IsTestFileName(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk search in %s failed: %w", dir, err)
	}
	return files, nil
}

func runSearch(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitErr.Stderr = stderr.Bytes()
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return nil, fmt.Errorf("%w: %s", err, msg)
			}
		}
		return nil, err
	}
	return out, nil
}

func splitLines(out []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func binaryOr(binary, fallback string) string {
	if binary == "" {
		return fallback
	}
	return binary
}
