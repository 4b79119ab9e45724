package core

import (
	"cmp"
	"slices"
	"strings"
)

// TestFileSuffix is the naming convention that marks a file as a test file.
const TestFileSuffix = "_test.nix"

// FileKind classifies a discovered path. The numeric value is the rank used
// for ordering.
type FileKind int

// File kinds in rank order.
const (
	KindInvalid FileKind = iota
	KindNotFound
	KindValid
)

func (k FileKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindNotFound:
		return "not_found"
	case KindValid:
		return "valid"
	default:
		return "unknown"
	}
}

// TestFile is a classified path produced by discovery.
type TestFile struct {
	Kind FileKind
	Path string
}

// ValidFile returns a TestFile of kind KindValid.
func ValidFile(path string) TestFile { return TestFile{Kind: KindValid, Path: path} }

// NotFoundFile returns a TestFile of kind KindNotFound.
func NotFoundFile(path string) TestFile { return TestFile{Kind: KindNotFound, Path: path} }

// InvalidFile returns a TestFile of kind KindInvalid.
func InvalidFile(path string) TestFile { return TestFile{Kind: KindInvalid, Path: path} }

// IsTestFileName reports whether name follows the test file naming convention.
func IsTestFileName(name string) bool {
	return strings.HasSuffix(name, TestFileSuffix)
}

// CompareTestFiles orders by kind rank, then by path.
func CompareTestFiles(a, b TestFile) int {
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return strings.Compare(a.Path, b.Path)
}

// SortTestFiles sorts files in place by CompareTestFiles and removes
// duplicate (Kind, Path) pairs. The returned slice shares the backing array.
func SortTestFiles(files []TestFile) []TestFile {
	slices.SortFunc(files, CompareTestFiles)
	return slices.Compact(files)
}

// ValidPaths returns the paths of all KindValid entries, preserving order.
func ValidPaths(files []TestFile) []string {
	var paths []string
	for _, f := range files {
		if f.Kind == KindValid {
			paths = append(paths, f.Path)
		}
	}
	return paths
}
