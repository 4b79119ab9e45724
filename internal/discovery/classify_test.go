package discovery

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/nixtests/internal/testutil"
	"github.com/leapstack-labs/nixtests/pkg/core"
)

type failingSearcher struct{ err error }

func (failingSearcher) Name() string { return "failing" }

func (s failingSearcher) Search(context.Context, string) ([]string, error) { return nil, s.err }

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(WalkSearcher{}, testutil.NewTestLogger(t))
}

func TestClassify_Directory(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"file1_test.nix": "{}",
		"file2_test.nix": "{}",
		"file3_test.nix": "{}",
		"regular.nix":    "{}",
	})

	files, err := newTestClassifier(t).Classify(context.Background(), []string{dir})
	require.NoError(t, err)

	assert.Equal(t, []core.TestFile{
		core.ValidFile(filepath.Join(dir, "file1_test.nix")),
		core.ValidFile(filepath.Join(dir, "file2_test.nix")),
		core.ValidFile(filepath.Join(dir, "file3_test.nix")),
	}, files)
}

func TestClassify_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "file_test.nix", "{}")

	files, err := newTestClassifier(t).Classify(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, []core.TestFile{core.ValidFile(path)}, files)
}

func TestClassify_EmptyWhenNoTestFiles(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "regular.nix", "{}")

	files, err := newTestClassifier(t).Classify(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestClassify_RemovesDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "file_test.nix", "{}")

	files, err := newTestClassifier(t).Classify(context.Background(), []string{path, path, dir})
	require.NoError(t, err)
	assert.Equal(t, []core.TestFile{core.ValidFile(path)}, files)
}

func TestClassify_NonexistentPath(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "not_existing")

	files, err := newTestClassifier(t).Classify(context.Background(), []string{missing})
	require.NoError(t, err)
	assert.Equal(t, []core.TestFile{core.NotFoundFile(missing)}, files)
}

func TestClassify_InvalidFile(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "flake.nix", "{}")

	files, err := newTestClassifier(t).Classify(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, []core.TestFile{core.InvalidFile(path)}, files)
}

func TestClassify_MixedPaths(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"file1_test.nix": "{}",
		"file2_test.nix": "{}",
	})
	invalid := testutil.WriteFile(t, t.TempDir(), "default.nix", "{}")
	missing := filepath.Join(t.TempDir(), "not_existing")

	files, err := newTestClassifier(t).Classify(context.Background(), []string{dir, missing, invalid})
	require.NoError(t, err)

	assert.Equal(t, []core.TestFile{
		core.InvalidFile(invalid),
		core.NotFoundFile(missing),
		core.ValidFile(filepath.Join(dir, "file1_test.nix")),
		core.ValidFile(filepath.Join(dir, "file2_test.nix")),
	}, files)
}

func TestClassify_SearcherFailureIsFatal(t *testing.T) {
	boom := errors.New("boom")
	c := NewClassifier(failingSearcher{err: boom}, nil)

	_, err := c.Classify(context.Background(), []string{t.TempDir()})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to discover test files")
}

func TestClassify_NestedDirectories(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"b/deep/z_test.nix": "{}",
		"a/x_test.nix":      "{}",
		"a/helper.nix":      "{}",
	})

	files, err := newTestClassifier(t).Classify(context.Background(), []string{dir})
	require.NoError(t, err)
	assert.Equal(t, []core.TestFile{
		core.ValidFile(filepath.Join(dir, "a", "x_test.nix")),
		core.ValidFile(filepath.Join(dir, "b", "deep", "z_test.nix")),
	}, files)
}
