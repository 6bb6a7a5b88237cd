package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLocalStorage(t *testing.T) (FileStorage, string) {
	t.Helper()
	root := t.TempDir()
	fs, err := NewLocalStorage(root, zap.NewNop())
	require.NoError(t, err)
	return fs, root
}

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	fs, root := newTestLocalStorage(t)
	ctx := context.Background()

	n, err := fs.Save(ctx, "acct/123_day1.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	// The blob lands under the root at the key's relative path.
	_, err = os.Stat(filepath.Join(root, "acct", "123_day1.pdf"))
	require.NoError(t, err)

	rc, err := fs.Open(ctx, "acct/123_day1.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestLocalStorage_OpenMissing(t *testing.T) {
	fs, _ := newTestLocalStorage(t)

	_, err := fs.Open(context.Background(), "acct/does_not_exist.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_TraversalRejected(t *testing.T) {
	fs, _ := newTestLocalStorage(t)
	ctx := context.Background()

	_, err := fs.Save(ctx, "../escape.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnsafePath)

	// Open hides the reason behind the generic not-found error.
	_, err = fs.Open(ctx, "../../etc/passwd")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_OpenDirectory(t *testing.T) {
	fs, _ := newTestLocalStorage(t)
	ctx := context.Background()

	_, err := fs.Save(ctx, "acct/123_file.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = fs.Open(ctx, "acct")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestLocalStorage_Delete(t *testing.T) {
	fs, root := newTestLocalStorage(t)
	ctx := context.Background()

	_, err := fs.Save(ctx, "acct/123_file.pdf", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, fs.Delete(ctx, "acct/123_file.pdf"))
	_, err = os.Stat(filepath.Join(root, "acct", "123_file.pdf"))
	assert.True(t, os.IsNotExist(err))

	// Deleting an already-missing object is not an error.
	assert.NoError(t, fs.Delete(ctx, "acct/123_file.pdf"))
}

func TestLocalStorage_SaveOverwrites(t *testing.T) {
	fs, _ := newTestLocalStorage(t)
	ctx := context.Background()

	_, err := fs.Save(ctx, "acct/999_same.pdf", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = fs.Save(ctx, "acct/999_same.pdf", strings.NewReader("second"))
	require.NoError(t, err)

	rc, err := fs.Open(ctx, "acct/999_same.pdf")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}
