package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunelease/server/internal/domain"
)

func TestFileSource_OpenAndRead(t *testing.T) {
	dir := t.TempDir()
	data := []byte("mp3 bytes here")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trk-1.mp3"), data, 0o600))

	src := NewFileSource(dir)
	obj, err := src.Open(context.Background(), "trk-1")
	require.NoError(t, err)
	defer obj.Close()

	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestFileSource_MissingObject(t *testing.T) {
	src := NewFileSource(t.TempDir())
	_, err := src.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrTrackNotFound)
}

func TestFileSource_RejectsPathTraversal(t *testing.T) {
	src := NewFileSource(t.TempDir())
	for _, id := range []string{"../etc/passwd", "a/b", `a\b`, "..", ""} {
		_, err := src.Open(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrTrackNotFound, "id %q", id)
	}
}

func TestMemorySource_SeekAndRead(t *testing.T) {
	src := NewMemorySource()
	src.Put("trk-1", []byte("0123456789"))

	obj, err := src.Open(context.Background(), "trk-1")
	require.NoError(t, err)
	defer obj.Close()

	pos, err := obj.Seek(4, io.SeekStart)
	require.NoError(t, err)
	assert.EqualValues(t, 4, pos)

	got, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), got)

	_, err = obj.Seek(-1, io.SeekStart)
	assert.Error(t, err)
}
