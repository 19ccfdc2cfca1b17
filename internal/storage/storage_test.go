package storage

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestSaveDetectsTypeAndKeepsContent(t *testing.T) {
	s := New(afero.NewMemMapFs(), "/media/")

	saved, err := s.Save("avatars/u1", "me.png", bytes.NewReader(pngPixel))
	require.NoError(t, err)
	assert.Equal(t, "avatars/u1/me.png", saved.Path)
	assert.Equal(t, "image/png", saved.ContentType)
	assert.True(t, IsImage(saved.ContentType))
	assert.Equal(t, int64(len(pngPixel)), saved.Size)
	assert.Equal(t, "/media/avatars/u1/me.png", s.URL(saved.Path))

	f, err := s.Open(saved.Path)
	require.NoError(t, err)
	defer f.Close()
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, pngPixel, content)
}

func TestSaveDoesNotOverwrite(t *testing.T) {
	s := New(afero.NewMemMapFs(), "/media/")

	first, err := s.Save("job_attachments/j1", "brief.txt", strings.NewReader("first"))
	require.NoError(t, err)
	second, err := s.Save("job_attachments/j1", "brief.txt", strings.NewReader("second"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Path, second.Path)
	assert.True(t, strings.HasPrefix(second.Path, "job_attachments/j1/brief_"))
	assert.True(t, strings.HasSuffix(second.Path, ".txt"))
	assert.Equal(t, "brief.txt", second.OriginalName)
	assert.False(t, IsImage(second.ContentType))
}

func TestSaveRejectsEmptyAndCleansNames(t *testing.T) {
	s := New(afero.NewMemMapFs(), "/media/")

	_, err := s.Save("x", "empty.txt", strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	saved, err := s.Save("x", "../../etc/my file.txt", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "x/my_file.txt", saved.Path)
}

func TestDelete(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := New(fs, "/media/")
	saved, err := s.Save("x", "a.txt", strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, s.Delete(saved.Path))
	exists, _ := afero.Exists(fs, saved.Path)
	assert.False(t, exists)
	assert.NoError(t, s.Delete(saved.Path))
	assert.NoError(t, s.Delete(""))
	assert.Equal(t, "", s.URL(""))
}

func TestHTTPFileSystemHidesDirectories(t *testing.T) {
	s := New(afero.NewBasePathFs(afero.NewMemMapFs(), "/"), "/media/")
	_, err := s.Save("job_attachments/j1", "brief.txt", strings.NewReader("brief"))
	require.NoError(t, err)

	files := s.HTTPFileSystem()
	f, err := files.Open("/job_attachments/j1/brief.txt")
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "brief", string(content))
	require.NoError(t, f.Close())

	for _, dir := range []string{"/", "/job_attachments", "/job_attachments/j1"} {
		_, err := files.Open(dir)
		assert.ErrorIs(t, err, os.ErrNotExist, dir)
	}
}
