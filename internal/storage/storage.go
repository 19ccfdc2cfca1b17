package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const sniffLen = 3072

var ErrEmptyFile = errors.New("empty file")

type SavedFile struct {
	Path         string
	OriginalName string
	ContentType  string
	Size         int64
}

// Storage keeps uploaded files under relative paths of a filesystem root.
type Storage struct {
	fs      afero.Fs
	baseURL string
}

func New(fs afero.Fs, baseURL string) *Storage {
	return &Storage{fs: fs, baseURL: baseURL}
}

func NewLocal(root, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), baseURL), nil
}

// Save writes r into dir using a cleaned form of originalName. An existing
// file with the same name is never overwritten.
func (s *Storage) Save(dir, originalName string, r io.Reader) (SavedFile, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return SavedFile{}, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return SavedFile{}, ErrEmptyFile
	}
	header = header[:n]

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return SavedFile{}, fmt.Errorf("create dir: %w", err)
	}
	name := cleanName(originalName)
	target := path.Join(dir, name)
	if exists, _ := afero.Exists(s.fs, target); exists {
		ext := path.Ext(name)
		target = path.Join(dir, fmt.Sprintf("%s_%s%s", strings.TrimSuffix(name, ext), uuid.NewString()[:8], ext))
	}

	file, err := s.fs.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(file, io.MultiReader(bytes.NewReader(header), r))
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(target)
		return SavedFile{}, fmt.Errorf("write file: %w", err)
	}

	return SavedFile{
		Path:         target,
		OriginalName: originalName,
		ContentType:  mimetype.Detect(header).String(),
		Size:         written,
	}, nil
}

func (s *Storage) Delete(p string) error {
	if p == "" {
		return nil
	}
	if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Storage) Open(p string) (afero.File, error) {
	return s.fs.Open(p)
}

// URL returns the public URL of a stored path, or "" for an empty path.
func (s *Storage) URL(p string) string {
	if p == "" {
		return ""
	}
	return s.baseURL + strings.TrimPrefix(p, "/")
}

// HTTPFileSystem serves stored files. Directories are reported as missing
// so media folders cannot be listed.
func (s *Storage) HTTPFileSystem() http.FileSystem {
	return filesOnly{afero.NewHttpFs(s.fs)}
}

type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	result := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r == '/', r == '\x00', r < 0x20:
			continue
		case r == ' ':
			result = append(result, '_')
		default:
			result = append(result, r)
		}
	}
	cleaned := strings.Trim(string(result), ".")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// IsImage reports whether a sniffed content type is an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
