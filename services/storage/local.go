package storagesvc

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/evalink/core"
)

var ErrInvalidName = errors.New("invalid file name")

// cleanName rejects names that would escape the storage root.
func cleanName(name string) (string, error) {
	name = path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))[1:]
	if name == "" || strings.Contains(name, "/") {
		return "", ErrInvalidName
	}
	return name, nil
}

type localStorage struct {
	dir       string
	urlPrefix string
}

var _ core.FileStorage = (*localStorage)(nil)

// NewLocalStorage stores files in dir, served under urlPrefix.
func NewLocalStorage(dir, urlPrefix string) (core.FileStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating upload dir")
	}
	return &localStorage{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (s *localStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	if err = ctx.Err(); err != nil {
		return "", err
	}

	fp := filepath.Join(s.dir, name)
	f, err := os.Create(fp)
	if err != nil {
		return "", errors.Wrap(err, "creating file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(fp)
		return "", errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing file")
	}
	return s.urlPrefix + "/" + name, nil
}

func (s *localStorage) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, s.urlPrefix+"/") {
		return nil // not ours
	}
	name, err := cleanName(strings.TrimPrefix(url, s.urlPrefix+"/"))
	if err != nil {
		return err
	}
	if err = os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}

// MemoryStorage keeps files in memory. Used by tests.
type MemoryStorage struct {
	urlPrefix string
	mu        sync.RWMutex
	files     map[string][]byte
}

var _ core.FileStorage = (*MemoryStorage)(nil)

func NewMemoryStorage(urlPrefix string) *MemoryStorage {
	return &MemoryStorage{urlPrefix: strings.TrimSuffix(urlPrefix, "/"), files: make(map[string][]byte)}
}

func (s *MemoryStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	name, err := cleanName(name)
	if err != nil {
		return "", err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return "", errors.Wrap(err, "reading file")
	}

	url := s.urlPrefix + "/" + name
	s.mu.Lock()
	s.files[url] = content
	s.mu.Unlock()
	return url, nil
}

func (s *MemoryStorage) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	delete(s.files, url)
	s.mu.Unlock()
	return nil
}

// Get returns the content stored at url.
func (s *MemoryStorage) Get(url string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[url]
	return content, ok
}
