package artifacts

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps artifacts as files in Dir. Writes go to a temp file that
// is renamed into place, so readers see either the old or the new content.
type FileStore struct {
	Dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is created
// on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) SaveTimestamp(_ context.Context, ts string) error {
	return s.write(TimestampName, []byte(ts))
}

func (s *FileStore) LoadTimestamp(_ context.Context) (string, bool, error) {
	b, ok, err := s.read(TimestampName)
	if !ok || err != nil {
		return "", ok, err
	}
	ts := strings.TrimSpace(string(b))
	if ts == "" {
		return "", false, nil
	}
	return ts, true, nil
}

func (s *FileStore) SaveImage(_ context.Context, png []byte) error {
	return s.write(ImageName, png)
}

func (s *FileStore) LoadImage(_ context.Context) ([]byte, bool, error) {
	return s.read(ImageName)
}

func (s *FileStore) write(name string, data []byte) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, filepath.Join(s.Dir, name))
}

func (s *FileStore) read(name string) ([]byte, bool, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}
