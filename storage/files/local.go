package files

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/lectern/core/lecture"
)

// AudioStore stages recordings in a local directory.
type AudioStore struct {
	dir string
}

var _ lecture.AudioStore = (*AudioStore)(nil)

// NewAudioStore creates dir if needed.
func NewAudioStore(dir string) (*AudioStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating upload directory")
	}
	return &AudioStore{dir: dir}, nil
}

// Stage writes the recording under a fresh name. The client filename only contributes
// its extension, so two concurrent uploads never share a file.
func (s *AudioStore) Stage(ctx context.Context, a lecture.Audio) (string, error) {
	key := uuid.NewString() + sanitizeExt(a.Filename)
	f, err := os.OpenFile(s.path(key), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", errors.Wrap(err, "creating staged file")
	}

	_, err = io.Copy(f, readerWithContext{ctx: ctx, r: a.Body})
	if cErr := f.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		_ = os.Remove(s.path(key))
		return "", errors.Wrap(err, "writing staged file")
	}
	return key, nil
}

func (s *AudioStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(key))
	if err != nil {
		return nil, errors.Wrap(err, "opening staged file")
	}
	return f, nil
}

// Remove is a no-op for a key already removed.
func (s *AudioStore) Remove(_ context.Context, key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing staged file")
	}
	return nil
}

func (s *AudioStore) path(key string) string {
	return filepath.Join(s.dir, filepath.Base(key))
}

func sanitizeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}

// readerWithContext stops copying once ctx is done.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
