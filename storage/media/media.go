// Package media stores uploaded files.
package media

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Store saves uploaded files and returns the URL they are served from.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader) (url string, err error)
	Delete(ctx context.Context, url string) error
}

// LocalStore keeps files in a local directory served under baseURL.
// Stored names are random so uploads never overwrite each other.
type LocalStore struct {
	dir     string
	baseURL string
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media dir")
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fname := uuid.New().String() + strings.ToLower(filepath.Ext(name))
	f, err := os.OpenFile(filepath.Join(s.dir, fname), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", errors.Wrap(err, "creating media file")
	}
	if _, err = io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "writing media file")
	}
	if err = f.Close(); err != nil {
		return "", errors.Wrap(err, "closing media file")
	}
	return s.baseURL + "/" + fname, nil
}

// Delete removes the file behind url. Unknown files are ignored.
func (s *LocalStore) Delete(_ context.Context, url string) error {
	fname := path.Base(url)
	if fname == "." || fname == "/" || !strings.HasPrefix(url, s.baseURL+"/") {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, fname)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing media file")
	}
	return nil
}
