package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/totegamma/portfolio/internal/domain"
)

var tracer = otel.Tracer("storage")

// Local stores objects as flat files under a single directory and serves
// them below publicBaseURL + "/files/".
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, publicBaseURL string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create storage directory")
	}
	return &Local{
		root:    root,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func (l *Local) Root() string {
	return l.root
}

func (l *Local) URL(key string) string {
	return l.baseURL + "/files/" + key
}

func (l *Local) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, span := tracer.Start(ctx, "Storage.Local.Put")
	defer span.End()

	path, err := l.path(key)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(l.root, ".upload-*")
	if err != nil {
		return "", errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return "", errors.Wrap(err, "write object")
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(err, "close object")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", errors.Wrap(err, "commit object")
	}

	return l.URL(key), nil
}

// Delete removes an object. Missing objects are not an error.
func (l *Local) Delete(ctx context.Context, key string) error {
	_, span := tracer.Start(ctx, "Storage.Local.Delete")
	defer span.End()

	path, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "delete object")
	}
	return nil
}

func (l *Local) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", domain.ValidationError{Field: "key", Reason: "invalid object key"}
	}
	return filepath.Join(l.root, key), nil
}
