// Package storage provides unified read access to event log sources:
// local files, HTTP(S) URLs and S3 objects. Writing is supported for
// local paths only; analysis outputs stay on disk.
package storage

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	perrors "github.com/procsight/procsight/pkg/errors"
)

// Source provides read access to one storage backend.
type Source interface {
	// Reader returns a reader for the given path together with the
	// content length when known (-1 otherwise).
	Reader(ctx context.Context, path string) (io.ReadCloser, int64, error)

	// Scheme returns the storage scheme (file, http, s3).
	Scheme() string
}

// Open returns the source for a path and the path rewritten for that
// source. S3 paths take the form s3://bucket/key.
func Open(path string) (Source, string, error) {
	u, err := url.Parse(path)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// Local file (or Windows drive letter)
		return &LocalSource{}, path, nil
	}

	switch u.Scheme {
	case "file":
		return &LocalSource{}, u.Path, nil
	case "http", "https":
		return &HTTPSource{}, path, nil
	case "s3":
		return &S3Source{bucket: u.Host}, strings.TrimPrefix(u.Path, "/"), nil
	default:
		return nil, "", perrors.New(perrors.CodeInvalidFormat, "unsupported storage scheme").
			WithContext("scheme", u.Scheme)
	}
}

// Fetch opens a path on whatever backend it lives on.
func Fetch(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	src, rewritten, err := Open(path)
	if err != nil {
		return nil, 0, err
	}
	return src.Reader(ctx, rewritten)
}

// BaseName returns the file name component of any supported path form.
func BaseName(path string) string {
	if u, err := url.Parse(path); err == nil && u.Path != "" {
		return filepath.Base(u.Path)
	}
	return filepath.Base(path)
}

// --- Local ---

// LocalSource reads local files.
type LocalSource struct{}

func (s *LocalSource) Scheme() string { return "file" }

func (s *LocalSource) Reader(_ context.Context, path string) (io.ReadCloser, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, perrors.FileNotFound(path)
		}
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}

	return f, info.Size(), nil
}

// WriteLocal writes data to a local path, creating parent directories.
func WriteLocal(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// --- HTTP ---

// HTTPSource reads HTTP and HTTPS URLs.
type HTTPSource struct{}

func (s *HTTPSource) Scheme() string { return "http" }

func (s *HTTPSource) Reader(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, perrors.ExternalCall("http", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, perrors.New(perrors.CodeExternalCall, "unexpected HTTP status").
			WithContext("status", resp.Status).
			WithContext("url", path)
	}

	return resp.Body, resp.ContentLength, nil
}
