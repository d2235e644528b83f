// Package blob stores uploaded files on the local filesystem. It is
// the single-node fallback when no object storage is configured.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

type FSStore struct {
	dir     string
	baseURL string
}

func NewFSStore(dir, baseURL string) *FSStore {
	return &FSStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *FSStore) Upload(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create blob dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return s.baseURL + "/" + name, nil
}
