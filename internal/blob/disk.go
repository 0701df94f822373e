package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// URLPath is the route prefix the disk store's files are served under.
const URLPath = "/uploads"

// DiskStore writes images under a local directory served at URLPath.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore creates the directory if needed. baseURL may be empty, in which
// case references are host-relative ("/uploads/...").
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &DiskStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir is the directory files are written to.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Put(_ context.Context, ext, _ string, data []byte) (string, error) {
	key := NewKey(ext)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating blob dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing blob: %w", err)
	}
	return s.baseURL + URLPath + "/" + key, nil
}

func (s *DiskStore) Delete(_ context.Context, ref string) error {
	key, ok := strings.CutPrefix(ref, s.baseURL+URLPath+"/")
	if !ok || strings.Contains(key, "..") {
		return fmt.Errorf("blob reference %q is not managed by this store", ref)
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob: %w", err)
	}
	return nil
}
