package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const dirSuffix = ".json.zst"

// DirStore keeps artifacts as files named <kind>-<version>.json.zst in one directory.
type DirStore struct {
	dir string
}

// NewDirStore returns a store rooted at dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

func (d *DirStore) path(kind, version string) string {
	return filepath.Join(d.dir, kind+"-"+version+dirSuffix)
}

// Put writes blob; an existing file for the same version is an error.
func (d *DirStore) Put(_ context.Context, kind, version string, blob []byte) error {
	f, err := os.OpenFile(d.path(kind, version), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s %s", ErrExists, kind, version)
		}
		return fmt.Errorf("create artifact: %w", err)
	}
	if _, err := f.Write(blob); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write artifact: %w", err)
	}
	return f.Close()
}

// Versions lists stored versions of kind in ascending order.
func (d *DirStore) Versions(_ context.Context, kind string) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("read artifact dir: %w", err)
	}
	prefix := kind + "-"
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, dirSuffix) {
			continue
		}
		out = append(out, strings.TrimSuffix(strings.TrimPrefix(name, prefix), dirSuffix))
	}
	sort.Strings(out)
	return out, nil
}

// Latest returns the greatest version of kind.
func (d *DirStore) Latest(ctx context.Context, kind string) (string, []byte, error) {
	versions, err := d.Versions(ctx, kind)
	if err != nil {
		return "", nil, err
	}
	if len(versions) == 0 {
		return "", nil, fmt.Errorf("%w: %s", ErrNotFound, kind)
	}
	v := versions[len(versions)-1]
	blob, err := os.ReadFile(d.path(kind, v))
	if err != nil {
		return "", nil, fmt.Errorf("read artifact: %w", err)
	}
	return v, blob, nil
}
