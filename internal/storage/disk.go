package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Compile-time check that DiskStore implements ObjectStore.
var _ ObjectStore = (*DiskStore)(nil)

// DiskStore implements ObjectStore on the local filesystem. It is meant for
// development setups without S3; objects are served by the HTTP server
// under baseURL.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates a DiskStore rooted at root. Keys resolve to public
// URLs under baseURL; an empty baseURL means no public URL can be resolved.
func NewDiskStore(root, baseURL string) (*DiskStore, error) {
	if root == "" {
		root = filepath.Join(os.TempDir(), "videoupload-objects")
	}

	if err := os.MkdirAll(root, 0750); err != nil {
		return nil, fmt.Errorf("create object directory: %w", err)
	}

	return &DiskStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root returns the directory objects are written to.
func (s *DiskStore) Root() string {
	return s.root
}

// Put writes body to the file backing key.
func (s *DiskStore) Put(ctx context.Context, key string, body io.Reader, _ int64, _ string, opts PutOptions) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create object directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if opts.NoOverwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	f, err := os.OpenFile(path, flags, 0640) // #nosec G304 - path is confined to the store root
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrObjectExists, key)
		}
		return fmt.Errorf("open object file: %w", err)
	}

	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("write object file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close object file: %w", err)
	}

	return nil
}

// PublicURL returns baseURL joined with the escaped key.
func (s *DiskStore) PublicURL(_ context.Context, key string) (string, bool) {
	if s.baseURL == "" || key == "" {
		return "", false
	}
	return s.baseURL + "/" + escapeKey(key), true
}

// Delete removes the object file. Deleting a missing object is not an error.
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path, err := s.objectPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove object file: %w", err)
	}
	return nil
}

// Handler serves stored objects read-only, keyed by the request path.
// Directories are never listed and answer 404 like missing objects.
// Served objects carry cacheControl when it is set.
func (s *DiskStore) Handler(cacheControl string) http.Handler {
	dir := http.Dir(s.root)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, info, err := openObject(dir, r.URL.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		defer func() { _ = f.Close() }()

		if cacheControl != "" {
			w.Header().Set("Cache-Control", cacheControl)
		}
		http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	})
}

// openObject opens the regular file at name. Directories report
// fs.ErrNotExist.
func openObject(dir http.FileSystem, name string) (http.File, fs.FileInfo, error) {
	f, err := dir.Open(name)
	if err != nil {
		return nil, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%s is a directory: %w", name, fs.ErrNotExist)
	}
	return f, info, nil
}

// objectPath maps key to a path inside the store root.
func (s *DiskStore) objectPath(key string) (string, error) {
	if key == "" {
		return "", ErrInvalidKey
	}

	path := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return path, nil
}

// escapeKey path-escapes every segment of key, keeping the separators.
func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
