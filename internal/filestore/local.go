package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Local stores files on disk under Dir/Root. Links have the form
// URLPrefix/Root/segment/.../name and are served by the web layer.
type Local struct {
	Dir       string
	Root      string
	URLPrefix string
}

// NewLocal returns a local store rooted at dir/root.
func NewLocal(dir, root, urlPrefix string) (*Local, error) {
	l := &Local{Dir: dir, Root: SanitizeFilename(root), URLPrefix: strings.TrimRight(urlPrefix, "/")}
	if err := os.MkdirAll(filepath.Join(dir, l.Root), 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating upload dir: %w", ErrRemoteStorage, err)
	}
	return l, nil
}

// FS exposes the upload directory for serving links.
func (l *Local) FS() fs.FS {
	return os.DirFS(l.Dir)
}

// rel returns the slash-separated folder path of segments below Dir.
func (l *Local) rel(segments []string) string {
	return path.Join(append([]string{l.Root}, SanitizeSegments(segments)...)...)
}

// EnsureFolder implements Store. The handle is the folder path relative to Dir.
func (l *Local) EnsureFolder(_ context.Context, segments []string) (string, error) {
	rel := l.rel(segments)
	if err := os.MkdirAll(filepath.Join(l.Dir, filepath.FromSlash(rel)), 0o755); err != nil {
		return "", fmt.Errorf("%w: creating folder %s: %w", ErrRemoteStorage, rel, err)
	}
	return rel, nil
}

// Upload implements Store. An existing file with the same name is never
// overwritten; the new file gets a short unique suffix instead.
func (l *Local) Upload(_ context.Context, folder, name string, r io.Reader, _ string) (File, error) {
	name = SanitizeFilename(name)
	dir := filepath.Join(l.Dir, filepath.FromSlash(folder))

	f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		ext := path.Ext(name)
		name = strings.TrimSuffix(name, ext) + "_" + uuid.NewString()[:8] + ext
		f, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return File{}, fmt.Errorf("%w: creating %s: %w", ErrRemoteStorage, name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return File{}, fmt.Errorf("%w: writing %s: %w", ErrRemoteStorage, name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return File{}, fmt.Errorf("%w: closing %s: %w", ErrRemoteStorage, name, err)
	}

	rel := path.Join(folder, name)
	return File{ID: rel, Link: l.URLPrefix + "/" + rel}, nil
}

// resolve maps a link back to a path below Dir, refusing anything outside it.
func (l *Local) resolve(link string) (string, error) {
	rel := strings.TrimPrefix(link, l.URLPrefix+"/")
	rel = path.Clean("/" + rel)[1:]
	if rel == "" || !strings.HasPrefix(rel, l.Root+"/") {
		return "", fmt.Errorf("link %q is outside the upload folder", link)
	}
	return filepath.Join(l.Dir, filepath.FromSlash(rel)), nil
}

// Remove implements Store.
func (l *Local) Remove(_ context.Context, link string) error {
	p, err := l.resolve(link)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemoteStorage, err)
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: removing %s: %w", ErrRemoteStorage, link, err)
	}
	return nil
}

// RemoveFolder implements Store.
func (l *Local) RemoveFolder(_ context.Context, segments []string) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: refusing to remove the root folder", ErrRemoteStorage)
	}
	dir := filepath.Join(l.Dir, filepath.FromSlash(l.rel(segments)))

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return fmt.Errorf("folder still holds %s", d.Name())
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: removing folder %s: %w", ErrRemoteStorage, dir, err)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: removing folder %s: %w", ErrRemoteStorage, dir, err)
	}
	return nil
}
