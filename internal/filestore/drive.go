package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// FolderMIME is the Drive MIME type of folders.
const FolderMIME = "application/vnd.google-apps.folder"

// Drive stores files in Google Drive below a top-level folder in My Drive.
type Drive struct {
	svc  *drive.Service
	root string
}

// NewDrive creates a Drive store using client for all requests. Extra
// options (an endpoint override, for example) are passed to the service.
func NewDrive(ctx context.Context, client *http.Client, root string, opts ...option.ClientOption) (*Drive, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating drive service: %w", err)
	}
	return &Drive{svc: svc, root: root}, nil
}

// quote escapes a value for use inside a single-quoted Drive query string.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

// findFolder returns the ID of the folder called name inside parent, or "".
func (d *Drive) findFolder(ctx context.Context, parent, name string) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and '%s' in parents and trashed = false",
		quote(name), FolderMIME, quote(parent))
	list, err := d.svc.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: searching folder %q: %w", ErrRemoteStorage, name, err)
	}
	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].Id, nil
}

// EnsureFolder implements Store.
func (d *Drive) EnsureFolder(ctx context.Context, segments []string) (string, error) {
	parent := "root"
	for _, name := range append([]string{d.root}, segments...) {
		id, err := d.findFolder(ctx, parent, name)
		if err != nil {
			return "", err
		}
		if id == "" {
			f, err := d.svc.Files.Create(&drive.File{
				Name:     name,
				MimeType: FolderMIME,
				Parents:  []string{parent},
			}).Fields("id").Context(ctx).Do()
			if err != nil {
				return "", fmt.Errorf("%w: creating folder %q: %w", ErrRemoteStorage, name, err)
			}
			id = f.Id
		}
		parent = id
	}
	return parent, nil
}

// Upload implements Store.
func (d *Drive) Upload(ctx context.Context, folder, name string, r io.Reader, mimeType string) (File, error) {
	meta := &drive.File{Name: name, Parents: []string{folder}, MimeType: mimeType}
	f, err := d.svc.Files.Create(meta).
		Media(r, googleapi.ContentType(mimeType)).
		Fields("id, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return File{}, fmt.Errorf("%w: uploading %q: %w", ErrRemoteStorage, name, err)
	}

	link := f.WebViewLink
	if link == "" {
		link = "https://drive.google.com/file/d/" + f.Id + "/view"
	}
	return File{ID: f.Id, Link: link}, nil
}

// FileIDFromLink extracts the Drive file ID from a web view link.
func FileIDFromLink(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("parsing link: %w", err)
	}
	if id := u.Query().Get("id"); id != "" {
		return id, nil
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "d" && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("no file id in link %q", link)
}

func isNotFound(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusNotFound
}

// Remove implements Store.
func (d *Drive) Remove(ctx context.Context, link string) error {
	id, err := FileIDFromLink(link)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRemoteStorage, err)
	}
	if err := d.svc.Files.Delete(id).Context(ctx).Do(); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: deleting %s: %w", ErrRemoteStorage, id, err)
	}
	return nil
}

// RemoveFolder implements Store.
func (d *Drive) RemoveFolder(ctx context.Context, segments []string) error {
	if len(segments) == 0 {
		return fmt.Errorf("%w: refusing to remove the root folder", ErrRemoteStorage)
	}

	parent := "root"
	for _, name := range append([]string{d.root}, segments...) {
		id, err := d.findFolder(ctx, parent, name)
		if err != nil {
			return err
		}
		if id == "" {
			return nil
		}
		parent = id
	}

	if err := d.checkNoFiles(ctx, parent); err != nil {
		return err
	}
	if err := d.svc.Files.Delete(parent).Context(ctx).Do(); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: deleting folder: %w", ErrRemoteStorage, err)
	}
	return nil
}

// checkNoFiles fails if any non-folder file lives below folder. Every page
// of the listing is checked.
func (d *Drive) checkNoFiles(ctx context.Context, folder string) error {
	q := fmt.Sprintf("'%s' in parents and trashed = false", quote(folder))
	call := d.svc.Files.List().Q(q).PageSize(100).Fields("nextPageToken, files(id, name, mimeType)")

	err := call.Pages(ctx, func(list *drive.FileList) error {
		for _, f := range list.Files {
			if f.MimeType != FolderMIME {
				return fmt.Errorf("%w: folder still holds %q", ErrRemoteStorage, f.Name)
			}
			if err := d.checkNoFiles(ctx, f.Id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrRemoteStorage) {
		return fmt.Errorf("%w: listing folder: %w", ErrRemoteStorage, err)
	}
	return err
}
