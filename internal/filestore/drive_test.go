package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"
)

type fakeFile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Parent   string `json:"-"`
	Content  string `json:"-"`
}

// fakeDrive is an in-memory stand-in for the Drive v3 files endpoints.
type fakeDrive struct {
	mu     sync.Mutex
	files  map[string]*fakeFile
	nextID int
	fail   bool

	// pageSize splits listings into pages when set.
	pageSize int
}

var (
	nameQuery   = regexp.MustCompile(`name = '((?:[^'\\]|\\.)*)'`)
	parentQuery = regexp.MustCompile(`'((?:[^'\\]|\\.)*)' in parents`)
)

func unquote(s string) string {
	return strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
}

func (f *fakeDrive) newID() string {
	f.nextID++
	return fmt.Sprintf("id%d", f.nextID)
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"code":500,"message":"backend error"}}`)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query().Get("q")
		var name string
		if m := nameQuery.FindStringSubmatch(q); m != nil {
			name = unquote(m[1])
		}
		parent := unquote(parentQuery.FindStringSubmatch(q)[1])

		out := []*fakeFile{}
		for _, file := range f.files {
			if file.Parent == parent && (name == "" || file.Name == name) {
				out = append(out, file)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

		resp := map[string]any{}
		if f.pageSize > 0 {
			start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
			end := min(start+f.pageSize, len(out))
			if end < len(out) {
				resp["nextPageToken"] = strconv.Itoa(end)
			}
			out = out[min(start, end):end]
		}
		resp["files"] = out
		json.NewEncoder(w).Encode(resp)

	case http.MethodPost:
		var meta struct {
			Name     string   `json:"name"`
			MimeType string   `json:"mimeType"`
			Parents  []string `json:"parents"`
		}
		var content string

		mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if strings.HasPrefix(mediaType, "multipart/") {
			mr := multipart.NewReader(r.Body, params["boundary"])
			part, _ := mr.NextPart()
			json.NewDecoder(part).Decode(&meta)
			part, _ = mr.NextPart()
			b, _ := io.ReadAll(part)
			content = string(b)
		} else {
			json.NewDecoder(r.Body).Decode(&meta)
		}

		file := &fakeFile{ID: f.newID(), Name: meta.Name, MimeType: meta.MimeType, Parent: meta.Parents[0], Content: content}
		f.files[file.ID] = file
		json.NewEncoder(w).Encode(map[string]string{
			"id":          file.ID,
			"webViewLink": "https://drive.google.com/file/d/" + file.ID + "/view?usp=drivesdk",
		})

	case http.MethodDelete:
		id := path.Base(r.URL.Path)
		if _, ok := f.files[id]; !ok {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":{"code":404,"message":"File not found"}}`)
			return
		}
		f.deleteTree(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

// deleteTree removes id and, like Drive, everything inside it.
func (f *fakeDrive) deleteTree(id string) {
	delete(f.files, id)
	for childID, file := range f.files {
		if file.Parent == id {
			f.deleteTree(childID)
		}
	}
}

func (f *fakeDrive) countNamed(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, file := range f.files {
		if file.Name == name {
			n++
		}
	}
	return n
}

func newTestDrive(t *testing.T) (*Drive, *fakeDrive) {
	t.Helper()
	fake := &fakeDrive{files: map[string]*fakeFile{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	d, err := NewDrive(context.Background(), srv.Client(), "GSE", option.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewDrive: %v", err)
	}
	return d, fake
}

func TestDriveEnsureFolderReusesExisting(t *testing.T) {
	d, fake := newTestDrive(t)
	ctx := context.Background()
	segs := []string{"ThinkPad_2024-01-10", "Product images"}

	first, err := d.EnsureFolder(ctx, segs)
	if err != nil {
		t.Fatalf("EnsureFolder: %v", err)
	}
	second, err := d.EnsureFolder(ctx, segs)
	if err != nil {
		t.Fatalf("EnsureFolder: %v", err)
	}
	if first != second {
		t.Errorf("expected the same folder, got %q and %q", first, second)
	}
	for _, name := range []string{"GSE", "ThinkPad_2024-01-10", "Product images"} {
		if n := fake.countNamed(name); n != 1 {
			t.Errorf("folder %q created %d times", name, n)
		}
	}
}

func TestDriveUploadAndRemove(t *testing.T) {
	d, fake := newTestDrive(t)
	ctx := context.Background()

	f, err := Save(ctx, d, []string{"O'Brien laptop_2024-01-10", "Agreement"}, "deal.pdf", strings.NewReader("%PDF-1.4"), "application/pdf")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(f.Link, "https://drive.google.com/file/d/") {
		t.Errorf("unexpected link %q", f.Link)
	}
	if got := fake.files[f.ID].Content; got != "%PDF-1.4" {
		t.Errorf("uploaded content = %q", got)
	}

	if err := d.Remove(ctx, f.Link); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// A file that is already gone counts as removed.
	if err := d.Remove(ctx, f.Link); err != nil {
		t.Errorf("second Remove: %v", err)
	}

	if err := d.RemoveFolder(ctx, []string{"O'Brien laptop_2024-01-10"}); err != nil {
		t.Fatalf("RemoveFolder: %v", err)
	}
	if n := fake.countNamed("Agreement"); n != 0 {
		t.Errorf("expected empty subfolders to be removed, %d left", n)
	}
	if n := fake.countNamed("GSE"); n != 1 {
		t.Errorf("root folder must stay, found %d", n)
	}
}

func TestDriveRemoveFolderKeepsFiles(t *testing.T) {
	d, _ := newTestDrive(t)
	ctx := context.Background()

	Save(ctx, d, []string{"Busy_2024-01-01", "Product images"}, "a.jpg", strings.NewReader("a"), "image/jpeg")
	if err := d.RemoveFolder(ctx, []string{"Busy_2024-01-01"}); !errors.Is(err, ErrRemoteStorage) {
		t.Errorf("expected ErrRemoteStorage for non-empty folder, got %v", err)
	}
}

func TestDriveRemoveFolderChecksEveryPage(t *testing.T) {
	d, fake := newTestDrive(t)
	fake.pageSize = 1
	ctx := context.Background()

	// The empty folder sorts first, so the file only shows up on page two.
	if _, err := d.EnsureFolder(ctx, []string{"Busy_2024-01-01", "Agreement"}); err != nil {
		t.Fatalf("EnsureFolder: %v", err)
	}
	if _, err := Save(ctx, d, []string{"Busy_2024-01-01", "Product images"}, "a.jpg", strings.NewReader("a"), "image/jpeg"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := d.RemoveFolder(ctx, []string{"Busy_2024-01-01"}); !errors.Is(err, ErrRemoteStorage) {
		t.Errorf("expected ErrRemoteStorage for non-empty folder, got %v", err)
	}
	if n := fake.countNamed("a.jpg"); n != 1 {
		t.Errorf("file must survive, found %d", n)
	}
}

func TestDriveFailureIsRemoteStorageError(t *testing.T) {
	d, fake := newTestDrive(t)
	fake.fail = true

	_, err := d.EnsureFolder(context.Background(), []string{"X"})
	if !errors.Is(err, ErrRemoteStorage) {
		t.Errorf("expected ErrRemoteStorage, got %v", err)
	}
}

func TestFileIDFromLink(t *testing.T) {
	tests := []struct {
		link    string
		want    string
		wantErr bool
	}{
		{"https://drive.google.com/file/d/abc123/view?usp=drivesdk", "abc123", false},
		{"https://drive.google.com/open?id=xyz", "xyz", false},
		{"https://example.com/nothing", "", true},
	}

	for _, tt := range tests {
		got, err := FileIDFromLink(tt.link)
		if (err != nil) != tt.wantErr {
			t.Errorf("FileIDFromLink(%q) error = %v", tt.link, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FileIDFromLink(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}
