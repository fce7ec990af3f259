// Package filestore persists uploaded item files under a folder hierarchy
// rooted at a fixed top-level folder, either on Google Drive or on local disk.
package filestore

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrRemoteStorage wraps every failure to search, create, upload or remove
// in the underlying store.
var ErrRemoteStorage = errors.New("remote storage failure")

// File is a stored file.
type File struct {
	ID   string
	Link string
}

// Store is a hierarchical file store.
//
// Folder segments are relative to the store's root folder. A failure midway
// through EnsureFolder leaves the folders created so far in place.
type Store interface {
	// EnsureFolder walks segments from the root, creating missing folders,
	// and returns the handle of the last one.
	EnsureFolder(ctx context.Context, segments []string) (string, error)
	// Upload stores r as name inside the folder and returns its durable link.
	Upload(ctx context.Context, folder, name string, r io.Reader, mimeType string) (File, error)
	// Remove deletes the file behind link. A file that no longer exists is not an error.
	Remove(ctx context.Context, link string) error
	// RemoveFolder deletes the folder at segments if no files remain anywhere
	// beneath it. A missing folder is not an error.
	RemoveFolder(ctx context.Context, segments []string) error
}

// Save ensures the folder at segments exists and uploads r into it.
func Save(ctx context.Context, s Store, segments []string, name string, r io.Reader, mimeType string) (File, error) {
	folder, err := s.EnsureFolder(ctx, segments)
	if err != nil {
		return File{}, err
	}
	return s.Upload(ctx, folder, SanitizeFilename(name), r, mimeType)
}

// Counting wraps a Store and counts the calls made through it.
type Counting struct {
	Store

	mu      sync.Mutex
	uploads int
	removes int
	folders int
}

// NewCounting returns a counting wrapper around s.
func NewCounting(s Store) *Counting {
	return &Counting{Store: s}
}

func (c *Counting) EnsureFolder(ctx context.Context, segments []string) (string, error) {
	c.mu.Lock()
	c.folders++
	c.mu.Unlock()
	return c.Store.EnsureFolder(ctx, segments)
}

func (c *Counting) Upload(ctx context.Context, folder, name string, r io.Reader, mimeType string) (File, error) {
	c.mu.Lock()
	c.uploads++
	c.mu.Unlock()
	return c.Store.Upload(ctx, folder, name, r, mimeType)
}

func (c *Counting) Remove(ctx context.Context, link string) error {
	c.mu.Lock()
	c.removes++
	c.mu.Unlock()
	return c.Store.Remove(ctx, link)
}

// Counts returns how many EnsureFolder, Upload and Remove calls were made.
func (c *Counting) Counts() (folders, uploads, removes int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.folders, c.uploads, c.removes
}
