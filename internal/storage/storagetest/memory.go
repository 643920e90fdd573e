// Package storagetest provides an in-memory storage.Backend for tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aniladanir/file-relay-service/internal/storage"
)

type Folder struct {
	ID       string
	Name     string
	ParentID string
}

// Backend keeps folders and files in memory. Set FailUpload or FailFind to inject errors.
type Backend struct {
	mu      sync.Mutex
	seq     int
	Folders []Folder
	Files   map[string]storage.File

	FindCalls   int
	CreateCalls int
	UploadCalls int

	removed map[string]bool

	FailFind   error
	FailUpload error
}

func NewBackend() *Backend {
	return &Backend{Files: map[string]storage.File{}, removed: map[string]bool{}}
}

func (b *Backend) FindFolder(_ context.Context, name, parentID string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.FindCalls++
	if b.FailFind != nil {
		return "", false, b.FailFind
	}
	if b.removed[parentID] {
		return "", false, storage.ErrFolderNotFound
	}
	for _, f := range b.Folders {
		if f.Name == name && f.ParentID == parentID {
			return f.ID, true, nil
		}
	}
	return "", false, nil
}

func (b *Backend) CreateFolder(_ context.Context, name, parentID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.CreateCalls++
	if b.removed[parentID] {
		return "", storage.ErrFolderNotFound
	}
	b.seq++
	id := fmt.Sprintf("folder-%d", b.seq)
	b.Folders = append(b.Folders, Folder{ID: id, Name: name, ParentID: parentID})
	return id, nil
}

func (b *Backend) Upload(_ context.Context, file storage.File) (*storage.UploadedFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.UploadCalls++
	if b.FailUpload != nil {
		return nil, b.FailUpload
	}
	if b.removed[file.FolderID] {
		return nil, storage.ErrFolderNotFound
	}
	b.seq++
	id := fmt.Sprintf("file-%d", b.seq)
	b.Files[id] = file
	return &storage.UploadedFile{
		ID:         id,
		Name:       file.Name,
		Size:       int64(len(file.Content)),
		SharedLink: "https://drive.example/file/" + id + "/view",
	}, nil
}

// RemoveFolder deletes a folder as if it was removed outside the service
func (b *Backend) RemoveFolder(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.Folders[:0]
	for _, f := range b.Folders {
		if f.ID != id {
			kept = append(kept, f)
		}
	}
	b.Folders = kept
	b.removed[id] = true
}

// ChildrenOf returns the folders directly below parentID
func (b *Backend) ChildrenOf(parentID string) []Folder {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Folder
	for _, f := range b.Folders {
		if f.ParentID == parentID {
			out = append(out, f)
		}
	}
	return out
}
