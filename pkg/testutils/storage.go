// Package testutils holds test doubles shared by the handler and pipeline
// tests.
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var baseTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// MemStorage is an in-memory storage.Storage. A child can be linked under
// several folders, which makes it possible to build cycles and shared files.
type MemStorage struct {
	mu            sync.Mutex
	entries       map[string]*models.FileEntry
	children      map[string][]string
	content       map[string][]byte
	listErrors    map[string]error
	contentErrors map[string]error
	listCalls     map[string]int
	contentCalls  map[string]int
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		entries:       map[string]*models.FileEntry{},
		children:      map[string][]string{},
		content:       map[string][]byte{},
		listErrors:    map[string]error{},
		contentErrors: map[string]error{},
		listCalls:     map[string]int{},
		contentCalls:  map[string]int{},
	}
}

// AddFolder creates a folder under parentID. An empty parentID creates a
// root.
func (m *MemStorage) AddFolder(parentID, id, name string) *models.FileEntry {
	return m.add(&models.FileEntry{
		ID:           id,
		Name:         name,
		MimeType:     models.MimeTypeFolder,
		ParentID:     parentID,
		IsFolder:     true,
		ViewLink:     "https://drive.example.com/folders/" + id,
		ModifiedTime: baseTime,
	})
}

// AddFile creates a file whose size is the length of content.
func (m *MemStorage) AddFile(parentID, id, name, mimeType string, content []byte) *models.FileEntry {
	entry := m.AddFileWithSize(parentID, id, name, mimeType, int64(len(content)))
	m.mu.Lock()
	m.content[id] = content
	m.mu.Unlock()
	return entry
}

// AddFileWithSize creates a file with no content, only a reported size.
func (m *MemStorage) AddFileWithSize(parentID, id, name, mimeType string, size int64) *models.FileEntry {
	return m.add(&models.FileEntry{
		ID:           id,
		Name:         name,
		MimeType:     mimeType,
		Size:         size,
		ParentID:     parentID,
		ViewLink:     "https://drive.example.com/file/" + id,
		ModifiedTime: baseTime,
	})
}

// Link lists an existing entry under another folder as well.
func (m *MemStorage) Link(parentID, childID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.children[parentID] = append(m.children[parentID], childID)
}

// UpdateContent replaces a file's content and bumps its modified time, which
// changes its fingerprint.
func (m *MemStorage) UpdateContent(id string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.entries[id]
	entry.Size = int64(len(content))
	entry.ModifiedTime = entry.ModifiedTime.Add(time.Minute)
	m.content[id] = content
}

func (m *MemStorage) FailListing(folderID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErrors[folderID] = err
}

func (m *MemStorage) FailContent(fileID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentErrors[fileID] = err
}

func (m *MemStorage) ListCalls(folderID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls[folderID]
}

func (m *MemStorage) ContentCalls(fileID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contentCalls[fileID]
}

func (m *MemStorage) GetFolder(_ context.Context, folderID string) (*models.FileEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[folderID]
	if !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "folder %s", folderID)
	}
	if !entry.IsFolder {
		return nil, storage.NotAFolderError(folderID)
	}
	e := *entry
	return &e, nil
}

func (m *MemStorage) ListChildren(ctx context.Context, folderID string) ([]*models.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls[folderID]++
	if err := m.listErrors[folderID]; err != nil {
		return nil, err
	}
	if _, ok := m.entries[folderID]; !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "folder %s", folderID)
	}
	children := make([]*models.FileEntry, 0, len(m.children[folderID]))
	for _, id := range m.children[folderID] {
		e := *m.entries[id]
		e.ParentID = folderID
		children = append(children, &e)
	}
	return children, nil
}

func (m *MemStorage) GetFileContent(ctx context.Context, entry *models.FileEntry, maxBytes int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentCalls[entry.ID]++
	if err := m.contentErrors[entry.ID]; err != nil {
		return nil, err
	}
	data, ok := m.content[entry.ID]
	if !ok {
		return nil, errors.Wrapf(storage.ErrNotFound, "file %s", entry.ID)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.Wrapf(storage.ErrTooLarge, "%d bytes", len(data))
	}
	return append([]byte(nil), data...), nil
}

func (m *MemStorage) add(entry *models.FileEntry) *models.FileEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	if entry.ParentID != "" {
		m.children[entry.ParentID] = append(m.children[entry.ParentID], entry.ID)
	}
	e := *entry
	return &e
}

// MemOpener hands out the same MemStorage to every request.
type MemOpener struct {
	Storage      *MemStorage
	NeedsAuth    bool
	OpenedWithTS bool
}

func (o *MemOpener) RequiresAuthorization() bool {
	return o.NeedsAuth
}

func (o *MemOpener) Open(_ context.Context, ts oauth2.TokenSource) (storage.Storage, error) {
	if ts != nil {
		o.OpenedWithTS = true
	}
	return o.Storage, nil
}
