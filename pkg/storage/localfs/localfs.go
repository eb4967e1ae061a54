// Package localfs implements storage.Storage on a directory tree. Folder and
// file ids are slash separated paths relative to the root; the root itself
// is "" or ".".
package localfs

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// RootID is the id of the root directory.
const RootID = "."

type Storage struct {
	root string
}

// New resolves root to an absolute path with symlinks evaluated.
func New(root string) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", root)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", root)
	}
	return &Storage{root: resolved}, nil
}

// Opener returns the same Storage for every request.
func (s *Storage) Opener() storage.Opener {
	return opener{s}
}

type opener struct {
	s *Storage
}

func (o opener) RequiresAuthorization() bool {
	return false
}

func (o opener) Open(_ context.Context, _ oauth2.TokenSource) (storage.Storage, error) {
	return o.s, nil
}

func (s *Storage) GetFolder(_ context.Context, folderID string) (*models.FileEntry, error) {
	id, realPath, err := s.resolve(folderID)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(realPath)
	if err != nil {
		return nil, translateError(err, folderID)
	}
	if !info.IsDir() {
		return nil, storage.NotAFolderError(folderID)
	}
	entry := s.toEntry(id, realPath, info)
	if id == RootID {
		entry.Name = filepath.Base(s.root)
	}
	return entry, nil
}

func (s *Storage) ListChildren(ctx context.Context, folderID string) ([]*models.FileEntry, error) {
	id, realPath, err := s.resolve(folderID)
	if err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(realPath)
	if err != nil {
		return nil, translateError(err, folderID)
	}

	entries := make([]*models.FileEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}
		name := de.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		childPath := filepath.Join(realPath, name)
		// Stat follows symlinks; broken ones are left out.
		info, err := os.Stat(childPath)
		if err != nil {
			continue
		}
		entry := s.toEntry(path.Join(id, name), childPath, info)
		entry.ParentID = id
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Storage) GetFileContent(_ context.Context, entry *models.FileEntry, maxBytes int64) ([]byte, error) {
	_, realPath, err := s.resolve(entry.ID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(realPath)
	if err != nil {
		return nil, translateError(err, entry.ID)
	}
	defer f.Close()

	r := io.Reader(f)
	if maxBytes > 0 {
		r = io.LimitReader(f, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", entry.ID)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.Wrapf(storage.ErrTooLarge, "%s is larger than %d bytes", entry.ID, maxBytes)
	}
	return data, nil
}

// resolve cleans an id and maps it to a real path. Ids that resolve outside
// the root, directly or through a symlink, are reported as not found.
func (s *Storage) resolve(id string) (string, string, error) {
	clean := path.Clean("/" + strings.TrimSpace(id))
	clean = strings.TrimPrefix(clean, "/")
	if clean == "" {
		clean = RootID
	}

	joined := filepath.Join(s.root, filepath.FromSlash(clean))
	realPath, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", "", translateError(err, id)
	}
	if realPath != s.root && !strings.HasPrefix(realPath, s.root+string(filepath.Separator)) {
		return "", "", errors.Wrapf(storage.ErrNotFound, "%s is outside the root", id)
	}
	return clean, realPath, nil
}

func (s *Storage) toEntry(id, realPath string, info os.FileInfo) *models.FileEntry {
	entry := &models.FileEntry{
		ID:           id,
		Name:         info.Name(),
		ModifiedTime: info.ModTime().UTC(),
		ViewLink:     "file://" + filepath.ToSlash(realPath),
	}
	if info.IsDir() {
		entry.IsFolder = true
		entry.MimeType = models.MimeTypeFolder
		return entry
	}
	entry.Size = info.Size()
	entry.MimeType = detectMimeType(realPath)
	return entry
}

func detectMimeType(p string) string {
	mt, err := mimetype.DetectFile(p)
	if err != nil {
		return "application/octet-stream"
	}
	base, _, _ := strings.Cut(mt.String(), ";")
	return base
}

func translateError(err error, id string) error {
	switch {
	case os.IsNotExist(err):
		return errors.Wrap(storage.ErrNotFound, id)
	case os.IsPermission(err):
		return errors.Wrap(storage.ErrPermissionDenied, id)
	}
	return errors.Wrap(err, id)
}
