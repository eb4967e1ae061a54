package storage

import (
	"context"

	"github.com/driveview/driveview/pkg/models"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrNotAFolder       = errors.New("not a folder")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidFolderURL = errors.New("invalid folder URL")
	ErrTooLarge         = errors.New("file is too large to download")
)

// Storage is the read-only view of a file tree that listing and export need.
// Implementations are request-scoped: they carry the caller's credentials.
type Storage interface {
	// GetFolder returns the folder's own entry. It returns ErrNotAFolder
	// (wrapped) if the id names a file.
	GetFolder(ctx context.Context, folderID string) (*models.FileEntry, error)
	// ListChildren returns one level of the folder, in backend order.
	ListChildren(ctx context.Context, folderID string) ([]*models.FileEntry, error)
	// GetFileContent downloads the file, failing with ErrTooLarge if it is
	// bigger than maxBytes.
	GetFileContent(ctx context.Context, entry *models.FileEntry, maxBytes int64) ([]byte, error)
}

// Opener builds a Storage for a single request.
type Opener interface {
	// RequiresAuthorization reports whether Open needs a user token source.
	RequiresAuthorization() bool
	Open(ctx context.Context, ts oauth2.TokenSource) (Storage, error)
}

// NotAFolderError formats the user-facing error for an id that isn't a folder.
func NotAFolderError(id string) error {
	return errors.Wrapf(ErrNotAFolder, "The ID %s is not a folder", id)
}

// Reason is a short lowercase description of a storage error, suitable for
// showing next to the folder it happened on.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "permission denied"
	case errors.Is(err, ErrNotFound):
		return "folder not found"
	default:
		return errors.Cause(err).Error()
	}
}
