package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

const (
	EntryTypeFile   = "file"
	EntryTypeFolder = "folder"
)

// MimeTypeFolder is the MIME type the storage service reports for folders.
const MimeTypeFolder = "application/vnd.google-apps.folder"

// FileEntry is a single item in a storage folder. It's request-scoped and
// identified by ID.
type FileEntry struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	ParentID     string    `json:"parentId,omitempty"`
	IsFolder     bool      `json:"-"`
	ViewLink     string    `json:"webViewLink"`
	ModifiedTime time.Time `json:"modifiedTime,omitempty"`
	MD5Checksum  string    `json:"-"`
}

// Type returns EntryTypeFolder or EntryTypeFile.
func (e *FileEntry) Type() string {
	if e.IsFolder {
		return EntryTypeFolder
	}
	return EntryTypeFile
}

// Fingerprint returns a stable hash of the attributes that change when the
// file content changes. A cached summary is only valid while the fingerprint
// of the observed file matches the stored one.
func (e *FileEntry) Fingerprint() string {
	parts := []string{
		strconv.FormatInt(e.Size, 10),
		e.ModifiedTime.UTC().Format(time.RFC3339Nano),
		e.MD5Checksum,
		e.MimeType,
	}
	hash := sha256.Sum256([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(hash[:])
}
