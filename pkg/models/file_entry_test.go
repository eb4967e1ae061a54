package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFileEntry_Fingerprint(t *testing.T) {
	t.Parallel()
	modified := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	entry := &FileEntry{ID: "f1", Name: "notes.txt", MimeType: "text/plain", Size: 1200, ModifiedTime: modified, MD5Checksum: "abc"}

	t.Run("stable for unchanged entries", func(t *testing.T) {
		clone := *entry
		assert.Equal(t, entry.Fingerprint(), clone.Fingerprint())
		assert.Len(t, entry.Fingerprint(), 64)
	})

	t.Run("changes with size", func(t *testing.T) {
		changed := *entry
		changed.Size = 1300
		assert.NotEqual(t, entry.Fingerprint(), changed.Fingerprint())
	})

	t.Run("changes with modified time", func(t *testing.T) {
		changed := *entry
		changed.ModifiedTime = modified.Add(time.Second)
		assert.NotEqual(t, entry.Fingerprint(), changed.Fingerprint())
	})

	t.Run("ignores the name", func(t *testing.T) {
		renamed := *entry
		renamed.Name = "renamed.txt"
		assert.Equal(t, entry.Fingerprint(), renamed.Fingerprint())
	})

	t.Run("same instant in another zone", func(t *testing.T) {
		zoned := *entry
		zoned.ModifiedTime = modified.In(time.FixedZone("X", 3600))
		assert.Equal(t, entry.Fingerprint(), zoned.Fingerprint())
	})
}

func TestFileEntry_Type(t *testing.T) {
	t.Parallel()
	assert.Equal(t, EntryTypeFolder, (&FileEntry{IsFolder: true}).Type())
	assert.Equal(t, EntryTypeFile, (&FileEntry{}).Type())
}
