package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		mimeType string
		expected FileType
	}{
		{"notes.txt", "text/plain", FileTypeText},
		{"README.md", "text/markdown", FileTypeText},
		{"data.json", "application/json", FileTypeText},
		{"page.html", "text/html", FileTypeText},
		{"report.pdf", "application/pdf", FileTypePDF},
		{"report.bin", "application/pdf", FileTypePDF},
		{"scan.jpg", "image/jpeg", FileTypeScannedDoc},
		{"scan.TIFF", "image/tiff", FileTypeScannedDoc},
		{"image.png", "image/png", FileTypePhoto},
		{"Meeting notes", MimeTypeGoogleDoc, FileTypeGoogleDoc},
		{"script.sh", "text/x-sh", FileTypeOther},
		{"archive.zip", "application/zip", FileTypeOther},
		{"legacy.log", "", FileTypeText},
		{"legacy.gif", "", FileTypePhoto},
		{"legacy.pdf", "", FileTypePDF},
		{"noext", "", FileTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, Classify(tt.name, tt.mimeType), "got %s", Classify(tt.name, tt.mimeType))
		})
	}
}

func TestIsContentSummarizable(t *testing.T) {
	t.Parallel()

	assert.True(t, IsContentSummarizable(FileTypeText))
	assert.True(t, IsContentSummarizable(FileTypeGoogleDoc))
	assert.False(t, IsContentSummarizable(FileTypePDF))
	assert.False(t, IsContentSummarizable(FileTypePhoto))
	assert.False(t, IsContentSummarizable(FileTypeOther))
}
