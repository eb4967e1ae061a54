package summarizer

import (
	"fmt"
	"path"
	"strings"

	"github.com/driveview/driveview/pkg/models"
)

var mimeLabels = map[string]string{
	"application/pdf":    "PDF document",
	"application/msword": "Word document",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "Word document",
	"application/vnd.ms-excel":                                                  "Excel spreadsheet",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "Excel spreadsheet",
	"application/vnd.ms-powerpoint":                                             "PowerPoint presentation",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "PowerPoint presentation",
	"application/zip":                          "ZIP archive",
	"application/x-zip-compressed":             "ZIP archive",
	"application/vnd.google-apps.document":     "Google Docs document",
	"application/vnd.google-apps.spreadsheet":  "Google Sheets spreadsheet",
	"application/vnd.google-apps.presentation": "Google Slides presentation",
	"application/vnd.google-apps.drawing":      "Google Drawings file",
	"application/vnd.google-apps.form":         "Google Forms form",
	models.MimeTypeFolder:                      "Folder",
}

var archiveTypes = map[string]bool{
	"application/gzip":             true,
	"application/x-tar":            true,
	"application/x-7z-compressed":  true,
	"application/vnd.rar":          true,
	"application/x-rar-compressed": true,
}

// SummarizeMetadata describes a file from its type, size and name without
// reading it, e.g. "PNG image file (2.0 MB) named image.png.". The size is
// left out when it isn't known.
func SummarizeMetadata(entry *models.FileEntry) string {
	label := Label(entry.Name, entry.MimeType)
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		name = "(untitled)"
	}
	if entry.Size > 0 {
		return fmt.Sprintf("%s (%s) named %s.", label, FormatSize(entry.Size), name)
	}
	return fmt.Sprintf("%s named %s.", label, name)
}

// Label names the kind of file, e.g. "PNG image file" or "PDF document".
func Label(name, mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	ext := strings.ToUpper(strings.TrimPrefix(path.Ext(name), "."))

	if label, ok := mimeLabels[mt]; ok {
		return label
	}
	switch {
	case strings.HasPrefix(mt, "image/"):
		if ext != "" {
			return ext + " image file"
		}
		return "Image file"
	case strings.HasPrefix(mt, "video/"):
		return "Video file"
	case strings.HasPrefix(mt, "audio/"):
		return "Audio file"
	case archiveTypes[mt]:
		if ext != "" {
			return ext + " archive"
		}
		return "Archive"
	}
	if ext != "" {
		return ext + " file"
	}
	return "File"
}

var sizeUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// FormatSize renders a byte count with 1024-based units and one decimal
// place: 1048576 is "1.0 MB", 512000 is "500.0 KB". Counts under 1 KB are
// given in bytes.
func FormatSize(size int64) string {
	if size < 1024 {
		if size == 1 {
			return "1 byte"
		}
		return fmt.Sprintf("%d bytes", size)
	}
	value := float64(size) / 1024
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
