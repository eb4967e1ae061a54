package summarizer

import (
	"path"
	"strings"
)

type FileType int

const (
	FileTypeOther FileType = iota
	FileTypeText
	FileTypePDF
	FileTypeScannedDoc
	FileTypePhoto
	FileTypeGoogleDoc
)

const MimeTypeGoogleDoc = "application/vnd.google-apps.document"

var textExtensions = map[string]bool{
	".txt": true, ".md": true, ".csv": true, ".json": true, ".xml": true,
	".html": true, ".htm": true, ".log": true,
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".tiff": true, ".bmp": true,
}

var scanExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".tiff": true,
}

func (t FileType) String() string {
	switch t {
	case FileTypeText:
		return "text"
	case FileTypePDF:
		return "pdf"
	case FileTypeScannedDoc:
		return "scanned_doc"
	case FileTypePhoto:
		return "photo"
	case FileTypeGoogleDoc:
		return "google_doc"
	default:
		return "other"
	}
}

// Classify decides how a file should be treated from its name and declared
// MIME type. The MIME type wins when it's conclusive, otherwise the
// extension decides.
func Classify(name, mimeType string) FileType {
	ext := strings.ToLower(path.Ext(name))
	mt := strings.ToLower(mimeType)

	if mt == MimeTypeGoogleDoc {
		return FileTypeGoogleDoc
	}
	if mt != "" {
		switch {
		case strings.Contains(mt, "pdf"):
			return FileTypePDF
		case strings.Contains(mt, "text") && textExtensions[ext]:
			return FileTypeText
		case strings.Contains(mt, "image"):
			if scanExtensions[ext] {
				return FileTypeScannedDoc
			}
			return FileTypePhoto
		}
	}

	switch {
	case ext == ".pdf":
		return FileTypePDF
	case textExtensions[ext]:
		return FileTypeText
	case imageExtensions[ext]:
		if scanExtensions[ext] {
			return FileTypeScannedDoc
		}
		return FileTypePhoto
	}
	return FileTypeOther
}

// IsContentSummarizable reports whether the file's own text can be fed to a
// Backend. Everything else gets a metadata summary.
func IsContentSummarizable(t FileType) bool {
	return t == FileTypeText || t == FileTypeGoogleDoc
}
