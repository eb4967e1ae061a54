package storage

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var bareIDRE = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ParseFolderRef extracts a folder id from a share URL or returns the input
// unchanged if it's already a bare id. Supported forms:
//
//	https://drive.google.com/drive/folders/<id>
//	https://drive.google.com/drive/folders/<id>?usp=sharing
//	https://drive.google.com/open?id=<id>
//	<id>
func ParseFolderRef(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.WithStack(ErrInvalidFolderURL)
	}
	if bareIDRE.MatchString(ref) {
		return ref, nil
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", errors.Wrap(ErrInvalidFolderURL, err.Error())
	}

	var id string
	if strings.Contains(u.Path, "/folders/") {
		segments := strings.Split(strings.TrimRight(u.Path, "/"), "/")
		id = segments[len(segments)-1]
	} else {
		id = u.Query().Get("id")
	}

	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	if id == "" || !bareIDRE.MatchString(id) {
		return "", errors.WithStack(ErrInvalidFolderURL)
	}
	return id, nil
}
