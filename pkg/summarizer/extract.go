package summarizer

import (
	"bytes"
	"strings"

	"github.com/driveview/driveview/pkg/htmlutil"
	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
)

var ErrNotText = errors.New("content is not text")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ExtractText turns downloaded file content into plain text for the
// summarizer. The content is sniffed rather than trusting declaredMime, so a
// binary file with a .txt name is rejected with ErrNotText. HTML is reduced
// to its readable text.
func ExtractText(data []byte, declaredMime string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return "", nil
	}

	detected := mimetype.Detect(data)
	if detected.Is("text/html") || strings.HasPrefix(strings.ToLower(declaredMime), "text/html") {
		text, err := htmlutil.Text(bytes.NewReader(data))
		if err != nil {
			return "", errors.WithStack(err)
		}
		return text, nil
	}

	if !isText(detected) {
		return "", errors.Wrapf(ErrNotText, "detected %s", detected.String())
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

func isText(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
