package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/driveview/driveview/pkg/summarizer"
	"github.com/pkg/errors"
)

// TypeSkippedFolder marks the rows listing folders that couldn't be read.
const TypeSkippedFolder = "skipped_folder"

var header = []string{
	"Number",
	"Folder Path",
	"File Name",
	"Type",
	"MIME Type",
	"Size",
	"File URL",
	"Summary",
	"Notes",
}

// WriteCSV writes the header, one line per file and then one line per
// skipped folder.
func WriteCSV(w io.Writer, report *Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return errors.WithStack(err)
	}
	for _, row := range report.Rows {
		size := ""
		if row.Size > 0 {
			size = summarizer.FormatSize(row.Size)
		}
		record := []string{
			strconv.Itoa(row.Number),
			row.FolderPath,
			row.Name,
			row.Type,
			row.MimeType,
			size,
			row.Link,
			row.Summary,
			row.Notes,
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}
	for _, skipped := range report.Skipped {
		record := []string{
			"",
			skipped.Path,
			"",
			TypeSkippedFolder,
			"",
			"",
			"",
			"",
			"Skipped: " + skipped.Reason,
		}
		if err := cw.Write(record); err != nil {
			return errors.WithStack(err)
		}
	}

	cw.Flush()
	return errors.WithStack(cw.Error())
}
