// Package export builds the spreadsheet of every file below a folder.
package export

import (
	"context"

	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/driveview/driveview/pkg/summaries"
	"github.com/driveview/driveview/pkg/summarizer"
	"github.com/driveview/driveview/pkg/traversal"
	"github.com/pkg/errors"
)

// SummaryDisabled fills the summary column when summaries weren't requested.
const SummaryDisabled = "Summary generation disabled"

// Row is one file of the export. Notes is a free-text column left for the
// reader of the spreadsheet and is always empty here.
type Row struct {
	Number     int
	FolderPath string
	Name       string
	Type       string
	MimeType   string
	Size       int64
	Link       string
	Summary    string
	Notes      string
}

type Report struct {
	Root    *models.FileEntry
	Rows    []*Row
	Skipped []*traversal.SkippedFolder
}

type Assembler struct {
	traverser        *traversal.Traverser
	summariesService *summaries.Service
}

func NewAssembler(traverser *traversal.Traverser, summariesService *summaries.Service) *Assembler {
	return &Assembler{
		traverser:        traverser,
		summariesService: summariesService,
	}
}

// Assemble lists every file below rootID in traversal order and, when asked,
// summarizes each one. The whole report is built before it is returned.
// Only a failure on the root folder is an error; unreadable subfolders end up
// in Report.Skipped.
func (a *Assembler) Assemble(ctx context.Context, store storage.Storage, rootID string, includeSummaries bool) (*Report, error) {
	result, err := a.traverser.ListAllFiles(ctx, store, rootID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	report := &Report{
		Root:    result.Root,
		Rows:    make([]*Row, 0, len(result.Files)),
		Skipped: result.Skipped,
	}

	entries := make([]*models.FileEntry, len(result.Files))
	for i, f := range result.Files {
		entries[i] = f.Entry
		report.Rows = append(report.Rows, &Row{
			Number:     i + 1,
			FolderPath: f.FolderPath,
			Name:       f.Entry.Name,
			Type:       summarizer.Label(f.Entry.Name, f.Entry.MimeType),
			MimeType:   f.Entry.MimeType,
			Size:       f.Entry.Size,
			Link:       f.Entry.ViewLink,
			Summary:    SummaryDisabled,
		})
	}

	if includeSummaries && len(entries) > 0 {
		records := a.summariesService.SummarizeAll(ctx, store, entries)
		for i, record := range records {
			report.Rows[i].Summary = record.SummaryText
		}
	}

	return report, nil
}
