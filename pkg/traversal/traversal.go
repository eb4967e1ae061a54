package traversal

import (
	"context"
	"sort"
	"strings"

	"github.com/driveview/driveview/pkg/metrics"
	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// RootPath is the folder path given to files directly inside the root.
const RootPath = "Root"

// File is a file found by ListAllFiles with the path of the folder it was
// found in, e.g. "Root/Reports/2025".
type File struct {
	Entry      *models.FileEntry
	FolderPath string
}

// SkippedFolder is a subfolder whose children couldn't be listed.
type SkippedFolder struct {
	ID     string
	Path   string
	Reason string
}

type Result struct {
	Root    *models.FileEntry
	Files   []*File
	Skipped []*SkippedFolder
}

type Traverser struct {
	metrics *metrics.Metrics
}

func New(m *metrics.Metrics) *Traverser {
	return &Traverser{metrics: m}
}

// ListChildren returns one level of the folder: folders first, then files,
// each group ordered by case-insensitive name.
func (t *Traverser) ListChildren(ctx context.Context, store storage.Storage, folderID string) ([]*models.FileEntry, error) {
	children, err := store.ListChildren(ctx, folderID)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	SortEntries(children)
	return children, nil
}

// ListAllFiles walks the whole tree below rootID depth-first. Each folder's
// files come before the contents of its subfolders. A file or folder that is
// reachable through several paths is only reported at the first one, which
// also makes cycles terminate. If a subfolder can't be listed it is recorded
// in Result.Skipped and the walk continues; failing to read the root itself
// is an error.
func (t *Traverser) ListAllFiles(ctx context.Context, store storage.Storage, rootID string) (*Result, error) {
	root, err := store.GetFolder(ctx, rootID)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	log := logger.FromContext(ctx)
	result := &Result{Root: root}

	type frame struct {
		id   string
		path string
	}
	stack := []frame{{id: root.ID, path: RootPath}}
	visitedFolders := map[string]bool{}
	seenFiles := map[string]bool{}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, errors.WithStack(err)
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visitedFolders[current.id] {
			continue
		}
		visitedFolders[current.id] = true

		children, err := t.ListChildren(ctx, store, current.id)
		if err != nil {
			if current.id == root.ID {
				return nil, err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, errors.WithStack(ctxErr)
			}
			log.Err(err).Warn("skipping folder that could not be listed", logger.Data{
				"folder_id":   current.id,
				"folder_path": current.path,
			})
			result.Skipped = append(result.Skipped, &SkippedFolder{
				ID:     current.id,
				Path:   current.path,
				Reason: storage.Reason(err),
			})
			continue
		}

		var subfolders []frame
		for _, child := range children {
			if child.IsFolder {
				if !visitedFolders[child.ID] {
					subfolders = append(subfolders, frame{id: child.ID, path: current.path + "/" + child.Name})
				}
				continue
			}
			if seenFiles[child.ID] {
				continue
			}
			seenFiles[child.ID] = true
			result.Files = append(result.Files, &File{Entry: child, FolderPath: current.path})
		}

		// Push in reverse so the first subfolder is walked first.
		for i := len(subfolders) - 1; i >= 0; i-- {
			stack = append(stack, subfolders[i])
		}
	}

	t.metrics.SkippedFolders(len(result.Skipped))
	return result, nil
}

// SortEntries orders folders before files, then by case-insensitive name.
// Ties keep their id order so the result is deterministic.
func SortEntries(entries []*models.FileEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsFolder != b.IsFolder {
			return a.IsFolder
		}
		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.ID < b.ID
	})
}
