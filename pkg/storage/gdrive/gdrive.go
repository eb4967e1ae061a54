// Package gdrive implements storage.Storage on the Google Drive v3 API.
package gdrive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	MimeTypeShortcut  = "application/vnd.google-apps.shortcut"
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
	googleAppsPrefix  = "application/vnd.google-apps."

	fileFields = "id, name, mimeType, size, parents, webViewLink, modifiedTime, md5Checksum, shortcutDetails(targetId, targetMimeType)"
	pageSize   = 1000
)

// Opener builds a Drive-backed storage for each request from the user's
// token source. All storages from one Opener share its rate limiter.
type Opener struct {
	limiter *rate.Limiter
	options []option.ClientOption
}

// NewOpener limits Drive calls to requestsPerSecond across all requests. A
// non-positive rate disables limiting. Extra client options are appended to
// the token source option.
func NewOpener(requestsPerSecond float64, opts ...option.ClientOption) *Opener {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &Opener{
		limiter: rate.NewLimiter(limit, burst),
		options: opts,
	}
}

func (o *Opener) RequiresAuthorization() bool {
	return true
}

func (o *Opener) Open(ctx context.Context, ts oauth2.TokenSource) (storage.Storage, error) {
	if ts == nil {
		return nil, errors.New("google drive storage requires a token source")
	}
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, o.options...)
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create drive service")
	}
	return &Storage{srv: srv, limiter: o.limiter}, nil
}

type Storage struct {
	srv     *drive.Service
	limiter *rate.Limiter
}

func (s *Storage) GetFolder(ctx context.Context, folderID string) (*models.FileEntry, error) {
	f, err := s.get(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if f.MimeType == MimeTypeShortcut && f.ShortcutDetails != nil && f.ShortcutDetails.TargetMimeType == models.MimeTypeFolder {
		return s.GetFolder(ctx, f.ShortcutDetails.TargetId)
	}
	if f.MimeType != models.MimeTypeFolder {
		return nil, storage.NotAFolderError(folderID)
	}
	return toEntry(f, ""), nil
}

func (s *Storage) ListChildren(ctx context.Context, folderID string) ([]*models.FileEntry, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", escapeQuery(folderID))
	var entries []*models.FileEntry
	pageToken := ""
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, errors.WithStack(err)
		}
		call := s.srv.Files.List().
			Q(query).
			PageSize(pageSize).
			Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
			SupportsAllDrives(true).
			IncludeItemsFromAllDrives(true).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, translateError(err, "list folder "+folderID)
		}
		for _, f := range res.Files {
			entry := toEntry(f, folderID)
			if isFileShortcut(f) {
				s.applyTarget(ctx, entry)
			}
			entries = append(entries, entry)
		}
		pageToken = res.NextPageToken
		if pageToken == "" {
			return entries, nil
		}
	}
}

// GetFileContent downloads a file. Google Docs are exported as plain text;
// other Google Workspace types have no downloadable content.
func (s *Storage) GetFileContent(ctx context.Context, entry *models.FileEntry, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && entry.Size > maxBytes {
		return nil, errors.Wrapf(storage.ErrTooLarge, "%s is %d bytes", entry.ID, entry.Size)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	var resp *http.Response
	var err error
	switch {
	case entry.MimeType == MimeTypeGoogleDoc:
		resp, err = s.srv.Files.Export(entry.ID, "text/plain").Context(ctx).Download()
	case strings.HasPrefix(entry.MimeType, googleAppsPrefix):
		return nil, errors.Errorf("%s (%s) has no downloadable content", entry.ID, entry.MimeType)
	default:
		resp, err = s.srv.Files.Get(entry.ID).SupportsAllDrives(true).Context(ctx).Download()
	}
	if err != nil {
		return nil, translateError(err, "download "+entry.ID)
	}
	defer resp.Body.Close()

	r := io.Reader(resp.Body)
	if maxBytes > 0 {
		r = io.LimitReader(resp.Body, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", entry.ID)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, errors.Wrapf(storage.ErrTooLarge, "%s is larger than %d bytes", entry.ID, maxBytes)
	}
	return data, nil
}

// applyTarget copies the target's size, checksum and modified time onto a
// file shortcut's entry, so that its fingerprint follows edits to the target
// and matches the entry listed from the target's own folder. If the target
// can't be read the entry keeps zero values; its content can't be read either.
func (s *Storage) applyTarget(ctx context.Context, entry *models.FileEntry) {
	target, err := s.get(ctx, entry.ID)
	if err != nil {
		logger.FromContext(ctx).Err(err).Warn("failed to resolve shortcut target", logger.Data{
			"file_id":   entry.ID,
			"file_name": entry.Name,
		})
		return
	}
	resolved := toEntry(target, entry.ParentID)
	entry.Size = resolved.Size
	entry.MD5Checksum = resolved.MD5Checksum
	entry.ModifiedTime = resolved.ModifiedTime
	if resolved.ViewLink != "" {
		entry.ViewLink = resolved.ViewLink
	}
}

func (s *Storage) get(ctx context.Context, id string) (*drive.File, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	f, err := s.srv.Files.Get(id).
		Fields(googleapi.Field(fileFields)).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateError(err, "get "+id)
	}
	return f, nil
}

// toEntry converts a Drive file. Shortcuts take the id and type of their
// target so that traversal dedupes them against the original. Their own
// size, checksum and modified time say nothing about the target and are
// dropped; see applyTarget.
func toEntry(f *drive.File, parentID string) *models.FileEntry {
	entry := &models.FileEntry{
		ID:          f.Id,
		Name:        f.Name,
		MimeType:    f.MimeType,
		Size:        f.Size,
		ParentID:    parentID,
		ViewLink:    f.WebViewLink,
		MD5Checksum: f.Md5Checksum,
	}
	if entry.ParentID == "" && len(f.Parents) > 0 {
		entry.ParentID = f.Parents[0]
	}
	if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
		entry.ModifiedTime = t
	}
	if f.MimeType == MimeTypeShortcut && f.ShortcutDetails != nil && f.ShortcutDetails.TargetId != "" {
		entry.ID = f.ShortcutDetails.TargetId
		entry.MimeType = f.ShortcutDetails.TargetMimeType
		entry.Size = 0
		entry.MD5Checksum = ""
		entry.ModifiedTime = time.Time{}
	}
	entry.IsFolder = entry.MimeType == models.MimeTypeFolder
	return entry
}

func isFileShortcut(f *drive.File) bool {
	return f.MimeType == MimeTypeShortcut &&
		f.ShortcutDetails != nil &&
		f.ShortcutDetails.TargetId != "" &&
		f.ShortcutDetails.TargetMimeType != models.MimeTypeFolder
}

func translateError(err error, action string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return errors.Wrap(storage.ErrNotFound, action)
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.Wrapf(storage.ErrPermissionDenied, "%s: %s", action, gerr.Message)
		}
	}
	return errors.Wrap(err, action)
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
