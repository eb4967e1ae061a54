package listing

import (
	"net/http"

	"github.com/driveview/driveview/pkg/access"
	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/oauth"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/driveview/driveview/pkg/summaries"
	"github.com/driveview/driveview/pkg/traversal"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	resolver         *access.Resolver
	traverser        *traversal.Traverser
	summariesService *summaries.Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := ListPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	folderID, err := access.ResolveFolderID(params.FolderURL, params.FolderID)
	if err != nil {
		return c.JSON(http.StatusOK, ErrorResponse{Error: access.Message(err, "")})
	}

	sessionID := oauth.SessionIDFromContext(c)
	store, authURL, err := h.resolver.Open(ctx, sessionID)
	if err != nil {
		return errors.WithStack(err)
	}
	if authURL != "" {
		return c.JSON(http.StatusOK, oauth.AuthorizeResponse{AuthURL: authURL})
	}

	folder, err := store.GetFolder(ctx, folderID)
	if err != nil {
		return h.failure(c, sessionID, err, access.Message(err, folderID))
	}
	children, err := h.traverser.ListChildren(ctx, store, folder.ID)
	if err != nil {
		return h.failure(c, sessionID, err, "Error listing files: "+storage.Reason(err))
	}

	items := make([]*Item, 0, len(children))
	var files []*models.FileEntry
	var fileItems []*Item
	for _, child := range children {
		item := &Item{
			ID:          child.ID,
			Name:        child.Name,
			Type:        child.Type(),
			MimeType:    child.MimeType,
			Size:        child.Size,
			WebViewLink: child.ViewLink,
			ParentID:    child.ParentID,
		}
		items = append(items, item)
		if !child.IsFolder {
			files = append(files, child)
			fileItems = append(fileItems, item)
		}
	}

	if params.GenerateSummaries && len(files) > 0 {
		records := h.summariesService.SummarizeAll(ctx, store, files)
		for i, record := range records {
			text := record.SummaryText
			fileItems[i].Summary = &text
		}
	}

	log.Info("listed folder", logger.Data{
		"folder_id":          folder.ID,
		"items":              len(items),
		"generate_summaries": params.GenerateSummaries,
	})

	return errors.WithStack(c.JSON(http.StatusOK, ListResponse{
		FolderID:           folder.ID,
		FolderName:         folder.Name,
		Items:              items,
		SummariesEnabled:   params.GenerateSummaries,
		SummariesAvailable: h.summariesService.Available(),
	}))
}

// failure reports a storage error the way the page expects: a consent URL
// when the token was revoked, otherwise an error message with status 200.
func (h *handler) failure(c echo.Context, sessionID string, err error, msg string) error {
	ctx := c.Request().Context()

	if access.IsAuthorizationRequired(err) {
		authURL, authErr := h.resolver.AuthURL(ctx, sessionID)
		if authErr != nil {
			return authErr
		}
		return c.JSON(http.StatusOK, oauth.AuthorizeResponse{AuthURL: authURL})
	}

	logger.FromContext(ctx).Err(err).Warn("failed to list folder")
	return c.JSON(http.StatusOK, ErrorResponse{Error: msg})
}
