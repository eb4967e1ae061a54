package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/driveview/driveview/pkg/access"
	"github.com/driveview/driveview/pkg/errcodes"
	"github.com/driveview/driveview/pkg/oauth"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const (
	// HeaderSkippedFolders carries the number of folders missing from the
	// export.
	HeaderSkippedFolders = "X-Skipped-Folders"

	mimeTypeCSV = "text/csv; charset=utf-8"
)

type handler struct {
	resolver  *access.Resolver
	assembler *Assembler
	now       func() time.Time
}

func (h *handler) export(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := ExportPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	folderID, err := access.ResolveFolderID(params.FolderURL, params.FolderID)
	if err != nil {
		return errcodes.ValidationError(access.Message(err, ""))
	}

	sessionID := oauth.SessionIDFromContext(c)
	store, authURL, err := h.resolver.Open(ctx, sessionID)
	if err != nil {
		return errors.WithStack(err)
	}
	if authURL != "" {
		return c.JSON(http.StatusOK, oauth.AuthorizeResponse{AuthURL: authURL})
	}

	report, err := h.assembler.Assemble(ctx, store, folderID, params.IncludeSummaries)
	if err != nil {
		if access.IsAuthorizationRequired(err) {
			authURL, err := h.resolver.AuthURL(ctx, sessionID)
			if err != nil {
				return err
			}
			return c.JSON(http.StatusOK, oauth.AuthorizeResponse{AuthURL: authURL})
		}
		return folderError(err, folderID)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, report); err != nil {
		return err
	}

	log.Info("exported folder", logger.Data{
		"folder_id":         report.Root.ID,
		"files":             len(report.Rows),
		"skipped_folders":   len(report.Skipped),
		"include_summaries": params.IncludeSummaries,
	})

	filename := fmt.Sprintf("drive_files_%s.csv", h.now().Format("2006_01_02_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().Header().Set(HeaderSkippedFolders, strconv.Itoa(len(report.Skipped)))
	return errors.WithStack(c.Blob(http.StatusOK, mimeTypeCSV, buf.Bytes()))
}

func folderError(err error, folderID string) error {
	switch {
	case errors.Is(err, storage.ErrNotAFolder):
		return errcodes.ValidationError(access.Message(err, folderID))
	case errors.Is(err, storage.ErrNotFound):
		return errcodes.NotFound("Folder")
	case errors.Is(err, storage.ErrPermissionDenied):
		return errcodes.BadGateway(access.Message(err, folderID))
	}
	return errors.WithStack(err)
}
