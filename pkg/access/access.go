// Package access turns a request's folder reference and session into an
// open storage, or into the consent URL the user has to visit first.
package access

import (
	"context"
	"fmt"

	"github.com/driveview/driveview/pkg/oauth"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

var ErrNoFolderID = errors.New("no folder id provided")

// Authorizer is the part of oauth.Service that request handlers need.
type Authorizer interface {
	TokenSource(ctx context.Context, sessionID string) (oauth2.TokenSource, error)
	BeginAuthorization(ctx context.Context, sessionID string) (string, error)
}

type Resolver struct {
	opener     storage.Opener
	authorizer Authorizer
}

// NewResolver builds a Resolver. authorizer may be nil when the opener
// doesn't require authorization.
func NewResolver(opener storage.Opener, authorizer Authorizer) *Resolver {
	return &Resolver{
		opener:     opener,
		authorizer: authorizer,
	}
}

// Open returns the storage for this session. When the session has no usable
// token it returns a nil storage and the consent URL instead.
func (r *Resolver) Open(ctx context.Context, sessionID string) (storage.Storage, string, error) {
	if !r.opener.RequiresAuthorization() {
		s, err := r.opener.Open(ctx, nil)
		return s, "", errors.WithStack(err)
	}
	if r.authorizer == nil {
		return nil, "", errors.New("storage requires authorization but no authorizer is configured")
	}

	ts, err := r.authorizer.TokenSource(ctx, sessionID)
	if IsAuthorizationRequired(err) {
		authURL, err := r.AuthURL(ctx, sessionID)
		return nil, authURL, err
	}
	if err != nil {
		return nil, "", err
	}

	s, err := r.opener.Open(ctx, ts)
	if err != nil {
		return nil, "", err
	}
	return s, "", nil
}

// AuthURL starts a new authorization for the session.
func (r *Resolver) AuthURL(ctx context.Context, sessionID string) (string, error) {
	if r.authorizer == nil {
		return "", errors.New("no authorizer is configured")
	}
	authURL, err := r.authorizer.BeginAuthorization(ctx, sessionID)
	return authURL, errors.WithStack(err)
}

// IsAuthorizationRequired reports whether err means the user has to
// (re)authorize, including a refresh token revoked in the middle of a
// request.
func IsAuthorizationRequired(err error) bool {
	return err != nil && errors.Is(err, oauth.ErrAuthorizationRequired)
}

// ResolveFolderID picks the folder a request names. A URL takes precedence
// over an id.
func ResolveFolderID(folderURL, folderID string) (string, error) {
	if folderURL != "" {
		return storage.ParseFolderRef(folderURL)
	}
	if folderID == "" {
		return "", errors.WithStack(ErrNoFolderID)
	}
	return folderID, nil
}

// Message is the user facing text for an error from resolving or opening a
// folder.
func Message(err error, folderID string) string {
	switch {
	case errors.Is(err, storage.ErrInvalidFolderURL):
		return "Invalid folder URL"
	case errors.Is(err, ErrNoFolderID):
		return "No folder ID provided"
	case errors.Is(err, storage.ErrNotAFolder):
		return fmt.Sprintf("The ID %s is not a folder", folderID)
	default:
		return "Cannot access folder: " + storage.Reason(err)
	}
}
