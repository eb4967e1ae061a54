package listing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/driveview/driveview/pkg/access"
	"github.com/driveview/driveview/pkg/binder"
	"github.com/driveview/driveview/pkg/errcodes"
	"github.com/driveview/driveview/pkg/oauth"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/driveview/driveview/pkg/summarizer"
	"github.com/driveview/driveview/pkg/summaries"
	"github.com/driveview/driveview/pkg/testutils"
	"github.com/driveview/driveview/pkg/traversal"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeAuthorizer struct {
	authorized bool
}

func (f *fakeAuthorizer) TokenSource(_ context.Context, _ string) (oauth2.TokenSource, error) {
	if !f.authorized {
		return nil, oauth.ErrAuthorizationRequired
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "at"}), nil
}

func (f *fakeAuthorizer) BeginAuthorization(_ context.Context, _ string) (string, error) {
	return "https://accounts.example.com/auth", nil
}

type fixture struct {
	e     *echo.Echo
	store *testutils.MemStorage
	calls *atomic.Int32
}

type fixtureOptions struct {
	noBackend bool
	needsAuth bool
	auth      *fakeAuthorizer
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	store := testutils.NewMemStorage()
	store.AddFolder("", "root", "Projects")
	store.AddFolder("root", "sub", "Reports")
	store.AddFile("root", "notes", "notes.txt", "text/plain", []byte("Quarterly planning notes for the team."))
	store.AddFileWithSize("root", "img", "image.png", "image/png", 2<<20)
	store.AddFolder("", "other", "Other")

	calls := &atomic.Int32{}
	var rec *summarizer.Recursive
	if !opts.noBackend {
		rec = summarizer.NewRecursive(summarizer.BackendFunc(func(_ context.Context, _ string, _ int) (string, error) {
			calls.Add(1)
			return "Planning notes for the quarter.", nil
		}))
	}
	svc := summaries.NewService(summaries.Options{Summarizer: rec})

	var authorizer access.Authorizer
	if opts.auth != nil {
		authorizer = opts.auth
	}
	resolver := access.NewResolver(&testutils.MemOpener{Storage: store, NeedsAuth: opts.needsAuth}, authorizer)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutes(e, resolver, traversal.New(nil), svc)

	return &fixture{e: e, store: store, calls: calls}
}

func (f *fixture) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/list-files", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	f.e.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestList(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fixtureOptions{})

	rr := f.post(t, `{"folder_url":"https://drive.google.com/drive/folders/root?usp=sharing"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[ListResponse](t, rr)

	assert.Equal(t, "root", resp.FolderID)
	assert.Equal(t, "Projects", resp.FolderName)
	assert.False(t, resp.SummariesEnabled)
	assert.True(t, resp.SummariesAvailable)

	require.Len(t, resp.Items, 3)
	assert.Equal(t, "Reports", resp.Items[0].Name)
	assert.Equal(t, "folder", resp.Items[0].Type)
	assert.Equal(t, "image.png", resp.Items[1].Name)
	assert.Equal(t, "notes.txt", resp.Items[2].Name)
	assert.Equal(t, "file", resp.Items[2].Type)
	assert.Equal(t, "text/plain", resp.Items[2].MimeType)
	assert.Equal(t, "root", resp.Items[2].ParentID)
	assert.Equal(t, "https://drive.example.com/file/notes", resp.Items[2].WebViewLink)
	for _, item := range resp.Items {
		assert.Nil(t, item.Summary)
	}
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestList_EmptyFolder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fixtureOptions{})

	rr := f.post(t, `{"folder_id":"other"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"items":[]`)
}

func TestList_Summaries(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fixtureOptions{})

	for i := 0; i < 2; i++ {
		rr := f.post(t, `{"folder_id":"root","generate_summaries":true}`)
		require.Equal(t, http.StatusOK, rr.Code)
		resp := decode[ListResponse](t, rr)
		assert.True(t, resp.SummariesEnabled)

		require.Len(t, resp.Items, 3)
		assert.Nil(t, resp.Items[0].Summary)
		require.NotNil(t, resp.Items[1].Summary)
		assert.Equal(t, "PNG image file (2.0 MB) named image.png.", *resp.Items[1].Summary)
		require.NotNil(t, resp.Items[2].Summary)
		assert.Equal(t, "Planning notes for the quarter.", *resp.Items[2].Summary)
	}

	// The second listing is served from the cache.
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestList_NoBackend(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fixtureOptions{noBackend: true})

	rr := f.post(t, `{"folder_id":"root","generate_summaries":true}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[ListResponse](t, rr)

	assert.True(t, resp.SummariesEnabled)
	assert.False(t, resp.SummariesAvailable)
	require.NotNil(t, resp.Items[2].Summary)
	assert.Equal(t, "TXT file (38 bytes) named notes.txt.", *resp.Items[2].Summary)
}

func TestList_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		body  string
		setup func(*testutils.MemStorage)
		want  string
	}{
		{
			name: "invalid url",
			body: `{"folder_url":"https://drive.google.com/drive/my-drive"}`,
			want: "Invalid folder URL",
		},
		{
			name: "no folder",
			body: `{"generate_summaries":true}`,
			want: "No folder ID provided",
		},
		{
			name: "file id",
			body: `{"folder_id":"notes"}`,
			want: "The ID notes is not a folder",
		},
		{
			name: "missing folder",
			body: `{"folder_id":"gone"}`,
			want: "Cannot access folder: folder not found",
		},
		{
			name: "listing fails",
			body: `{"folder_id":"root"}`,
			setup: func(s *testutils.MemStorage) {
				s.FailListing("root", errors.Wrap(storage.ErrPermissionDenied, "list root"))
			},
			want: "Error listing files: permission denied",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, fixtureOptions{})
			if tt.setup != nil {
				tt.setup(f.store)
			}

			rr := f.post(t, tt.body)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, tt.want, decode[ErrorResponse](t, rr).Error)
		})
	}
}

func TestList_MalformedPayload(t *testing.T) {
	t.Parallel()
	f := newFixture(t, fixtureOptions{})

	rr := f.post(t, `{"folder_id":"root","unexpected":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestList_AuthorizationRequired(t *testing.T) {
	t.Parallel()

	t.Run("no token", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, fixtureOptions{needsAuth: true, auth: &fakeAuthorizer{}})

		rr := f.post(t, `{"folder_id":"root"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "https://accounts.example.com/auth", decode[oauth.AuthorizeResponse](t, rr).AuthURL)
	})

	t.Run("token revoked during the request", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, fixtureOptions{needsAuth: true, auth: &fakeAuthorizer{authorized: true}})
		f.store.FailListing("root", errors.Wrap(oauth.ErrAuthorizationRequired, "invalid_grant"))

		rr := f.post(t, `{"folder_id":"root"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "https://accounts.example.com/auth", decode[oauth.AuthorizeResponse](t, rr).AuthURL)
	})

	t.Run("authorized", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, fixtureOptions{needsAuth: true, auth: &fakeAuthorizer{authorized: true}})

		rr := f.post(t, `{"folder_id":"root"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Projects", decode[ListResponse](t, rr).FolderName)
	})
}
