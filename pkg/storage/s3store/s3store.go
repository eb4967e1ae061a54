// Package s3store implements storage.Storage on an S3 compatible bucket.
// Key prefixes ending in "/" are folders; the root folder id is "".
package s3store

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

type Storage struct {
	client *s3.Client
	bucket string
}

// New builds a client for cfg. Static credentials are used when an access
// key is set, otherwise the default AWS credential chain applies. A custom
// endpoint switches to path style addressing.
func New(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load aws config")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &Storage{client: client, bucket: cfg.Bucket}, nil
}

// Opener returns the same Storage for every request.
func (s *Storage) Opener() storage.Opener {
	return opener{s}
}

type opener struct {
	s *Storage
}

func (o opener) RequiresAuthorization() bool {
	return false
}

func (o opener) Open(_ context.Context, _ oauth2.TokenSource) (storage.Storage, error) {
	return o.s, nil
}

func (s *Storage) GetFolder(ctx context.Context, folderID string) (*models.FileEntry, error) {
	id := cleanID(folderID)
	if id == "" {
		return s.folderEntry("", s.bucket), nil
	}

	res, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(id + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return nil, translateError(err, folderID)
	}
	if len(res.Contents) > 0 || len(res.CommonPrefixes) > 0 {
		return s.folderEntry(id, path.Base(id)), nil
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(id),
	})
	if err == nil {
		return nil, storage.NotAFolderError(folderID)
	}
	return nil, translateError(err, folderID)
}

func (s *Storage) ListChildren(ctx context.Context, folderID string) ([]*models.FileEntry, error) {
	id := cleanID(folderID)
	prefix := ""
	if id != "" {
		prefix = id + "/"
	}

	var entries []*models.FileEntry
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, translateError(err, folderID)
		}
		for _, cp := range page.CommonPrefixes {
			childID := strings.TrimSuffix(aws.ToString(cp.Prefix), "/")
			entry := s.folderEntry(childID, path.Base(childID))
			entry.ParentID = id
			entries = append(entries, entry)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// Folder marker objects created by consoles.
			if key == prefix || strings.HasSuffix(key, "/") {
				continue
			}
			entries = append(entries, s.objectEntry(obj, id))
		}
	}
	return entries, nil
}

func (s *Storage) GetFileContent(ctx context.Context, entry *models.FileEntry, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && entry.Size > maxBytes {
		return nil, errors.Wrapf(storage.ErrTooLarge, "%s is %d bytes", entry.ID, entry.Size)
	}
	res, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(entry.ID),
	})
	if err != nil {
		return nil, translateError(err, entry.ID)
	}
	defer res.Body.Close()

	r := io.Reader(res.Body)
	if maxBytes > 0 {
		r = io.LimitReader(res.Body, maxBytes+1)
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

func (s *Storage) folderEntry(id, name string) *models.FileEntry {
	return &models.FileEntry{
		ID:       id,
		Name:     name,
		MimeType: models.MimeTypeFolder,
		IsFolder: true,
		ViewLink: s.link(id),
	}
}

func (s *Storage) objectEntry(obj types.Object, parentID string) *models.FileEntry {
	key := aws.ToString(obj.Key)
	entry := &models.FileEntry{
		ID:          key,
		Name:        path.Base(key),
		MimeType:    mimeTypeForName(key),
		Size:        aws.ToInt64(obj.Size),
		ParentID:    parentID,
		ViewLink:    s.link(key),
		MD5Checksum: strings.Trim(aws.ToString(obj.ETag), `"`),
	}
	if obj.LastModified != nil {
		entry.ModifiedTime = obj.LastModified.UTC()
	}
	return entry
}

func (s *Storage) link(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func cleanID(id string) string {
	return strings.Trim(strings.TrimSpace(id), "/")
}

func mimeTypeForName(name string) string {
	mt := mime.TypeByExtension(path.Ext(name))
	if mt == "" {
		return "application/octet-stream"
	}
	base, _, _ := strings.Cut(mt, ";")
	return base
}

func translateError(err error, id string) error {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) || errors.As(err, &noSuchBucket) {
		return errors.Wrap(storage.ErrNotFound, id)
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.HTTPStatusCode() {
		case http.StatusNotFound:
			return errors.Wrap(storage.ErrNotFound, id)
		case http.StatusForbidden, http.StatusUnauthorized:
			return errors.Wrap(storage.ErrPermissionDenied, id)
		}
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDenied" {
		return errors.Wrap(storage.ErrPermissionDenied, id)
	}
	return errors.Wrap(err, id)
}
