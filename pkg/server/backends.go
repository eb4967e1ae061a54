package server

import (
	"context"

	"github.com/driveview/driveview/pkg/config"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/driveview/driveview/pkg/storage/gdrive"
	"github.com/driveview/driveview/pkg/storage/localfs"
	"github.com/driveview/driveview/pkg/storage/s3store"
	"github.com/driveview/driveview/pkg/summarizer"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// newOpener picks the storage backend named by storage_backend.
func newOpener(ctx context.Context, cfg *config.Config) (storage.Opener, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendGoogleDrive:
		return gdrive.NewOpener(cfg.DriveRequestsPerSecond), nil
	case config.StorageBackendLocal:
		s, err := localfs.New(cfg.LocalRoot)
		if err != nil {
			return nil, err
		}
		return s.Opener(), nil
	case config.StorageBackendS3:
		s, err := s3store.New(ctx, s3store.Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return s.Opener(), nil
	}
	return nil, errors.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// newSummarizer returns nil, without an error, when no model is configured.
// Every file then gets a metadata summary.
func newSummarizer(ctx context.Context, cfg *config.Config) (*summarizer.Recursive, error) {
	backend, err := summarizer.NewOpenAIBackend(summarizer.OpenAIConfig{
		Provider: cfg.SummarizerProvider,
		APIKey:   cfg.SummarizerAPIKey,
		BaseURL:  cfg.SummarizerBaseURL,
		Model:    cfg.SummarizerModel,
	})
	if errors.Is(err, summarizer.ErrBackendUnavailable) {
		logger.FromContext(ctx).Warn("summarizer backend unavailable, using metadata summaries", logger.Data{
			"provider": cfg.SummarizerProvider,
		})
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r := summarizer.NewRecursive(backend)
	r.MaxWords = cfg.SummaryMaxWords
	r.ChunkWords = cfg.SummaryChunkWords
	r.MaxDepth = cfg.SummaryMaxDepth
	return r, nil
}
