package summaries

import (
	"context"
	"time"

	"github.com/driveview/driveview/pkg/metrics"
	"github.com/driveview/driveview/pkg/models"
	"github.com/driveview/driveview/pkg/storage"
	"github.com/driveview/driveview/pkg/summarizer"
	"github.com/driveview/driveview/pkg/summarycache"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"golang.org/x/sync/errgroup"
)

const (
	NoContentSummary = "No content to summarize."

	DefaultTimeout         = 60 * time.Second
	DefaultMaxContentBytes = 5 << 20
	DefaultConcurrency     = 4
)

type Options struct {
	Cache *summarycache.Cache
	// Summarizer is nil when no backend is configured; every file then gets a
	// metadata summary.
	Summarizer      *summarizer.Recursive
	Timeout         time.Duration
	MaxContentBytes int64
	Concurrency     int
	Metrics         *metrics.Metrics
}

// Service produces a summary for any file. It never fails: when content
// can't be summarized the file's metadata is described instead.
type Service struct {
	cache       *summarycache.Cache
	summarizer  *summarizer.Recursive
	timeout     time.Duration
	maxBytes    int64
	concurrency int
	metrics     *metrics.Metrics
}

func NewService(opts Options) *Service {
	svc := &Service{
		cache:       opts.Cache,
		summarizer:  opts.Summarizer,
		timeout:     opts.Timeout,
		maxBytes:    opts.MaxContentBytes,
		concurrency: opts.Concurrency,
		metrics:     opts.Metrics,
	}
	if svc.cache == nil {
		svc.cache = summarycache.New(summarycache.Options{Metrics: opts.Metrics})
	}
	if svc.timeout <= 0 {
		svc.timeout = DefaultTimeout
	}
	if svc.maxBytes <= 0 {
		svc.maxBytes = DefaultMaxContentBytes
	}
	if svc.concurrency <= 0 {
		svc.concurrency = DefaultConcurrency
	}
	return svc
}

// Available reports whether content summaries can be generated.
func (svc *Service) Available() bool {
	return svc.summarizer != nil && svc.summarizer.Backend != nil
}

// Summarize returns the summary for entry, from the cache when its
// fingerprint is unchanged.
func (svc *Service) Summarize(ctx context.Context, store storage.Storage, entry *models.FileEntry) *models.SummaryRecord {
	fingerprint := entry.Fingerprint()
	record, _, err := svc.cache.GetOrCompute(ctx, entry.ID, fingerprint, func(ctx context.Context) (string, string, error) {
		return svc.compute(ctx, store, entry)
	})
	if err != nil {
		// Without a backend the fallback is expected. It isn't cached either,
		// so the file gets a content summary once a backend is configured.
		if !errors.Is(err, summarizer.ErrBackendUnavailable) {
			logger.FromContext(ctx).Err(err).Warn("summarization failed, using metadata summary", logger.Data{
				"file_id":   entry.ID,
				"file_name": entry.Name,
			})
		}
		return &models.SummaryRecord{
			FileID:      entry.ID,
			Fingerprint: fingerprint,
			SummaryText: summarizer.SummarizeMetadata(entry),
			Kind:        models.SummaryKindMetadata,
			GeneratedAt: time.Now().UTC(),
		}
	}
	return record
}

// SummarizeAll summarizes every entry, a few at a time. The result is indexed
// like entries.
func (svc *Service) SummarizeAll(ctx context.Context, store storage.Storage, entries []*models.FileEntry) []*models.SummaryRecord {
	records := make([]*models.SummaryRecord, len(entries))
	g := new(errgroup.Group)
	g.SetLimit(svc.concurrency)
	for i, entry := range entries {
		g.Go(func() error {
			records[i] = svc.Summarize(ctx, store, entry)
			return nil
		})
	}
	_ = g.Wait()
	return records
}

func (svc *Service) compute(ctx context.Context, store storage.Storage, entry *models.FileEntry) (string, string, error) {
	fileType := summarizer.Classify(entry.Name, entry.MimeType)
	if !summarizer.IsContentSummarizable(fileType) {
		return summarizer.SummarizeMetadata(entry), models.SummaryKindMetadata, nil
	}
	if !svc.Available() {
		return "", "", errors.WithStack(summarizer.ErrBackendUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, svc.timeout)
	defer cancel()

	data, err := store.GetFileContent(ctx, entry, svc.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return summarizer.SummarizeMetadata(entry), models.SummaryKindMetadata, nil
		}
		return "", "", errors.Wrap(err, "failed to download file content")
	}

	text, err := summarizer.ExtractText(data, entry.MimeType)
	if err != nil {
		if errors.Is(err, summarizer.ErrNotText) {
			return summarizer.SummarizeMetadata(entry), models.SummaryKindMetadata, nil
		}
		return "", "", errors.WithStack(err)
	}

	start := time.Now()
	summary, err := svc.summarizer.Summarize(ctx, text)
	switch {
	case errors.Is(err, summarizer.ErrEmptyInput):
		return NoContentSummary, models.SummaryKindContent, nil
	case errors.Is(err, context.DeadlineExceeded):
		svc.metrics.ObserveSummarization(metrics.ResultTimeout, time.Since(start))
		return "", "", errors.Wrapf(err, "summarization timed out after %s", svc.timeout)
	case err != nil:
		svc.metrics.ObserveSummarization(metrics.ResultError, time.Since(start))
		return "", "", err
	}
	svc.metrics.ObserveSummarization(metrics.ResultSuccess, time.Since(start))
	return summary, models.SummaryKindContent, nil
}
