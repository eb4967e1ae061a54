package summarizer

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

const (
	DefaultMaxWords   = 25
	DefaultChunkWords = 900
	DefaultMaxDepth   = 3
)

// Recursive summarizes text of any length with a Backend that only accepts
// ChunkWords words at a time. Long text is split into chunks, each chunk is
// summarized, and the joined chunk summaries are summarized again until they
// fit. MaxDepth bounds the number of levels; at the ceiling the input is
// truncated and summarized once.
type Recursive struct {
	Backend    Backend
	MaxWords   int
	ChunkWords int
	MaxDepth   int
}

func NewRecursive(backend Backend) *Recursive {
	return &Recursive{
		Backend:    backend,
		MaxWords:   DefaultMaxWords,
		ChunkWords: DefaultChunkWords,
		MaxDepth:   DefaultMaxDepth,
	}
}

// Summarize returns a summary of at most MaxWords words. It returns
// ErrEmptyInput for blank text and ErrNoChunkSummaries if every chunk of a
// long text failed.
func (r *Recursive) Summarize(ctx context.Context, text string) (string, error) {
	if r.Backend == nil {
		return "", errors.WithStack(ErrBackendUnavailable)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.WithStack(ErrEmptyInput)
	}
	return r.summarize(ctx, text, 0)
}

func (r *Recursive) summarize(ctx context.Context, text string, depth int) (string, error) {
	words := CountWords(text)
	if words <= r.ChunkWords {
		return r.call(ctx, text)
	}
	if depth >= r.MaxDepth {
		return r.call(ctx, TruncateWords(text, r.ChunkWords))
	}

	log := logger.FromContext(ctx)
	chunks := SplitChunks(text, r.ChunkWords)
	summaries := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", errors.WithStack(err)
		}
		summary, err := r.call(ctx, chunk)
		if err != nil {
			log.Err(err).Warn("chunk summary failed", logger.Data{"chunk": i, "chunks": len(chunks), "depth": depth})
			continue
		}
		summaries = append(summaries, summary)
	}
	if err := ctx.Err(); err != nil {
		return "", errors.WithStack(err)
	}
	if len(summaries) == 0 {
		return "", errors.WithStack(ErrNoChunkSummaries)
	}

	return r.summarize(ctx, strings.Join(summaries, "\n\n"), depth+1)
}

func (r *Recursive) call(ctx context.Context, text string) (string, error) {
	summary, err := r.Backend.Summarize(ctx, text, r.MaxWords)
	if err != nil {
		return "", errors.WithStack(err)
	}
	summary = TruncateWords(summary, r.MaxWords)
	if summary == "" {
		return "", errors.WithStack(ErrEmptySummary)
	}
	return summary, nil
}
