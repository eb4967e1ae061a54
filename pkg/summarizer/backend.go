package summarizer

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// ErrBackendUnavailable means no model is configured, so only metadata
	// summaries can be produced.
	ErrBackendUnavailable = errors.New("summarizer backend unavailable")
	ErrEmptyInput         = errors.New("no content to summarize")
	ErrEmptySummary       = errors.New("summarizer returned an empty summary")
	ErrNoChunkSummaries   = errors.New("could not generate summary for any chunk")
)

// Backend reduces a block of text that fits the model's input window to a
// short summary. Implementations must be safe for concurrent use.
type Backend interface {
	Summarize(ctx context.Context, text string, maxWords int) (string, error)
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, text string, maxWords int) (string, error)

func (f BackendFunc) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	return f(ctx, text, maxWords)
}
