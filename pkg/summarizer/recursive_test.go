package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingBackend echoes back a fixed-length summary and records every call.
type recordingBackend struct {
	mu        sync.Mutex
	calls     int
	inputs    []string
	replyLen  int
	failCalls map[int]bool
	failAll   bool
}

func (b *recordingBackend) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	b.mu.Lock()
	b.calls++
	call := b.calls
	b.inputs = append(b.inputs, text)
	b.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b.failAll || b.failCalls[call] {
		return "", errors.New("model exploded")
	}
	n := b.replyLen
	if n == 0 {
		n = maxWords
	}
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("s%d", call)
	}
	return strings.Join(words, " "), nil
}

func (b *recordingBackend) maxInputWords() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	maxWords := 0
	for _, in := range b.inputs {
		maxWords = max(maxWords, CountWords(in))
	}
	return maxWords
}

func wordsText(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func TestRecursive_ShortInputCallsBackendOnce(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{replyLen: 60}
	r := NewRecursive(backend)

	text := "This is a short text that should be summarized directly."
	summary, err := r.Summarize(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, text, backend.inputs[0])
	assert.LessOrEqual(t, CountWords(summary), 25, "backend output is clamped to max words")
	assert.NotEmpty(t, summary)
}

func TestRecursive_InputAtChunkLimitIsNotChunked(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{}
	r := NewRecursive(backend)

	_, err := r.Summarize(context.Background(), wordsText(DefaultChunkWords))
	require.NoError(t, err)
	assert.Equal(t, 1, backend.calls)
}

func TestRecursive_LongInputIsChunked(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{}
	r := NewRecursive(backend)

	summary, err := r.Summarize(context.Background(), wordsText(2500))
	require.NoError(t, err)

	// 3 chunks of at most 900 words, then one call on the joined summaries.
	assert.Equal(t, 4, backend.calls)
	assert.LessOrEqual(t, backend.maxInputWords(), DefaultChunkWords)
	assert.LessOrEqual(t, CountWords(summary), 25)
	assert.Equal(t, "s4", strings.Fields(summary)[0], "final summary comes from the last call")
}

func TestRecursive_TerminatesWithinDepthCeiling(t *testing.T) {
	t.Parallel()

	// Each 25-word chunk summary fills most of a 30-word chunk, so the joined
	// summaries never get shorter and only the depth ceiling ends recursion.
	backend := &recordingBackend{}
	r := &Recursive{Backend: backend, MaxWords: 25, ChunkWords: 30, MaxDepth: 3}

	summary, err := r.Summarize(context.Background(), wordsText(5000))
	require.NoError(t, err)

	assert.LessOrEqual(t, CountWords(summary), 25)
	assert.LessOrEqual(t, backend.maxInputWords(), 30)
	// 167 chunks on each of 3 levels, then one truncated call at the ceiling.
	assert.Equal(t, 3*167+1, backend.calls)
}

func TestRecursive_MaxDepthTruncates(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{}
	r := &Recursive{Backend: backend, MaxWords: 25, ChunkWords: 100, MaxDepth: 0}

	summary, err := r.Summarize(context.Background(), wordsText(1000))
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, 100, CountWords(backend.inputs[0]))
	assert.True(t, strings.HasPrefix(backend.inputs[0], "word0 word1"))
	assert.LessOrEqual(t, CountWords(summary), 25)
}

func TestRecursive_FailedChunkIsSkipped(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{failCalls: map[int]bool{2: true}}
	r := NewRecursive(backend)

	summary, err := r.Summarize(context.Background(), wordsText(2000))
	require.NoError(t, err)
	assert.NotEmpty(t, summary)

	// The final call sees summaries from chunks 1 and 3 only.
	final := backend.inputs[len(backend.inputs)-1]
	assert.Contains(t, final, "s1")
	assert.NotContains(t, final, "s2")
	assert.Contains(t, final, "s3")
}

func TestRecursive_AllChunksFail(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{failAll: true}
	r := NewRecursive(backend)

	_, err := r.Summarize(context.Background(), wordsText(2000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoChunkSummaries))
}

func TestRecursive_ShortInputBackendError(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{failAll: true}
	r := NewRecursive(backend)

	_, err := r.Summarize(context.Background(), "a few words")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestRecursive_EmptyInput(t *testing.T) {
	t.Parallel()

	backend := &recordingBackend{}
	r := NewRecursive(backend)

	for _, text := range []string{"", "   \n\t  "} {
		_, err := r.Summarize(context.Background(), text)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrEmptyInput))
	}
	assert.Equal(t, 0, backend.calls)
}

func TestRecursive_NilBackend(t *testing.T) {
	t.Parallel()

	r := NewRecursive(nil)
	_, err := r.Summarize(context.Background(), "some text")
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
}

func TestRecursive_EmptyBackendReply(t *testing.T) {
	t.Parallel()

	r := NewRecursive(BackendFunc(func(_ context.Context, _ string, _ int) (string, error) {
		return "   ", nil
	}))
	_, err := r.Summarize(context.Background(), "some text")
	assert.True(t, errors.Is(err, ErrEmptySummary))
}

func TestRecursive_StopsWhenContextExpires(t *testing.T) {
	t.Parallel()

	slow := BackendFunc(func(ctx context.Context, _ string, _ int) (string, error) {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(5 * time.Second):
			return "too late", nil
		}
	})
	r := NewRecursive(slow)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Summarize(ctx, wordsText(5000))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 2*time.Second)
}
