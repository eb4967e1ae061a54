package summarycache

import (
	"testing"
	"time"

	"github.com/driveview/driveview/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func record(fileID, fingerprint string) *models.SummaryRecord {
	return &models.SummaryRecord{FileID: fileID, Fingerprint: fingerprint, SummaryText: "summary of " + fileID, Kind: models.SummaryKindContent}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	evictions := 0
	l := newLRU(2, 0, clock.now, func() { evictions++ })

	l.put(record("a", "1"))
	l.put(record("b", "1"))
	_, ok := l.get("a") // a is now most recently used
	require.True(t, ok)
	l.put(record("c", "1"))

	_, ok = l.get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = l.get("a")
	assert.True(t, ok)
	_, ok = l.get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, l.len())
	assert.Equal(t, 1, evictions)
}

func TestLRU_PutOverwrites(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := newLRU(10, 0, clock.now, nil)

	l.put(record("a", "1"))
	l.put(record("a", "2"))

	got, ok := l.get("a")
	require.True(t, ok)
	assert.Equal(t, "2", got.Fingerprint)
	assert.Equal(t, 1, l.len())
}

func TestLRU_TTL(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	evictions := 0
	l := newLRU(10, time.Hour, clock.now, func() { evictions++ })

	l.put(record("a", "1"))
	clock.advance(59 * time.Minute)
	_, ok := l.get("a")
	assert.True(t, ok)

	clock.advance(time.Minute)
	_, ok = l.get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, l.len())
	assert.Equal(t, 1, evictions)
}

func TestLRU_TTLCountsFromGeneratedAt(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	l := newLRU(10, time.Hour, clock.now, nil)

	r := record("a", "1")
	r.GeneratedAt = clock.now().Add(-50 * time.Minute)
	l.put(r)

	clock.advance(9 * time.Minute)
	_, ok := l.get("a")
	assert.True(t, ok)

	clock.advance(time.Minute)
	_, ok = l.get("a")
	assert.False(t, ok, "a record generated 60 minutes ago has expired")
}

func TestLRU_Delete(t *testing.T) {
	t.Parallel()

	l := newLRU(0, 0, time.Now, nil)
	l.put(record("a", "1"))
	l.delete("a")
	l.delete("missing")

	_, ok := l.get("a")
	assert.False(t, ok)
	assert.Equal(t, DefaultCapacity, l.capacity)
}
