package summarycache

import (
	"container/list"
	"time"

	"github.com/driveview/driveview/pkg/models"
)

// lru is a capacity-bounded map from file id to its summary record with an
// optional TTL. It is not safe for concurrent use; Cache guards it.
type lru struct {
	capacity int
	ttl      time.Duration
	now      func() time.Time
	onEvict  func()

	items map[string]*list.Element
	order *list.List
}

type lruEntry struct {
	fileID    string
	record    *models.SummaryRecord
	expiresAt time.Time
}

func newLRU(capacity int, ttl time.Duration, now func() time.Time, onEvict func()) *lru {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &lru{
		capacity: capacity,
		ttl:      ttl,
		now:      now,
		onEvict:  onEvict,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (l *lru) get(fileID string) (*models.SummaryRecord, bool) {
	el, ok := l.items[fileID]
	if !ok {
		return nil, false
	}
	e := el.Value.(*lruEntry)
	if l.expired(e) {
		l.remove(el)
		l.evicted()
		return nil, false
	}
	l.order.MoveToFront(el)
	return e.record, true
}

// put stores the record for its file id, replacing any previous record, and
// evicts the least recently used entries beyond capacity. The TTL counts from
// the record's GeneratedAt, so a record loaded from the store keeps its age.
func (l *lru) put(record *models.SummaryRecord) {
	e := &lruEntry{fileID: record.FileID, record: record}
	if l.ttl > 0 {
		generatedAt := record.GeneratedAt
		if generatedAt.IsZero() {
			generatedAt = l.now()
		}
		e.expiresAt = generatedAt.Add(l.ttl)
	}

	if el, ok := l.items[record.FileID]; ok {
		el.Value = e
		l.order.MoveToFront(el)
		return
	}

	l.items[record.FileID] = l.order.PushFront(e)
	for l.order.Len() > l.capacity {
		l.remove(l.order.Back())
		l.evicted()
	}
}

func (l *lru) delete(fileID string) {
	if el, ok := l.items[fileID]; ok {
		l.remove(el)
	}
}

func (l *lru) len() int {
	return l.order.Len()
}

func (l *lru) expired(e *lruEntry) bool {
	return !e.expiresAt.IsZero() && !l.now().Before(e.expiresAt)
}

func (l *lru) remove(el *list.Element) {
	e := el.Value.(*lruEntry)
	l.order.Remove(el)
	delete(l.items, e.fileID)
}

func (l *lru) evicted() {
	if l.onEvict != nil {
		l.onEvict()
	}
}
