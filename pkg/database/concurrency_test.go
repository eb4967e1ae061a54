package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/driveview/driveview/pkg/config"
	"github.com/driveview/driveview/pkg/migrations"
	"github.com/driveview/driveview/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig uses a file database so that every connection sees the same
// data, which :memory: does not give us.
func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewForTest()
	cfg.DatabaseFilePath = filepath.Join(t.TempDir(), "test.db")
	cfg.DatabaseMaxRetries = 0
	cfg.DatabaseBusyTimeout = time.Millisecond
	return cfg
}

func TestConcurrentSummaryUpserts(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	const numWorkers = 16
	const filesPerWorker = 25

	var wg sync.WaitGroup
	var failures atomic.Int32
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < filesPerWorker; i++ {
				// Workers overlap on file ids so that the same rows are
				// overwritten concurrently.
				record := &models.SummaryRecord{
					FileID:      fmt.Sprintf("file-%d", i),
					Fingerprint: fmt.Sprintf("fp-%d-%d", worker, i),
					SummaryText: fmt.Sprintf("summary from worker %d", worker),
					Kind:        models.SummaryKindContent,
					GeneratedAt: time.Now(),
				}
				_, err := db.NewInsert().
					Model(record).
					On("CONFLICT (file_id) DO UPDATE").
					Set("fingerprint = EXCLUDED.fingerprint").
					Set("summary_text = EXCLUDED.summary_text").
					Set("kind = EXCLUDED.kind").
					Set("generated_at = EXCLUDED.generated_at").
					Exec(ctx)
				if err != nil {
					failures.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int32(0), failures.Load(), "concurrent upserts should not fail")

	count, err := db.NewSelect().Model((*models.SummaryRecord)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, filesPerWorker, count, "one row per file id")
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t)
	db, err := New(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var errs atomic.Int32
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if worker%2 == 0 {
					session := &models.Session{ID: fmt.Sprintf("s-%d-%d", worker, i)}
					if _, err := db.NewInsert().Model(session).Exec(ctx); err != nil {
						errs.Add(1)
					}
					continue
				}
				if _, err := db.NewSelect().Model((*models.Session)(nil)).Count(ctx); err != nil {
					errs.Add(1)
				}
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, int32(0), errs.Load())
	count, err := db.NewSelect().Model((*models.Session)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4*50, count)
}
