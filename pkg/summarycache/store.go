package summarycache

import (
	"context"
	"database/sql"

	"github.com/driveview/driveview/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// Store is the durable tier behind the in-memory LRU. Get returns nil and no
// error when nothing is stored for the file.
type Store interface {
	Get(ctx context.Context, fileID string) (*models.SummaryRecord, error)
	Put(ctx context.Context, record *models.SummaryRecord) error
	Delete(ctx context.Context, fileID string) error
}

// DBStore keeps summaries in the summaries table.
type DBStore struct {
	db *bun.DB
}

func NewDBStore(db *bun.DB) *DBStore {
	return &DBStore{db}
}

func (s *DBStore) Get(ctx context.Context, fileID string) (*models.SummaryRecord, error) {
	record := &models.SummaryRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("s.file_id = ?", fileID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return record, nil
}

func (s *DBStore) Put(ctx context.Context, record *models.SummaryRecord) error {
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (file_id) DO UPDATE").
		Set("fingerprint = EXCLUDED.fingerprint").
		Set("summary_text = EXCLUDED.summary_text").
		Set("kind = EXCLUDED.kind").
		Set("generated_at = EXCLUDED.generated_at").
		Exec(ctx)
	return errors.WithStack(err)
}

func (s *DBStore) Delete(ctx context.Context, fileID string) error {
	_, err := s.db.NewDelete().
		Model((*models.SummaryRecord)(nil)).
		Where("file_id = ?", fileID).
		Exec(ctx)
	return errors.WithStack(err)
}
