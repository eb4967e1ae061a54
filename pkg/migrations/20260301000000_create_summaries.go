package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE summaries (
				file_id TEXT PRIMARY KEY,
				fingerprint TEXT NOT NULL,
				summary_text TEXT NOT NULL,
				kind TEXT NOT NULL,
				generated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_summaries_generated_at ON summaries (generated_at)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS summaries")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
