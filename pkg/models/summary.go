package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SummaryKindContent  = "content"
	SummaryKindMetadata = "metadata"
)

// SummaryRecord is the most recently computed summary for a file. There is
// at most one record per FileID; a newer put replaces the older one.
type SummaryRecord struct {
	bun.BaseModel `bun:"table:summaries,alias:s"`

	FileID      string    `bun:",pk" json:"file_id"`
	Fingerprint string    `bun:",nullzero,notnull" json:"fingerprint"`
	SummaryText string    `bun:",notnull" json:"summary_text"`
	Kind        string    `bun:",nullzero,notnull" json:"kind"`
	GeneratedAt time.Time `bun:",nullzero,notnull" json:"generated_at"`
}
