package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"folio/internal/models"
)

const dayFormat = "2006-01-02"

// Repo persists price-history chunks in Postgres, one row per
// (symbol, range_start, range_end). Chunks are append-only: a chunk covering a
// closed past range never changes, so there is no update path and no eviction.
type Repo struct {
	db  *sqlx.DB
	log *logrus.Logger
}

func New(db *sqlx.DB, log *logrus.Logger) *Repo {
	return &Repo{db: db, log: log}
}

func (r *Repo) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS price_chunks (
			symbol      TEXT NOT NULL,
			range_start DATE NOT NULL,
			range_end   DATE NOT NULL,
			points      JSONB NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (symbol, range_start, range_end)
		)`)
	return err
}

// Get returns the chunk stored under the exact (symbol, from, to) key. Keys are
// exact chunk boundaries: a sub-range of a stored chunk is a miss, not a hit.
func (r *Repo) Get(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, bool, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT points FROM price_chunks WHERE symbol = $1 AND range_start = $2 AND range_end = $3`,
		symbol, from.Format(dayFormat), to.Format(dayFormat)).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	points := []models.PricePoint{}
	if err := json.Unmarshal(raw, &points); err != nil {
		return nil, false, err
	}
	return points, true, nil
}

// Put stores a fetched chunk verbatim. ON CONFLICT DO NOTHING keeps existing
// rows untouched; a chunk is never partially invalidated.
func (r *Repo) Put(ctx context.Context, symbol string, from, to time.Time, points []models.PricePoint) error {
	if points == nil {
		points = []models.PricePoint{}
	}
	raw, err := json.Marshal(points)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO price_chunks (symbol, range_start, range_end, points) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (symbol, range_start, range_end) DO NOTHING`,
		symbol, from.Format(dayFormat), to.Format(dayFormat), raw)
	if err != nil {
		r.log.Warnf("store chunk %s %s..%s failed: %v", symbol, from.Format(dayFormat), to.Format(dayFormat), err)
	}
	return err
}
