package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// QuotaRepository is the per-day ledger of remote quota units spent.
//
// Days are opaque keys ("2006-01-02") chosen by the caller.
type QuotaRepository struct {
	db *sql.DB
}

// NewQuotaRepository creates a new QuotaRepository with the given database connection
func NewQuotaRepository(db *sql.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// Add atomically adds units to day's usage.
func (r *QuotaRepository) Add(day string, units int) error {
	if units < 0 {
		return fmt.Errorf("quota units must not be negative: %d", units)
	}

	query := `
		INSERT INTO quota_usage (day, units, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (day) DO UPDATE SET units = units + excluded.units, updated_at = excluded.updated_at
	`

	if _, err := r.db.Exec(query, day, units, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to record quota usage: %w", err)
	}
	return nil
}

// Used returns the units spent on day, zero when nothing is recorded.
func (r *QuotaRepository) Used(day string) (int, error) {
	var units int
	err := r.db.QueryRow(`SELECT units FROM quota_usage WHERE day = ?`, day).Scan(&units)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read quota usage: %w", err)
	}
	return units, nil
}
