// package repositories provides persistence layer implementations for all model types.
//
// Each repository wraps a *sql.DB and issues explicit SQL against the schema
// created by [shared.RunMigrations].
package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// NextSequence atomically increments and returns the next sequence number for the given table.
//
// Sequence numbers give jobs an unambiguous start order independent of UUIDs and timestamps.
func NextSequence(db *sql.DB, table string) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequenceTable := table + "_sequence"

	_, err = tx.Exec(fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = tx.QueryRow(fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence transaction: %w", err)
	}

	return sequence, nil
}

// rowScanner is satisfied by both [sql.Row] and [sql.Rows].
type rowScanner interface {
	Scan(dest ...any) error
}

// excludeClause renders "AND column NOT IN (?, ...)" for ids, or nothing when ids is empty.
func excludeClause(column string, ids []string) (string, []any) {
	if len(ids) == 0 {
		return "", nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	return fmt.Sprintf(" AND %s NOT IN (%s)", column, marks), args
}

func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// requireRow turns a zero-row update into err.
func requireRow(result sql.Result, err error) error {
	rows, rerr := result.RowsAffected()
	if rerr != nil {
		return fmt.Errorf("failed to get affected rows: %w", rerr)
	}
	if rows == 0 {
		return err
	}
	return nil
}
