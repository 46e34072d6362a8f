package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrRecordNotFound is returned when a lookup by id matches nothing
var ErrRecordNotFound = errors.New("record not found")

func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

// handleDBError wraps a gorm error with the failed operation
func handleDBError(err error, operation string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s failed: %w", operation, ErrRecordNotFound)
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

func applyPagination(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func sortDirection(sortOrder string) string {
	if sortOrder == "asc" || sortOrder == "ASC" {
		return "ASC"
	}
	return "DESC"
}
