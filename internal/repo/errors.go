package repo

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so callers can use either.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrConflict means a compare-and-set write found the row in an unexpected
// state: another writer got there first.
var ErrConflict = errors.New("conflict")

// ErrDuplicate indicates a unique constraint violation.
var ErrDuplicate = errors.New("duplicate")

// isUniqueViolation recognizes unique violations across the three drivers.
// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key value") ||
		strings.Contains(low, "duplicate entry")
}

func translateCreate(err error) error {
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// CodeExists reports whether a row of model already uses the external code.
func CodeExists(ctx context.Context, db *gorm.DB, model any, code string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).Model(model).Where("code = ?", code).Count(&n).Error
	return n > 0, err
}

// encodeLists rewrites []int values in a map update to the JSON text the
// serializer:json columns hold. Map updates bypass gorm serializers.
func encodeLists(updates map[string]any) error {
	for k, v := range updates {
		if ns, ok := v.([]int); ok {
			b, err := json.Marshal(ns)
			if err != nil {
				return err
			}
			updates[k] = string(b)
		}
	}
	return nil
}
