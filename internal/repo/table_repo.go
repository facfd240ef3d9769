// Package repo implements the data persistence layer for the floor entities.
// This file provides repository functions for the Table model.
//
// Status writes are compare-and-set: the UPDATE names the statuses the row
// may currently be in, and zero affected rows means either the table does
// not exist (ErrNotFound) or its status moved underneath us (ErrConflict).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
)

// TableFilter narrows ListTables. Zero values mean "any".
type TableFilter struct {
	Statuses        []domain.TableStatus
	MinCapacity     int
	HeldFor         string // Reservation.ID
	IncludeInactive bool
}

// CreateTable inserts an active, available table. A taken number returns
// ErrDuplicate.
func CreateTable(ctx context.Context, db *gorm.DB, number, capacity int, location string) (*domain.Table, error) {
	now := time.Now().UTC()
	t := &domain.Table{
		ID:        uuid.NewString(),
		Number:    number,
		Capacity:  capacity,
		Location:  location,
		Status:    domain.TableAvailable,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, translateCreate(err)
	}
	return t, nil
}

// ListTables returns tables ordered by number.
func ListTables(ctx context.Context, db *gorm.DB, f TableFilter) ([]domain.Table, error) {
	q := db.WithContext(ctx).Model(&domain.Table{})
	if !f.IncludeInactive {
		q = q.Where("is_active = ?", true)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", domain.StoredNames(f.Statuses...))
	}
	if f.MinCapacity > 0 {
		q = q.Where("capacity >= ?", f.MinCapacity)
	}
	if f.HeldFor != "" {
		q = q.Where("held_for_reservation_id = ?", f.HeldFor)
	}
	var out []domain.Table
	err := q.Order("number asc").Find(&out).Error
	return out, err
}

// GetTableByNumber fetches one table, active or not.
func GetTableByNumber(ctx context.Context, db *gorm.DB, number int) (*domain.Table, error) {
	var t domain.Table
	if err := db.WithContext(ctx).Where("number = ?", number).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTablesByNumbers returns the tables that exist among numbers, ordered by
// number. Missing numbers are simply absent from the result.
func GetTablesByNumbers(ctx context.Context, db *gorm.DB, numbers []int) ([]domain.Table, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	var out []domain.Table
	err := db.WithContext(ctx).
		Where("number IN ?", numbers).
		Order("number asc").
		Find(&out).Error
	return out, err
}

// TransitionTable moves an active table to status to, provided it is
// currently in one of from. serviceID and heldFor are written as given; nil
// clears the reference. The version is bumped on success.
func TransitionTable(ctx context.Context, db *gorm.DB, number int, from []domain.TableStatus, to domain.TableStatus, serviceID, heldFor *string) error {
	res := db.WithContext(ctx).
		Model(&domain.Table{}).
		Where("number = ? AND is_active = ? AND status IN ?", number, true, domain.StoredNames(from...)).
		Updates(map[string]any{
			"status":                  to,
			"current_service_id":      serviceID,
			"held_for_reservation_id": heldFor,
			"version":                 gorm.Expr("version + 1"),
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(ctx, db, &domain.Table{}, "number = ? AND is_active = ?", number, true)
	}
	return nil
}

// SetTableActive activates or deactivates a table. Tables are never deleted,
// so past service records keep pointing at a real number.
func SetTableActive(ctx context.Context, db *gorm.DB, number int, active bool) error {
	res := db.WithContext(ctx).
		Model(&domain.Table{}).
		Where("number = ?", number).
		Updates(map[string]any{"is_active": active, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// missingOrConflict decides why a compare-and-set touched no rows.
func missingOrConflict(ctx context.Context, db *gorm.DB, model any, where string, args ...any) error {
	var n int64
	if err := db.WithContext(ctx).Model(model).Where(where, args...).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
