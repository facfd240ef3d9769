package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/hoststand/internal/domain"
)

var activeWaitlist = []domain.WaitlistStatus{domain.WaitlistWaiting, domain.WaitlistNotified}

// CreateWaitlistEntry inserts w, assigning an ID when empty. A taken code
// returns ErrDuplicate.
func CreateWaitlistEntry(ctx context.Context, db *gorm.DB, w *domain.WaitlistEntry) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	w.CreatedAt, w.UpdatedAt = now, now
	return translateCreate(db.WithContext(ctx).Create(w).Error)
}

// GetWaitlistEntry fetches by internal ID or by external code.
func GetWaitlistEntry(ctx context.Context, db *gorm.DB, ref string) (*domain.WaitlistEntry, error) {
	var w domain.WaitlistEntry
	err := db.WithContext(ctx).Where("id = ? OR code = ?", ref, ref).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWaitlist returns entries in the given statuses (all when none) in
// queue order: priority, then arrival.
func ListWaitlist(ctx context.Context, db *gorm.DB, statuses ...domain.WaitlistStatus) ([]domain.WaitlistEntry, error) {
	q := db.WithContext(ctx).Model(&domain.WaitlistEntry{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", domain.StoredNames(statuses...))
	}
	var out []domain.WaitlistEntry
	err := q.Order("priority asc").Order("added_at asc").Find(&out).Error
	return out, err
}

// CountActiveWaitlist counts parties still waiting or notified.
func CountActiveWaitlist(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("status IN ?", domain.StoredNames(activeWaitlist...)).
		Count(&n).Error
	return n, err
}

// WaitlistLock names the queue_locks row that guards priority assignment.
const WaitlistLock = "waitlist"

func seedQueueLocks(db *gorm.DB) error {
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.QueueLock{Name: WaitlistLock, UpdatedAt: time.Now().UTC()}).Error
}

// LockWaitlist takes the waitlist row lock inside tx and holds it until tx
// ends. It must be the first statement in tx: a concurrent add, in this
// process or another, blocks here and then reads a queue that includes
// every add committed before it.
func LockWaitlist(ctx context.Context, tx *gorm.DB) error {
	bump := func() (int64, error) {
		res := tx.WithContext(ctx).
			Model(&domain.QueueLock{}).
			Where("name = ?", WaitlistLock).
			Updates(map[string]any{
				"version":    gorm.Expr("version + 1"),
				"updated_at": time.Now().UTC(),
			})
		return res.RowsAffected, res.Error
	}
	n, err := bump()
	if err != nil || n > 0 {
		return err
	}
	// Schema predates the lock row.
	if err := seedQueueLocks(tx.WithContext(ctx)); err != nil {
		return err
	}
	_, err = bump()
	return err
}

// MaxActivePriority returns the highest priority among active entries, or 0.
func MaxActivePriority(ctx context.Context, db *gorm.DB) (int, error) {
	var row struct{ Priority int }
	err := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Select("priority").
		Where("status IN ?", domain.StoredNames(activeWaitlist...)).
		Order("priority desc").
		Limit(1).
		Scan(&row).Error
	return row.Priority, err
}

// UpdateWaitlistEntry applies updates to entry id if its status is one of
// from. Zero affected rows yields ErrNotFound or ErrConflict.
func UpdateWaitlistEntry(ctx context.Context, db *gorm.DB, id string, from []domain.WaitlistStatus, updates map[string]any) error {
	if err := encodeLists(updates); err != nil {
		return err
	}
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.WaitlistEntry{}).
		Where("id = ? AND status IN ?", id, domain.StoredNames(from...)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(ctx, db, &domain.WaitlistEntry{}, "id = ?", id)
	}
	return nil
}

// DeleteWaitlistEntry removes an entry outright.
func DeleteWaitlistEntry(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.WaitlistEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
