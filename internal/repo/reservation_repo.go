package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
)

// ReservationFilter narrows ListReservations. Zero values mean "any".
type ReservationFilter struct {
	Date     string
	Time     string
	Statuses []domain.ReservationStatus
}

// CreateReservation inserts r, assigning an ID when empty. A taken code
// returns ErrDuplicate.
func CreateReservation(ctx context.Context, db *gorm.DB, r *domain.Reservation) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	return translateCreate(db.WithContext(ctx).Create(r).Error)
}

// GetReservation fetches by internal ID or by external code.
func GetReservation(ctx context.Context, db *gorm.DB, ref string) (*domain.Reservation, error) {
	var r domain.Reservation
	err := db.WithContext(ctx).Where("id = ? OR code = ?", ref, ref).First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReservations returns matches ordered by date, time, then creation.
func ListReservations(ctx context.Context, db *gorm.DB, f ReservationFilter) ([]domain.Reservation, error) {
	q := db.WithContext(ctx).Model(&domain.Reservation{})
	if f.Date != "" {
		q = q.Where("date = ?", f.Date)
	}
	if f.Time != "" {
		q = q.Where("time = ?", f.Time)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", domain.StoredNames(f.Statuses...))
	}
	var out []domain.Reservation
	err := q.Order("date asc").Order("time asc").Order("created_at asc").Find(&out).Error
	return out, err
}

// UpdateReservation applies updates to reservation id if its status is one
// of from. Zero affected rows yields ErrNotFound or ErrConflict.
func UpdateReservation(ctx context.Context, db *gorm.DB, id string, from []domain.ReservationStatus, updates map[string]any) error {
	if err := encodeLists(updates); err != nil {
		return err
	}
	updates["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.Reservation{}).
		Where("id = ? AND status IN ?", id, domain.StoredNames(from...)).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(ctx, db, &domain.Reservation{}, "id = ?", id)
	}
	return nil
}
