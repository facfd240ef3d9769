package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
)

// CreateServiceRecord inserts s, assigning an ID when empty.
func CreateServiceRecord(ctx context.Context, db *gorm.DB, s *domain.ServiceRecord) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now
	return translateCreate(db.WithContext(ctx).Create(s).Error)
}

// GetServiceRecord fetches by internal ID or by external code.
func GetServiceRecord(ctx context.Context, db *gorm.DB, ref string) (*domain.ServiceRecord, error) {
	var s domain.ServiceRecord
	err := db.WithContext(ctx).Where("id = ? OR code = ?", ref, ref).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListServiceRecords returns records in the given statuses (all when none),
// ordered by seating time.
func ListServiceRecords(ctx context.Context, db *gorm.DB, statuses ...domain.ServiceStatus) ([]domain.ServiceRecord, error) {
	q := db.WithContext(ctx).Model(&domain.ServiceRecord{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", domain.StoredNames(statuses...))
	}
	var out []domain.ServiceRecord
	err := q.Order("seated_at asc").Find(&out).Error
	return out, err
}

// CompleteServiceRecord marks an active record completed at departed.
func CompleteServiceRecord(ctx context.Context, db *gorm.DB, id string, departed time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.ServiceRecord{}).
		Where("id = ? AND status = ?", id, domain.ServiceActive.Stored()).
		Updates(map[string]any{
			"status":      domain.ServiceCompleted,
			"departed_at": departed,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOrConflict(ctx, db, &domain.ServiceRecord{}, "id = ?", id)
	}
	return nil
}
