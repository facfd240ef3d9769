// Package repo implements the data persistence layer for the floor entities.
// This file provides small aggregate queries used for conditional responses
// (ETag generation) on the dashboard and table list.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/hoststand/internal/domain"
)

// FloorStamp summarizes every row the dashboard renders. Any write to the
// floor changes at least one field.
type FloorStamp struct {
	Rows       int64
	Versions   int64
	LastUpdate *time.Time
}

// FloorStats builds a FloorStamp from tables, reservations, service records
// and the waitlist.
func FloorStats(ctx context.Context, db *gorm.DB) (FloorStamp, error) {
	var st FloorStamp
	for _, model := range []any{&domain.Table{}, &domain.Reservation{}, &domain.ServiceRecord{}, &domain.WaitlistEntry{}} {
		q := db.WithContext(ctx).Model(model)

		var n int64
		if err := q.Count(&n).Error; err != nil {
			return FloorStamp{}, err
		}
		st.Rows += n
		if n == 0 {
			continue
		}

		// Latest updated_at (avoid MAX() -> TEXT in SQLite)
		var row struct {
			UpdatedAt time.Time
		}
		if err := db.WithContext(ctx).Model(model).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
			return FloorStamp{}, err
		}
		if st.LastUpdate == nil || row.UpdatedAt.After(*st.LastUpdate) {
			t := row.UpdatedAt
			st.LastUpdate = &t
		}
	}

	var v struct{ Total int64 }
	if err := db.WithContext(ctx).Model(&domain.Table{}).Select("COALESCE(SUM(version), 0) AS total").Scan(&v).Error; err != nil {
		return FloorStamp{}, err
	}
	st.Versions = v.Total
	return st, nil
}
