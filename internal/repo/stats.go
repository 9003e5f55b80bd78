package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-country-currency/internal/domain"
)

// CountriesStats returns the number of countries matching f and the greatest
// UpdatedAt among them, used by the HTTP layer to build list ETags. When no
// rows match, count is 0 and maxUpdatedAt is nil.
func CountriesStats(ctx context.Context, db *gorm.DB, f CountryFilter) (count int64, maxUpdatedAt *time.Time, err error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.Country{}))

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
