// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Country
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// Name lookups are exact matches on the Unicode case-folded name.
//
// Error semantics:
//   - When a country is not found, functions return ErrNotFound.
//   - Inserting a name that already exists returns ErrDuplicate.
//   - Other DB errors are propagated as-is.
package repo

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-country-currency/internal/domain"
)

// Supported list orderings.
const (
	SortNone    = ""
	SortGDPDesc = "gdp_desc"
	SortGDPAsc  = "gdp_asc"
)

// CountryFilter narrows and orders ListCountries. Empty strings disable a
// filter; Limit <= 0 disables pagination.
type CountryFilter struct {
	Region   string
	Currency string
	Sort     string
	Offset   int
	Limit    int
}

func (f CountryFilter) apply(q *gorm.DB) *gorm.DB {
	if r := strings.TrimSpace(f.Region); r != "" {
		q = q.Where("LOWER(region) = LOWER(?)", r)
	}
	if c := strings.TrimSpace(f.Currency); c != "" {
		q = q.Where("LOWER(currency_code) = LOWER(?)", c)
	}
	return q
}

// byName scopes q to the row whose case-folded name matches.
func byName(q *gorm.DB, name string) *gorm.DB {
	return q.Where("name_key = ?", domain.FoldName(name))
}

// backfillNameKeys fills name_key for rows stored before the column existed.
func backfillNameKeys(db *gorm.DB) error {
	var rows []domain.Country
	if err := db.Where("name_key IS NULL OR name_key = ''").Find(&rows).Error; err != nil {
		return err
	}
	for i := range rows {
		err := db.Model(&rows[i]).UpdateColumn("name_key", domain.FoldName(rows[i].Name)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ListCountries returns countries matching f. With a GDP sort, rows with a
// NULL estimated_gdp always come last; ties are broken by id so repeated
// calls return the same order.
func ListCountries(ctx context.Context, db *gorm.DB, f CountryFilter) ([]domain.Country, error) {
	q := f.apply(db.WithContext(ctx).Model(&domain.Country{}))

	switch f.Sort {
	case SortGDPDesc:
		q = q.Order("estimated_gdp IS NULL").Order("estimated_gdp DESC")
	case SortGDPAsc:
		q = q.Order("estimated_gdp IS NULL").Order("estimated_gdp ASC")
	}
	q = q.Order("id")

	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}

	out := make([]domain.Country, 0)
	err := q.Find(&out).Error
	return out, err
}

// CountCountries returns how many rows match the region/currency filters of f.
func CountCountries(ctx context.Context, db *gorm.DB, f CountryFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Country{})).Count(&total).Error
	return total, err
}

// GetCountryByName fetches a single country by name.
func GetCountryByName(ctx context.Context, db *gorm.DB, name string) (*domain.Country, error) {
	var c domain.Country
	if err := byName(db.WithContext(ctx), name).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCountry inserts c and fills its ID.
func CreateCountry(ctx context.Context, db *gorm.DB, c *domain.Country) error {
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// UpdateExchangeRate sets exchange_rate only; estimated_gdp is left as is.
func UpdateExchangeRate(ctx context.Context, db *gorm.DB, name string, rate float64) (*domain.Country, error) {
	c, err := GetCountryByName(ctx, db, name)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(c).Update("exchange_rate", rate).Error; err != nil {
		return nil, err
	}
	c.ExchangeRate = &rate
	return c, nil
}

// DeleteCountry hard-deletes the named country.
func DeleteCountry(ctx context.Context, db *gorm.DB, name string) error {
	res := byName(db.WithContext(ctx), name).Delete(&domain.Country{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertCountry updates every mutable field of the row whose name matches
// rec.Name, or inserts rec when none does. The stored name keeps its
// original spelling on update. It reports whether a row was inserted.
func UpsertCountry(ctx context.Context, db *gorm.DB, rec *domain.Country) (created bool, err error) {
	existing, err := GetCountryByName(ctx, db, rec.Name)
	switch {
	case errors.Is(err, ErrNotFound):
		if err := db.WithContext(ctx).Create(rec).Error; err != nil {
			return false, err
		}
		return true, nil
	case err != nil:
		return false, err
	}

	existing.Capital = rec.Capital
	existing.Region = rec.Region
	existing.Population = rec.Population
	existing.CurrencyCode = rec.CurrencyCode
	existing.ExchangeRate = rec.ExchangeRate
	existing.EstimatedGDP = rec.EstimatedGDP
	existing.FlagURL = rec.FlagURL
	existing.LastRefreshedAt = rec.LastRefreshedAt
	if err := db.WithContext(ctx).Save(existing).Error; err != nil {
		return false, err
	}
	*rec = *existing
	return false, nil
}

// TopCountriesByGDP returns up to n countries with a non-null estimate,
// highest first.
func TopCountriesByGDP(ctx context.Context, db *gorm.DB, n int) ([]domain.Country, error) {
	out := make([]domain.Country, 0, n)
	err := db.WithContext(ctx).
		Where("estimated_gdp IS NOT NULL").
		Order("estimated_gdp DESC").
		Order("id").
		Limit(n).
		Find(&out).Error
	return out, err
}
