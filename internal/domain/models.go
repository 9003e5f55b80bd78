// Package domain defines the persistence models for cached country data and
// refresh bookkeeping. These types are mapped with GORM and form the core
// data layer of the country currency service.
package domain

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"gorm.io/gorm"
)

// Country is one cached country row, keyed by its common name.
//
// Fields:
//   - ID: auto-increment surrogate key.
//   - Name: common name, never empty; kept as first written.
//   - NameKey: case-folded Name; unique, maintained by BeforeSave.
//   - Capital / Region: optional descriptive fields.
//   - Population: 0 when the upstream directory omits it.
//   - CurrencyCode: first currency listed upstream, or nil.
//   - ExchangeRate: units of CurrencyCode per USD, or nil when unresolved.
//   - EstimatedGDP: derived estimate; nil when it cannot be computed.
//   - FlagURL: SVG flag location.
//   - LastRefreshedAt: set only by the refresh operation.
//   - CreatedAt / UpdatedAt: managed by GORM; used for list ETags.
type Country struct {
	ID              uint       `json:"id"                gorm:"primaryKey;autoIncrement"`
	Name            string     `json:"name"              gorm:"type:varchar(100);not null"`
	NameKey         string     `json:"-"                 gorm:"column:name_key;type:varchar(200);uniqueIndex:ux_countries_name_key"`
	Capital         *string    `json:"capital"           gorm:"type:varchar(100)"`
	Region          *string    `json:"region"            gorm:"type:varchar(100);index:idx_countries_region"`
	Population      *int64     `json:"population"`
	CurrencyCode    *string    `json:"currency_code"     gorm:"type:varchar(10);index:idx_countries_currency"`
	ExchangeRate    *float64   `json:"exchange_rate"`
	EstimatedGDP    *float64   `json:"estimated_gdp"     gorm:"column:estimated_gdp"`
	FlagURL         *string    `json:"flag_url"          gorm:"column:flag_url;type:varchar(255)"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
	CreatedAt       time.Time  `json:"-"`
	UpdatedAt       time.Time  `json:"-"`
}

// TableName returns the database table name for Country.
func (Country) TableName() string { return "countries" }

// BeforeSave keeps NameKey in step with Name.
func (c *Country) BeforeSave(*gorm.DB) error {
	c.NameKey = FoldName(c.Name)
	return nil
}

// FoldName returns the lookup key for a country name: trimmed and Unicode
// case-folded, so "Åland Islands" and "åLAND ISLANDS" share a key.
func FoldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// RefreshRun records the outcome of one successful refresh so an idempotent
// retry can return the same response without contacting the upstream APIs.
type RefreshRun struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	TotalProcessed int       `json:"total_processed" gorm:"not null"`
	Upserted       int       `json:"upserted"        gorm:"not null"`
	Skipped        int       `json:"skipped"         gorm:"not null"`
	RefreshedAt    time.Time `json:"refreshed_at"    gorm:"not null;index"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// TableName returns the database table name for RefreshRun.
func (RefreshRun) TableName() string { return "refresh_runs" }
