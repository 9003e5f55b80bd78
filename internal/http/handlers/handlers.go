// Package handlers exposes the Country Currency API over Gin.
//
// Handlers are transport-thin: they parse and validate input, call the
// application services, and translate results and service errors into HTTP
// responses through the helpers in response.go.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-country-currency/internal/domain"
	"github.com/tbourn/go-country-currency/internal/services"
)

// CountryService is the country read/write surface consumed by handlers.
//
// Implementations must be safe for concurrent use and honor ctx.
type CountryService interface {
	// List returns matching countries and the total ignoring pagination.
	List(ctx context.Context, q services.ListQuery) ([]domain.Country, int64, error)
	// Stats returns the match count and latest update time, for ETags.
	Stats(ctx context.Context, q services.ListQuery) (int64, *time.Time, error)
	Get(ctx context.Context, name string) (*domain.Country, error)
	Create(ctx context.Context, in services.CreateCountryInput) (*domain.Country, error)
	UpdateExchangeRate(ctx context.Context, name string, rate float64) (*domain.Country, error)
	Delete(ctx context.Context, name string) error
	Status(ctx context.Context) (*services.Status, error)
	SummaryImage(ctx context.Context) ([]byte, error)
}

// RefreshService rebuilds the cache from the upstream APIs.
type RefreshService interface {
	// Refresh runs a refresh; a non-empty key makes it replayable.
	Refresh(ctx context.Context, key string) (*services.RefreshResult, error)
	// Replay returns the result stored under key.
	Replay(ctx context.Context, key string) (*services.RefreshResult, error)
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	countries CountryService
	refresher RefreshService
}

// New constructs Handlers bound to the given services.
func New(countries CountryService, refresher RefreshService) *Handlers {
	return &Handlers{countries: countries, refresher: refresher}
}
