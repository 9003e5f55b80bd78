// Package services – CountryService
//
// This file implements CountryService, which serves the read and write
// operations on cached countries that do not involve the upstream APIs:
// listing with filters, lookups by name, manual creation, exchange rate
// edits, deletion, and the status/summary image read-backs.
package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-country-currency/internal/artifacts"
	"github.com/tbourn/go-country-currency/internal/domain"
	"github.com/tbourn/go-country-currency/internal/repo"
)

// ListQuery selects and orders countries. Page and PageSize are 1-based;
// PageSize <= 0 returns every match.
type ListQuery struct {
	Region   string
	Currency string
	Sort     string
	Page     int
	PageSize int
}

func (q ListQuery) filter() repo.CountryFilter {
	f := repo.CountryFilter{Region: q.Region, Currency: q.Currency}
	switch q.Sort {
	case repo.SortGDPDesc, repo.SortGDPAsc:
		f.Sort = q.Sort
	}
	if q.PageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		f.Offset = (page - 1) * q.PageSize
		f.Limit = q.PageSize
	}
	return f
}

// CreateCountryInput is the payload accepted by Create.
type CreateCountryInput struct {
	Name            string     `json:"name"              validate:"required,max=100"`
	Capital         *string    `json:"capital"           validate:"omitempty,max=100"`
	Region          *string    `json:"region"            validate:"omitempty,max=100"`
	Population      *int64     `json:"population"        validate:"required,gte=0"`
	CurrencyCode    *string    `json:"currency_code"     validate:"required,min=1,max=10"`
	ExchangeRate    *float64   `json:"exchange_rate"`
	EstimatedGDP    *float64   `json:"estimated_gdp"`
	FlagURL         *string    `json:"flag_url"          validate:"omitempty,max=255"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at"`
}

// Status is the response of GET /status.
type Status struct {
	TotalCountries  int64   `json:"total_countries"`
	LastRefreshedAt *string `json:"last_refreshed_at"`
}

// CountryService provides country CRUD and side-state read-backs.
type CountryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Artifacts holds the refresh timestamp and the summary image.
	Artifacts artifacts.Store
}

// validate reports failing fields by their JSON names.
var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}()

// NewCountryService constructs a CountryService.
func NewCountryService(db *gorm.DB, store artifacts.Store) *CountryService {
	return &CountryService{DB: db, Artifacts: store}
}

// List returns the countries matching q and the total number of matches
// ignoring pagination.
func (s *CountryService) List(ctx context.Context, q ListQuery) ([]domain.Country, int64, error) {
	ctx, span := otel.Tracer("services/CountryService").Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("region", q.Region),
			attribute.String("currency", q.Currency),
			attribute.String("sort", q.Sort),
		),
	)
	defer span.End()

	f := q.filter()
	items, err := repo.ListCountries(ctx, s.DB, f)
	if err != nil {
		return nil, 0, err
	}
	if f.Limit <= 0 {
		return items, int64(len(items)), nil
	}
	total, err := repo.CountCountries(ctx, s.DB, f)
	return items, total, err
}

// Stats returns the match count and latest update time for q, used for
// list ETags.
func (s *CountryService) Stats(ctx context.Context, q ListQuery) (int64, *time.Time, error) {
	return repo.CountriesStats(ctx, s.DB, q.filter())
}

// Get returns the country with the given name.
func (s *CountryService) Get(ctx context.Context, name string) (*domain.Country, error) {
	c, err := repo.GetCountryByName(ctx, s.DB, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCountryNotFound
	}
	return c, err
}

// Create validates in and inserts a new country.
func (s *CountryService) Create(ctx context.Context, in CreateCountryInput) (*domain.Country, error) {
	ctx, span := otel.Tracer("services/CountryService").Start(ctx, "Create",
		trace.WithAttributes(attribute.String("country.name", in.Name)),
	)
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if in.CurrencyCode != nil {
		code := strings.TrimSpace(*in.CurrencyCode)
		in.CurrencyCode = &code
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, validationError(verrs)
		}
		return nil, err
	}

	if _, err := repo.GetCountryByName(ctx, s.DB, in.Name); err == nil {
		return nil, ErrCountryExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}

	c := &domain.Country{
		Name:            in.Name,
		Capital:         in.Capital,
		Region:          in.Region,
		Population:      in.Population,
		CurrencyCode:    in.CurrencyCode,
		ExchangeRate:    in.ExchangeRate,
		EstimatedGDP:    in.EstimatedGDP,
		FlagURL:         in.FlagURL,
		LastRefreshedAt: in.LastRefreshedAt,
	}
	if err := repo.CreateCountry(ctx, s.DB, c); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrCountryExists
		}
		return nil, err
	}
	return c, nil
}

// UpdateExchangeRate replaces the exchange rate of the named country. The
// estimated GDP is not recomputed.
func (s *CountryService) UpdateExchangeRate(ctx context.Context, name string, rate float64) (*domain.Country, error) {
	c, err := repo.UpdateExchangeRate(ctx, s.DB, name, rate)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrCountryNotFound
	}
	return c, err
}

// Delete removes the named country.
func (s *CountryService) Delete(ctx context.Context, name string) error {
	err := repo.DeleteCountry(ctx, s.DB, name)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrCountryNotFound
	}
	return err
}

// Status returns the number of cached countries and the last refresh
// timestamp, nil when no refresh has succeeded yet.
func (s *CountryService) Status(ctx context.Context) (*Status, error) {
	total, err := repo.CountCountries(ctx, s.DB, repo.CountryFilter{})
	if err != nil {
		return nil, err
	}
	st := &Status{TotalCountries: total}
	if s.Artifacts == nil {
		return st, nil
	}
	ts, ok, err := s.Artifacts.LoadTimestamp(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		st.LastRefreshedAt = &ts
	}
	return st, nil
}

// SummaryImage returns the PNG rendered by the last refresh.
func (s *CountryService) SummaryImage(ctx context.Context) ([]byte, error) {
	if s.Artifacts == nil {
		return nil, ErrImageNotFound
	}
	b, ok, err := s.Artifacts.LoadImage(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrImageNotFound
	}
	return b, nil
}

// jsonFieldName reports struct fields by their JSON name.
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func validationError(verrs validator.ValidationErrors) *ValidationError {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must not be empty"
	case "gte":
		return "must be >= " + fe.Param()
	default:
		return "is invalid"
	}
}
