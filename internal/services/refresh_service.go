// Package services – RefreshService
//
// This file implements RefreshService, which rebuilds the country cache from
// the upstream APIs: fetch both datasets, reconcile them, upsert every row in
// one transaction, then write the refresh timestamp and summary image.
//
// Refreshes are serialized. Side-state failures (timestamp, image) are logged
// and never undo the committed data.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-country-currency/internal/artifacts"
	"github.com/tbourn/go-country-currency/internal/domain"
	"github.com/tbourn/go-country-currency/internal/reconcile"
	"github.com/tbourn/go-country-currency/internal/render"
	"github.com/tbourn/go-country-currency/internal/repo"
	"github.com/tbourn/go-country-currency/internal/upstream"
)

// TimestampLayout formats refresh timestamps: RFC 3339 with microseconds and
// a numeric offset, e.g. 2025-10-19T08:25:00.123456+00:00.
const TimestampLayout = "2006-01-02T15:04:05.000000-07:00"

// Gateway fetches the two upstream datasets.
type Gateway interface {
	FetchCountries(ctx context.Context) ([]reconcile.Entry, error)
	FetchRates(ctx context.Context) (reconcile.Rates, error)
}

// SummaryRenderer draws the summary image.
type SummaryRenderer interface {
	Render(s render.Summary) ([]byte, error)
}

// RefreshResult is the response body of a refresh.
type RefreshResult struct {
	Message         string `json:"message"`
	TotalProcessed  int    `json:"total_processed"`
	LastRefreshedAt string `json:"last_refreshed_at"`

	// Replayed is set when the result was served from an earlier refresh
	// with the same idempotency key.
	Replayed bool `json:"-"`
}

// RefreshService rebuilds the country cache.
type RefreshService struct {
	DB        *gorm.DB
	Gateway   Gateway
	Artifacts artifacts.Store
	Renderer  SummaryRenderer

	// Multiplier draws the GDP multiplier; nil means reconcile.RandomMultiplier.
	Multiplier reconcile.Multiplier
	// Now returns the current time; nil means time.Now.
	Now func() time.Time
	// IdempotencyTTL is how long a refresh can be replayed by key.
	IdempotencyTTL time.Duration

	mu sync.Mutex
}

// NewRefreshService constructs a RefreshService with the default renderer
// and a 24h idempotency window.
func NewRefreshService(db *gorm.DB, gw Gateway, store artifacts.Store) *RefreshService {
	return &RefreshService{
		DB:             db,
		Gateway:        gw,
		Artifacts:      store,
		Renderer:       render.NewRenderer(),
		IdempotencyTTL: 24 * time.Hour,
	}
}

func (s *RefreshService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Refresh runs one full refresh. When key is non-empty and an earlier
// refresh stored a result under it, that result is returned instead.
//
// Errors: *UpstreamError when either API fails (nothing is written), or the
// database error that rolled the batch back.
func (s *RefreshService) Refresh(ctx context.Context, key string) (*RefreshResult, error) {
	ctx, span := otel.Tracer("services/RefreshService").Start(ctx, "Refresh")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	log := zerolog.Ctx(ctx)

	if key != "" {
		if res, err := s.replay(ctx, key); err == nil {
			refreshTotal.WithLabelValues(outcomeReplay).Inc()
			return res, nil
		}
	}

	started := s.now().UTC()

	entries, err := s.Gateway.FetchCountries(ctx)
	if err != nil {
		return nil, s.upstreamFailure(ctx, span, upstream.CountriesSource, err)
	}
	rates, err := s.Gateway.FetchRates(ctx)
	if err != nil {
		return nil, s.upstreamFailure(ctx, span, upstream.RatesSource, err)
	}

	refreshedAt := s.now().UTC()
	res := reconcile.Reconcile(entries, rates, refreshedAt, s.Multiplier)
	span.SetAttributes(
		attribute.Int("refresh.processed", res.Processed),
		attribute.Int("refresh.skipped", res.Skipped),
	)

	if key != "" {
		if _, err := repo.PurgeExpiredIdempotency(ctx, s.DB, s.now().UTC()); err != nil {
			log.Warn().Err(err).Msg("purge expired idempotency keys")
		}
	}

	run := &domain.RefreshRun{
		TotalProcessed: res.Processed,
		Upserted:       len(res.Records),
		Skipped:        res.Skipped,
		RefreshedAt:    refreshedAt,
		StartedAt:      started,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range res.Records {
			if _, err := repo.UpsertCountry(ctx, tx, &res.Records[i]); err != nil {
				return fmt.Errorf("upsert %q: %w", res.Records[i].Name, err)
			}
		}
		run.FinishedAt = s.now().UTC()
		if err := repo.CreateRefreshRun(ctx, tx, run); err != nil {
			return err
		}
		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, key, run.ID, http.StatusOK, refreshedAt, s.ttl()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		refreshTotal.WithLabelValues(outcomeFailure).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction failed")
		log.Error().Err(err).Msg("refresh transaction rolled back")
		return nil, err
	}

	ts := refreshedAt.Format(TimestampLayout)
	if s.Artifacts != nil {
		if err := s.Artifacts.SaveTimestamp(ctx, ts); err != nil {
			log.Warn().Err(err).Msg("save refresh timestamp")
		}
	}
	s.renderSummary(ctx, ts)

	refreshTotal.WithLabelValues(outcomeSuccess).Inc()
	refreshDuration.Observe(time.Since(started).Seconds())
	refreshRecords.Set(float64(len(res.Records)))
	log.Info().
		Int("processed", res.Processed).
		Int("upserted", len(res.Records)).
		Int("skipped", res.Skipped).
		Str("run_id", run.ID).
		Msg("refresh complete")

	return &RefreshResult{
		Message:         "Refresh complete",
		TotalProcessed:  res.Processed,
		LastRefreshedAt: ts,
	}, nil
}

// Replay returns the stored result of an earlier refresh made with key.
func (s *RefreshService) Replay(ctx context.Context, key string) (*RefreshResult, error) {
	res, err := s.replay(ctx, key)
	if err == nil {
		refreshTotal.WithLabelValues(outcomeReplay).Inc()
	}
	return res, err
}

func (s *RefreshService) replay(ctx context.Context, key string) (*RefreshResult, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, key, s.now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReplayNotFound
	}
	if err != nil {
		return nil, err
	}
	run, err := repo.GetRefreshRun(ctx, s.DB, rec.RunID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrReplayNotFound
	}
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		Message:         "Refresh complete",
		TotalProcessed:  run.TotalProcessed,
		LastRefreshedAt: run.RefreshedAt.UTC().Format(TimestampLayout),
		Replayed:        true,
	}, nil
}

func (s *RefreshService) upstreamFailure(ctx context.Context, span trace.Span, source string, err error) error {
	refreshTotal.WithLabelValues(outcomeUpstream).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, source+" unavailable")
	zerolog.Ctx(ctx).Warn().Err(err).Str("source", source).Msg("upstream fetch failed")
	return &UpstreamError{Source: source, Err: err}
}

// renderSummary draws and stores the summary image. Failures are logged only.
func (s *RefreshService) renderSummary(ctx context.Context, ts string) {
	if s.Renderer == nil || s.Artifacts == nil {
		return
	}
	log := zerolog.Ctx(ctx)

	total, err := repo.CountCountries(ctx, s.DB, repo.CountryFilter{})
	if err != nil {
		log.Warn().Err(err).Msg("summary image: count countries")
		return
	}
	top, err := repo.TopCountriesByGDP(ctx, s.DB, render.TopN)
	if err != nil {
		log.Warn().Err(err).Msg("summary image: top countries")
		return
	}
	png, err := s.Renderer.Render(render.Summary{RefreshedAt: ts, Total: total, Top: top})
	if err != nil {
		log.Warn().Err(err).Msg("summary image: render")
		return
	}
	if err := s.Artifacts.SaveImage(ctx, png); err != nil {
		log.Warn().Err(err).Msg("summary image: save")
	}
}

func (s *RefreshService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}
