package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-country-currency/internal/artifacts"
	"github.com/tbourn/go-country-currency/internal/reconcile"
	"github.com/tbourn/go-country-currency/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_%s.db", uuid.NewString()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newStore(t *testing.T) *artifacts.FileStore {
	t.Helper()
	return artifacts.NewFileStore(filepath.Join(t.TempDir(), "cache"))
}

type fakeGateway struct {
	entries      []reconcile.Entry
	rates        reconcile.Rates
	countriesErr error
	ratesErr     error

	countriesCalls atomic.Int32
	ratesCalls     atomic.Int32

	mu       sync.Mutex
	inflight int
	maxSeen  int
	block    chan struct{}
}

func (g *fakeGateway) FetchCountries(ctx context.Context) ([]reconcile.Entry, error) {
	g.countriesCalls.Add(1)
	g.mu.Lock()
	g.inflight++
	if g.inflight > g.maxSeen {
		g.maxSeen = g.inflight
	}
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inflight--
		g.mu.Unlock()
	}()
	if g.block != nil {
		<-g.block
	}
	return g.entries, g.countriesErr
}

func (g *fakeGateway) FetchRates(ctx context.Context) (reconcile.Rates, error) {
	g.ratesCalls.Add(1)
	return g.rates, g.ratesErr
}

func i64p(i int64) *int64     { return &i }
func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }
