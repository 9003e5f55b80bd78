package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-country-currency/internal/artifacts"
	"github.com/tbourn/go-country-currency/internal/http/middleware"
	"github.com/tbourn/go-country-currency/internal/repo"
	"github.com/tbourn/go-country-currency/internal/services"
)

// ---------- test wiring ----------

type env struct {
	db        *gorm.DB
	store     *artifacts.FileStore
	countries *services.CountryService
	engine    *gin.Engine
}

func newEnv(t *testing.T, refresher RefreshService) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("handlers_%s.db", uuid.NewString()))
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
		t.Fatalf("migrate: %v", err)
	}

	store := artifacts.NewFileStore(t.TempDir())
	countries := services.NewCountryService(db, store)
	if refresher == nil {
		refresher = &stubRefresher{}
	}
	h := New(countries, refresher)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{Routes: []string{"/countries/refresh"}}, func(ctx context.Context, key string, _ time.Time) (bool, error) {
		return key == "seen", nil
	}))
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/status", h.Status)
	r.GET("/countries", h.ListCountries)
	r.GET("/countries/image", h.SummaryImage)
	r.GET("/countries/:name", h.GetCountry)
	r.POST("/countries", h.CreateCountry)
	r.POST("/countries/refresh", h.Refresh)
	r.PUT("/countries/:name", h.UpdateExchangeRate)
	r.DELETE("/countries/:name", h.DeleteCountry)

	return &env{db: db, store: store, countries: countries, engine: r}
}

func (e *env) do(method, target string, body any, hdr ...string) *httptest.ResponseRecorder {
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, _ := json.Marshal(b)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *env) seed(t *testing.T, in services.CreateCountryInput) {
	t.Helper()
	if _, err := e.countries.Create(context.Background(), in); err != nil {
		t.Fatalf("seed %q: %v", in.Name, err)
	}
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func i64p(i int64) *int64     { return &i }
func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }

// ---------- refresher stub ----------

type stubRefresher struct {
	res       *services.RefreshResult
	err       error
	replayRes *services.RefreshResult
	replayErr error

	refreshKeys []string
	replayKeys  []string
}

func (s *stubRefresher) Refresh(_ context.Context, key string) (*services.RefreshResult, error) {
	s.refreshKeys = append(s.refreshKeys, key)
	return s.res, s.err
}

func (s *stubRefresher) Replay(_ context.Context, key string) (*services.RefreshResult, error) {
	s.replayKeys = append(s.replayKeys, key)
	return s.replayRes, s.replayErr
}
