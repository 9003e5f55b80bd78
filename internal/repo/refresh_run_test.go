package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-country-currency/internal/domain"
)

func TestRefreshRun_CreateAndGet(t *testing.T) {
	db := newRepoDB(t, &domain.RefreshRun{})
	ctx := context.Background()
	at := time.Date(2025, 10, 19, 8, 25, 0, 123456000, time.UTC)

	run := &domain.RefreshRun{TotalProcessed: 250, Upserted: 249, Skipped: 1, RefreshedAt: at}
	if err := CreateRefreshRun(ctx, db, run); err != nil {
		t.Fatalf("CreateRefreshRun: %v", err)
	}
	if run.ID == "" {
		t.Fatalf("expected generated ID")
	}

	got, err := GetRefreshRun(ctx, db, run.ID)
	if err != nil {
		t.Fatalf("GetRefreshRun: %v", err)
	}
	if got.TotalProcessed != 250 || got.Skipped != 1 || !got.RefreshedAt.Equal(at) {
		t.Fatalf("unexpected run: %+v", got)
	}

	if _, err := GetRefreshRun(ctx, db, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
