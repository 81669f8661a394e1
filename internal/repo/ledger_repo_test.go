package repo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tbourn/go-translate-backend/internal/domain"
)

func TestResetLedger_CreatesThenResets(t *testing.T) {
	db := newTestDB(t, &domain.CreditLedger{})
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := GetLedger(ctx, db, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	l, err := ResetLedger(ctx, db, "u1", 5, now, now.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("ResetLedger: %v", err)
	}
	if l.Remaining() != 5 || !l.Active {
		t.Fatalf("ledger=%+v", l)
	}

	ok, err := DeductCredits(ctx, db, "u1", 3, now)
	if err != nil || !ok {
		t.Fatalf("deduct ok=%v err=%v", ok, err)
	}
	l2, err := ResetLedger(ctx, db, "u1", 10, now, now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	got, _ := GetLedger(ctx, db, "u1")
	if l2.ID != l.ID || got.CreditsUsed != 0 || got.CreditsAvailable != 10 || got.TotalTranslations != 1 {
		t.Fatalf("after reset: %+v", got)
	}
}

func TestDeductCredits_Conditions(t *testing.T) {
	db := newTestDB(t, &domain.CreditLedger{})
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := ResetLedger(ctx, db, "u1", 5, now.Add(-time.Hour), now.Add(time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name    string
		user    string
		n       int
		at      time.Time
		ok      bool
		wantUse int
	}{
		{"spend 2", "u1", 2, now, true, 2},
		{"overdraw rejected", "u1", 4, now, false, 2},
		{"spend rest", "u1", 3, now, true, 5},
		{"empty", "u1", 1, now, false, 5},
		{"unknown user", "nobody", 1, now, false, 5},
		{"zero", "u1", 0, now, false, 5},
	}
	for _, tc := range tests {
		ok, err := DeductCredits(ctx, db, tc.user, tc.n, tc.at)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if ok != tc.ok {
			t.Fatalf("%s: ok=%v want %v", tc.name, ok, tc.ok)
		}
		l, _ := GetLedger(ctx, db, "u1")
		if l.CreditsUsed != tc.wantUse {
			t.Fatalf("%s: used=%d want %d", tc.name, l.CreditsUsed, tc.wantUse)
		}
	}
	l, _ := GetLedger(ctx, db, "u1")
	if l.TotalTranslations != 2 {
		t.Fatalf("total_translations=%d want 2", l.TotalTranslations)
	}
}

func TestDeductCredits_ExpiredOrInactive(t *testing.T) {
	db := newTestDB(t, &domain.CreditLedger{})
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := ResetLedger(ctx, db, "u1", 5, now.Add(-2*time.Hour), now.Add(-time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if ok, _ := DeductCredits(ctx, db, "u1", 1, now); ok {
		t.Fatal("expired period must not be charged")
	}

	n, err := ExpireLedgers(ctx, db, now)
	if err != nil || n != 1 {
		t.Fatalf("expired=%d err=%v", n, err)
	}
	l, _ := GetLedger(ctx, db, "u1")
	if l.Active {
		t.Fatal("ledger should be inactive")
	}
	if n, _ := ExpireLedgers(ctx, db, now); n != 0 {
		t.Fatalf("second pass touched %d rows", n)
	}
}

func TestDeductCredits_ConcurrentNeverOverdraws(t *testing.T) {
	db := newTestDB(t, &domain.CreditLedger{})
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	ctx := context.Background()
	now := time.Now().UTC()
	if _, err := ResetLedger(ctx, db, "u1", 5, now.Add(-time.Hour), now.Add(time.Hour)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	const workers = 40
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		failures  atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := DeductCredits(ctx, db, "u1", 1, now)
			if err != nil {
				failures.Add(1)
				return
			}
			if ok {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if n := failures.Load(); n != 0 {
		t.Fatalf("%d deductions errored", n)
	}
	if n := successes.Load(); n != 5 {
		t.Fatalf("successes=%d want 5", n)
	}
	got, err := GetLedger(ctx, db, "u1")
	if err != nil {
		t.Fatalf("GetLedger: %v", err)
	}
	if got.CreditsUsed != 5 || got.TotalTranslations != 5 || got.Remaining() != 0 {
		t.Fatalf("ledger=%+v", got)
	}
}
