package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreditService_SummaryWithoutLedger(t *testing.T) {
	f := newFixture(t)
	got, err := f.credits.Summary(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if got.Active || got.Remaining != 0 || got.PeriodEnd != nil {
		t.Fatalf("summary=%+v", got)
	}
	if err := f.credits.Check(context.Background(), "nobody", 1); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Check err=%v", err)
	}
}

func TestCreditService_GrantCheckDeduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, "u1", 3)

	if err := f.credits.Check(ctx, "u1", 3); err != nil {
		t.Fatalf("Check(3): %v", err)
	}
	if err := f.credits.Check(ctx, "u1", 4); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Check(4) err=%v", err)
	}
	if err := f.credits.Deduct(ctx, f.db, "u1", 2); err != nil {
		t.Fatalf("Deduct(2): %v", err)
	}
	if err := f.credits.Deduct(ctx, f.db, "u1", 2); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("over-deduct err=%v", err)
	}
	if got := f.remaining(t, "u1"); got != 1 {
		t.Fatalf("remaining=%d want 1 (failed deduct must not be partial)", got)
	}

	sum, err := f.credits.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.CreditsUsed != 2 || sum.TotalTranslations != 1 || !sum.Active {
		t.Fatalf("summary=%+v", sum)
	}
	if sum.UsagePercentage < 66 || sum.UsagePercentage > 67 {
		t.Fatalf("usage=%v", sum.UsagePercentage)
	}
}

func TestCreditService_ExpiredPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, "u1", 10)

	later := time.Now().Add(31 * 24 * time.Hour)
	f.credits.Now = func() time.Time { return later }

	if err := f.credits.Check(ctx, "u1", 1); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Check after period err=%v", err)
	}
	if err := f.credits.Deduct(ctx, f.db, "u1", 1); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Deduct after period err=%v", err)
	}
	sum, err := f.credits.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if sum.Active || sum.Remaining != 0 {
		t.Fatalf("expired summary=%+v", sum)
	}

	f.credits.Now = nil
	f.grant(t, "u1", 5)
	if got := f.remaining(t, "u1"); got != 5 {
		t.Fatalf("remaining after regrant=%d", got)
	}
}

func TestCreditService_ExpireDue(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, "u1", 1)
	f.grant(t, "u2", 1)

	f.credits.Now = func() time.Time { return time.Now().Add(40 * 24 * time.Hour) }
	n, err := f.credits.ExpireDue(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ExpireDue n=%d err=%v", n, err)
	}
}
