//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai-caption-backend/internal/domain/model"
)

func newTestIntent(t *testing.T) *model.PaymentIntent {
	t.Helper()
	pkg := &model.CreditPackage{ID: "pack-250", Credits: 250, PriceMinorUnits: 19900, Currency: "INR", Active: true}
	p, err := model.NewPaymentIntent("user-1", pkg)
	if err != nil {
		t.Fatalf("NewPaymentIntent: %v", err)
	}
	return p
}

func TestPaymentIntentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPaymentIntentRepo(testPool)

	t.Run("insert and find round trip", func(t *testing.T) {
		cleanup(t)
		p := newTestIntent(t)
		if err := repo.Insert(ctx, nil, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		got, err := repo.FindByTransactionID(ctx, nil, p.TransactionID)
		if err != nil {
			t.Fatalf("FindByTransactionID: %v", err)
		}
		if got.UserID != p.UserID || got.Status != model.IntentStatusPending || got.CreditsRequested != 250 {
			t.Errorf("round trip mismatch: %+v", got)
		}
	})

	t.Run("provider order id is recorded once", func(t *testing.T) {
		cleanup(t)
		p := newTestIntent(t)
		if err := repo.Insert(ctx, nil, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		ok, err := repo.SetProviderOrderIfEmpty(ctx, nil, p.TransactionID, "order_1")
		if err != nil || !ok {
			t.Fatalf("first set: ok=%v err=%v", ok, err)
		}
		ok, err = repo.SetProviderOrderIfEmpty(ctx, nil, p.TransactionID, "order_other")
		if err != nil {
			t.Fatalf("second set: %v", err)
		}
		if ok {
			t.Error("second set must not win")
		}

		got, _ := repo.FindByProviderOrderID(ctx, nil, "order_1")
		if got == nil || got.TransactionID != p.TransactionID {
			t.Errorf("lookup by provider order failed: %+v", got)
		}
	})

	t.Run("only one concurrent confirmation claims processing", func(t *testing.T) {
		cleanup(t)
		p := newTestIntent(t)
		if err := repo.Insert(ctx, nil, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		const workers = 8
		var wg sync.WaitGroup
		wins := make(chan bool, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.ClaimProcessing(ctx, nil, p.TransactionID, "pay_1", "sig_1")
				if err != nil {
					t.Errorf("ClaimProcessing: %v", err)
					return
				}
				wins <- ok
			}()
		}
		wg.Wait()
		close(wins)

		won := 0
		for ok := range wins {
			if ok {
				won++
			}
		}
		if won != 1 {
			t.Errorf("claims won = %d, want exactly 1", won)
		}
	})

	t.Run("credits applied flips exactly once", func(t *testing.T) {
		cleanup(t)
		p := newTestIntent(t)
		if err := repo.Insert(ctx, nil, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		ok, err := repo.MarkCreditsApplied(ctx, nil, p.TransactionID)
		if err != nil || !ok {
			t.Fatalf("first flip: ok=%v err=%v", ok, err)
		}
		ok, err = repo.MarkCreditsApplied(ctx, nil, p.TransactionID)
		if err != nil {
			t.Fatalf("second flip: %v", err)
		}
		if ok {
			t.Error("second flip must report false")
		}
	})

	t.Run("terminal statuses refuse further transitions", func(t *testing.T) {
		cleanup(t)
		p := newTestIntent(t)
		if err := repo.Insert(ctx, nil, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if ok, _ := repo.ClaimProcessing(ctx, nil, p.TransactionID, "pay_1", "sig_1"); !ok {
			t.Fatal("claim failed")
		}
		if ok, _ := repo.MarkSucceeded(ctx, nil, p.TransactionID); !ok {
			t.Fatal("mark succeeded failed")
		}

		if ok, _ := repo.MarkFailedIfOpen(ctx, nil, p.TransactionID, "late failure"); ok {
			t.Error("a successful intent must not become failed")
		}
		if ok, _ := repo.CancelIfPending(ctx, nil, p.TransactionID); ok {
			t.Error("a successful intent must not become cancelled")
		}
		got, _ := repo.FindByTransactionID(ctx, nil, p.TransactionID)
		if got.Status != model.IntentStatusSuccess {
			t.Errorf("status = %s, want success", got.Status)
		}
	})

	t.Run("cancel pending by user spares settled intents", func(t *testing.T) {
		cleanup(t)
		settled := newTestIntent(t)
		if err := repo.Insert(ctx, nil, settled); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		repo.ClaimProcessing(ctx, nil, settled.TransactionID, "pay_1", "sig_1")
		repo.MarkSucceeded(ctx, nil, settled.TransactionID)

		pending := newTestIntent(t)
		if err := repo.Insert(ctx, nil, pending); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		n, err := repo.CancelPendingByUser(ctx, nil, "user-1")
		if err != nil {
			t.Fatalf("CancelPendingByUser: %v", err)
		}
		if n != 1 {
			t.Errorf("cancelled %d, want 1", n)
		}
		got, _ := repo.FindByTransactionID(ctx, nil, settled.TransactionID)
		if got.Status != model.IntentStatusSuccess {
			t.Errorf("settled intent was touched: %s", got.Status)
		}
	})

	t.Run("lists stale pending intents only", func(t *testing.T) {
		cleanup(t)
		old := newTestIntent(t)
		if err := repo.Insert(ctx, nil, old); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		// Age the row behind the repo's back.
		if _, err := testPool.Exec(ctx,
			`UPDATE payment_intents SET created_at = NOW() - INTERVAL '2 hours' WHERE transaction_id = $1`,
			old.TransactionID); err != nil {
			t.Fatalf("age row: %v", err)
		}
		fresh := newTestIntent(t)
		if err := repo.Insert(ctx, nil, fresh); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		stale, err := repo.ListPendingOlderThan(ctx, nil, time.Now().Add(-time.Hour), 10)
		if err != nil {
			t.Fatalf("ListPendingOlderThan: %v", err)
		}
		if len(stale) != 1 || stale[0].TransactionID != old.TransactionID {
			t.Errorf("stale = %+v, want only the aged intent", stale)
		}
	})
}
