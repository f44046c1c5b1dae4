//go:build !integration

package model_test

import (
	"strings"
	"testing"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
)

func testPackage() *model.CreditPackage {
	return &model.CreditPackage{
		ID:              "pkg-1",
		Name:            "Creator",
		Credits:         250,
		PriceMinorUnits: 19900,
		Currency:        "INR",
		Active:          true,
	}
}

func TestNewPaymentIntent(t *testing.T) {
	t.Run("creates a pending intent with a fresh transaction id", func(t *testing.T) {
		p, err := model.NewPaymentIntent("user-1", testPackage())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if p.Status != model.IntentStatusPending {
			t.Errorf("expected status pending, got %s", p.Status)
		}
		if !strings.HasPrefix(p.TransactionID, "txn_") {
			t.Errorf("expected txn_ prefix, got %s", p.TransactionID)
		}
		if p.CreditsApplied {
			t.Error("new intent must not have credits applied")
		}
		if p.AmountMinorUnits != 19900 || p.CreditsRequested != 250 {
			t.Errorf("package amounts not carried over: %+v", p)
		}
	})

	t.Run("rejects missing user or broken package", func(t *testing.T) {
		if _, err := model.NewPaymentIntent("", testPackage()); err != domain.ErrInvalidArgument {
			t.Errorf("expected ErrInvalidArgument for empty user, got %v", err)
		}
		bad := testPackage()
		bad.Credits = 0
		if _, err := model.NewPaymentIntent("user-1", bad); err != domain.ErrInvalidArgument {
			t.Errorf("expected ErrInvalidArgument for zero credits, got %v", err)
		}
	})

	t.Run("transaction ids are unique", func(t *testing.T) {
		seen := map[string]bool{}
		for i := 0; i < 100; i++ {
			id := model.NewTransactionID()
			if seen[id] {
				t.Fatalf("duplicate transaction id %s", id)
			}
			seen[id] = true
		}
	})
}

func TestPaymentIntentTransitions(t *testing.T) {
	cases := []struct {
		from, to model.IntentStatus
		allowed  bool
	}{
		{model.IntentStatusPending, model.IntentStatusProcessing, true},
		{model.IntentStatusPending, model.IntentStatusFailed, true},
		{model.IntentStatusPending, model.IntentStatusCancelled, true},
		{model.IntentStatusPending, model.IntentStatusSuccess, false},
		{model.IntentStatusProcessing, model.IntentStatusSuccess, true},
		{model.IntentStatusProcessing, model.IntentStatusFailed, true},
		{model.IntentStatusProcessing, model.IntentStatusCancelled, false},
		{model.IntentStatusSuccess, model.IntentStatusFailed, false},
		{model.IntentStatusSuccess, model.IntentStatusPending, false},
		{model.IntentStatusFailed, model.IntentStatusSuccess, false},
		{model.IntentStatusCancelled, model.IntentStatusProcessing, false},
	}
	for _, c := range cases {
		p := &model.PaymentIntent{Status: c.from}
		if got := p.CanTransitionTo(c.to); got != c.allowed {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestPaymentIntentIsTerminal(t *testing.T) {
	terminal := []model.IntentStatus{model.IntentStatusSuccess, model.IntentStatusFailed, model.IntentStatusCancelled}
	for _, s := range terminal {
		if !(&model.PaymentIntent{Status: s}).IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []model.IntentStatus{model.IntentStatusPending, model.IntentStatusProcessing} {
		if (&model.PaymentIntent{Status: s}).IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestNewCaption(t *testing.T) {
	t.Run("valid caption", func(t *testing.T) {
		c, err := model.NewCaption("user-1", model.CaptionKindCaption, "beach sunset", "funny", "Tan lines and good times", "gemini-2.0-flash")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if c.ID == "" {
			t.Error("expected generated id")
		}
	})
	t.Run("rejects empty text and unknown kind", func(t *testing.T) {
		if _, err := model.NewCaption("user-1", model.CaptionKindMeme, "prompt", "", "", "m"); err != domain.ErrInvalidArgument {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := model.NewCaption("user-1", "poster", "prompt", "", "text", "m"); err != domain.ErrInvalidArgument {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
