package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ai-caption-backend/internal/domain/ports/adapter"
	"ai-caption-backend/internal/domain/ports/repository"
)

// PaymentReconciler periodically scans for stale pending intents left by
// crashed apps and dropped callbacks, asks the provider what actually
// happened, and settles each intent one way or the other. Failed intents
// are never retried; only pending ones are probed.
type PaymentReconciler struct {
	intents    repository.PaymentIntentRepository
	gateway    adapter.OrderGateway
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	log        *zerolog.Logger
}

func NewPaymentReconciler(
	intents repository.PaymentIntentRepository,
	gateway adapter.OrderGateway,
	interval, staleAfter time.Duration,
	batchSize int,
	logger *zerolog.Logger,
) *PaymentReconciler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PaymentReconciler{
		intents:    intents,
		gateway:    gateway,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		log:        logger,
	}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.intents.ListPendingOlderThan(ctx, nil, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("reconciler: list pending intents")
		return
	}
	for _, p := range pending {
		w.reconcile(ctx, p.TransactionID, p.ProviderOrderID, p.UserID)
	}
}

func (w *PaymentReconciler) reconcile(ctx context.Context, transactionID, providerOrderID, userID string) {
	// No provider order means checkout never opened; nothing to probe.
	if providerOrderID == "" {
		if _, err := w.intents.CancelIfPending(ctx, nil, transactionID); err != nil {
			w.log.Error().Err(err).Str("transaction_id", transactionID).Msg("reconciler: cancel orderless intent")
		}
		return
	}

	order, err := w.gateway.FetchOrderStatus(ctx, providerOrderID)
	if err != nil {
		w.log.Warn().Err(err).Str("transaction_id", transactionID).Msg("reconciler: fetch order status")
		return
	}

	switch order.Status {
	case "paid":
		// Money moved but no confirmation reached us. The funnel cannot run
		// without the provider signature, so surface it loudly for manual
		// review instead of guessing.
		w.log.Error().
			Str("transaction_id", transactionID).
			Str("provider_order_id", providerOrderID).
			Str("user_id", userID).
			Msg("reconciler: order paid but intent still pending, needs review")
	case "created", "attempted":
		// Checkout was abandoned. Past the stale deadline the intent is
		// closed out; a late confirmation for it becomes a logged no-op.
		ok, err := w.intents.CancelIfPending(ctx, nil, transactionID)
		if err != nil {
			w.log.Error().Err(err).Str("transaction_id", transactionID).Msg("reconciler: cancel abandoned intent")
			return
		}
		if ok {
			w.log.Info().Str("transaction_id", transactionID).Str("order_status", order.Status).Msg("reconciler: cancelled abandoned intent")
		}
	default:
		w.log.Warn().
			Str("transaction_id", transactionID).
			Str("order_status", order.Status).
			Msg("reconciler: unexpected provider order status")
	}
}
