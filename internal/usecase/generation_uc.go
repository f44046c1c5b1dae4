// File: internal/usecase/generation_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"ai-caption-backend/internal/domain"
	"ai-caption-backend/internal/domain/model"
	"ai-caption-backend/internal/domain/ports/adapter"
	"ai-caption-backend/internal/domain/ports/repository"
	"ai-caption-backend/internal/infra/metrics"
)

// Locker serializes generations per account so a double-tap cannot spend
// two credits for one visible result.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// GenerationResult carries the produced text plus the balance after the
// spend, so clients can refresh their cached counter in one round trip.
type GenerationResult struct {
	Caption          *model.Caption
	CreditsRemaining int64
}

var _ GenerationUseCase = (*generationUC)(nil)

type GenerationUseCase interface {
	// Generate spends one credit, produces a caption and saves it.
	Generate(ctx context.Context, userID string, req adapter.GenerationRequest) (*GenerationResult, error)
	// GenerateAnonymous serves signed-out devices under the rolling quota.
	// Nothing is persisted and no credit moves.
	GenerateAnonymous(ctx context.Context, deviceID string, req adapter.GenerationRequest) (*model.Caption, error)
	// History lists the user's saved captions, newest first.
	History(ctx context.Context, userID string, limit int) ([]*model.Caption, error)
}

type generationUC struct {
	ai       adapter.CaptionGenerator
	ledger   repository.CreditLedgerRepository
	captions repository.CaptionRepository
	quota    repository.UsageQuotaTracker
	locker   Locker
	lockTTL  time.Duration
	log      *zerolog.Logger
}

func NewGenerationUseCase(
	ai adapter.CaptionGenerator,
	ledger repository.CreditLedgerRepository,
	captions repository.CaptionRepository,
	quota repository.UsageQuotaTracker,
	locker Locker,
	log *zerolog.Logger,
) *generationUC {
	return &generationUC{
		ai:       ai,
		ledger:   ledger,
		captions: captions,
		quota:    quota,
		locker:   locker,
		lockTTL:  30 * time.Second,
		log:      log,
	}
}

func lockKey(userID string) string { return "lock:generate:" + userID }

func (u *generationUC) Generate(ctx context.Context, userID string, req adapter.GenerationRequest) (*GenerationResult, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	token, err := u.locker.TryLock(ctx, lockKey(userID), u.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if uErr := u.locker.Unlock(ctx, lockKey(userID), token); uErr != nil {
			u.log.Warn().Err(uErr).Str("user_id", userID).Msg("failed to release generation lock")
		}
	}()

	// Spend first. The provider call can take seconds; holding the credit
	// during it keeps the balance honest for concurrent reads.
	bal, err := u.ledger.Consume(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredits) {
			metrics.IncCreditDenied()
		}
		return nil, err
	}
	metrics.IncCreditConsumed()

	text, usage, err := u.generate(ctx, req)
	if err != nil {
		// Refund the spent credit; the user paid for output, not attempts.
		if _, rErr := u.ledger.AddCredits(ctx, nil, userID, 1); rErr != nil {
			u.log.Error().Err(rErr).Str("user_id", userID).Msg("credit refund after generation failure did not apply")
		}
		return nil, err
	}

	rec, err := model.NewCaption(userID, model.CaptionKind(req.Kind), req.Prompt, req.Tone, text, u.ai.Name())
	if err != nil {
		return nil, err
	}
	if err := u.captions.Save(ctx, nil, rec); err != nil {
		// The user has their text; losing the history row is recoverable.
		u.log.Error().Err(err).Str("user_id", userID).Msg("failed to save caption")
	}

	u.log.Info().
		Str("user_id", userID).
		Str("kind", req.Kind).
		Int("tokens", usage.TotalTokens).
		Int64("credits_remaining", bal.Credits).
		Msg("caption generated")
	return &GenerationResult{Caption: rec, CreditsRemaining: bal.Credits}, nil
}

func (u *generationUC) GenerateAnonymous(ctx context.Context, deviceID string, req adapter.GenerationRequest) (*model.Caption, error) {
	if deviceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	ok, err := u.quota.IsAllowed(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IncQuotaBlocked()
		return nil, domain.ErrQuotaExceeded
	}

	text, _, err := u.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	// Count only after a successful generation; a provider outage should
	// not eat the free tries.
	if _, err := u.quota.Increment(ctx, deviceID); err != nil {
		u.log.Warn().Err(err).Str("device_id", deviceID).Msg("quota increment failed")
	}

	rec, err := model.NewCaption("", model.CaptionKind(req.Kind), req.Prompt, req.Tone, text, u.ai.Name())
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func validateRequest(req adapter.GenerationRequest) error {
	if req.Prompt == "" {
		return domain.ErrInvalidArgument
	}
	k := model.CaptionKind(req.Kind)
	if k != model.CaptionKindCaption && k != model.CaptionKindMeme {
		return domain.ErrInvalidArgument
	}
	return nil
}

func (u *generationUC) generate(ctx context.Context, req adapter.GenerationRequest) (string, adapter.Usage, error) {
	start := time.Now()
	text, usage, err := u.ai.Generate(ctx, req)
	metrics.ObserveGenerationLatency(u.ai.Name(), float64(time.Since(start).Milliseconds()))
	metrics.IncGeneration(u.ai.Name(), err == nil)
	if err != nil {
		u.log.Warn().Err(err).Str("provider", u.ai.Name()).Msg("generation failed")
		return "", adapter.Usage{}, err
	}
	metrics.AddAITokens(u.ai.Name(), usage.TotalTokens)
	return text, usage, nil
}

func (u *generationUC) History(ctx context.Context, userID string, limit int) ([]*model.Caption, error) {
	return u.captions.ListByUser(ctx, nil, userID, limit)
}
