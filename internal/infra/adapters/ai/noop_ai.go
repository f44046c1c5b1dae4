package ai

import (
	"context"
	"fmt"

	"ai-caption-backend/internal/domain/ports/adapter"
)

var _ adapter.CaptionGenerator = (*NoopAdapter)(nil)

// NoopAdapter echoes a deterministic caption. Used in dev mode and tests so
// the billing paths can run without a model provider.
type NoopAdapter struct{}

func NewNoopAdapter() *NoopAdapter { return &NoopAdapter{} }

func (n *NoopAdapter) Name() string { return "noop" }

func (n *NoopAdapter) Generate(_ context.Context, req adapter.GenerationRequest) (string, adapter.Usage, error) {
	return fmt.Sprintf("[%s] %s", req.Kind, req.Prompt), adapter.Usage{}, nil
}
