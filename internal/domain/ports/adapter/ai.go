package adapter

import "context"

// GenerationRequest describes one caption/meme generation.
type GenerationRequest struct {
	Kind   string // "caption" | "meme"
	Prompt string // topic or image description
	Tone   string // optional style hint
	Model  string // empty means adapter default
}

// Usage reports token accounting when the provider exposes it.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CaptionGenerator is the hex port for the text-generation backend. The
// service treats it as an opaque request/response call; provider choice is
// wiring, not business logic.
type CaptionGenerator interface {
	Name() string
	Generate(ctx context.Context, req GenerationRequest) (text string, usage Usage, err error)
}
