package model

import (
	"time"

	"github.com/google/uuid"

	"ai-caption-backend/internal/domain"
)

type CaptionKind string

const (
	CaptionKindCaption CaptionKind = "caption"
	CaptionKindMeme    CaptionKind = "meme"
)

// Caption is one generated result, kept as the user's history.
type Caption struct {
	ID        string // UUID
	UserID    string // empty for anonymous trial generations
	Kind      CaptionKind
	Prompt    string // the user's topic / image description
	Tone      string // e.g. "funny", "sarcastic"; free-form
	Text      string // the generated caption or meme text
	Model     string // which model produced it
	CreatedAt time.Time
}

func NewCaption(userID string, kind CaptionKind, prompt, tone, text, model string) (*Caption, error) {
	if prompt == "" || text == "" {
		return nil, domain.ErrInvalidArgument
	}
	if kind != CaptionKindCaption && kind != CaptionKindMeme {
		return nil, domain.ErrInvalidArgument
	}
	return &Caption{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Prompt:    prompt,
		Tone:      tone,
		Text:      text,
		Model:     model,
		CreatedAt: time.Now(),
	}, nil
}
