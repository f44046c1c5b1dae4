package ai

import (
	"fmt"
	"strings"

	"ai-caption-backend/internal/domain/ports/adapter"
)

// buildPrompt turns a generation request into the instruction we send to
// whichever model backs the adapter. Kept in one place so Gemini and the
// OpenAI-compatible fallback produce comparable output.
func buildPrompt(req adapter.GenerationRequest) string {
	var b strings.Builder
	switch req.Kind {
	case "meme":
		b.WriteString("Write one short, punchy meme caption")
	default:
		b.WriteString("Write one engaging social media caption")
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, " in a %s tone", req.Tone)
	}
	fmt.Fprintf(&b, " for the following subject. Reply with the caption text only, no quotes, no hashtags unless they fit naturally.\n\nSubject: %s", req.Prompt)
	return b.String()
}
