package transcribe

import (
	"context"
	"fmt"
)

// Span is one timed region of a transcription result.
type Span struct {
	Text         string
	Start        float64
	End          float64
	NoSpeechProb float64
}

// Result is the decoded text of one audio segment.
type Result struct {
	Text     string
	Language string
	Duration float64
	Segments []Span
}

// Transcriber converts one audio segment to text. Implementations may be
// slow; callers own timeout and cancellation via ctx.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (Result, error)
}

// New builds a Transcriber for the named provider.
func New(provider, apiKey, model, language string) (Transcriber, error) {
	switch provider {
	case "openai":
		return newOpenAI(apiKey, model, language), nil
	case "deepgram":
		return newDeepgram(apiKey, model, language), nil
	case "stub":
		return Stub{}, nil
	default:
		return nil, fmt.Errorf("unknown transcriber provider %q: supported providers are openai, deepgram, stub", provider)
	}
}

// Stub is a no-op transcriber for running without an STT key. It reports
// no speech, so segments pass through the pipeline without side effects.
type Stub struct{}

func (Stub) Transcribe(context.Context, []byte, string) (Result, error) {
	return Result{}, nil
}
