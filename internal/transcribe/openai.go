package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type openaiTranscriber struct {
	client   *openai.Client
	model    string
	language string
}

func newOpenAI(apiKey, model, language string) *openaiTranscriber {
	if strings.TrimSpace(model) == "" {
		model = openai.Whisper1
	}
	return &openaiTranscriber{
		client:   openai.NewClient(apiKey),
		model:    model,
		language: language,
	}
}

func (t *openaiTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (Result, error) {
	if filename == "" {
		filename = "segment.wav"
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: filename,
		Reader:   bytes.NewReader(audio),
		Language: t.language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Result{}, fmt.Errorf("openai transcription: %w", err)
	}

	result := Result{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
		Duration: resp.Duration,
	}
	for _, seg := range resp.Segments {
		result.Segments = append(result.Segments, Span{
			Text:         seg.Text,
			Start:        seg.Start,
			End:          seg.End,
			NoSpeechProb: seg.NoSpeechProb,
		})
	}

	return result, nil
}
