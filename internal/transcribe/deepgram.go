package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/rest"
	interfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	client "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
)

type deepgramTranscriber struct {
	apiKey   string
	model    string
	language string
}

func newDeepgram(apiKey, model, language string) *deepgramTranscriber {
	if strings.TrimSpace(model) == "" {
		model = "nova-2"
	}
	return &deepgramTranscriber{apiKey: apiKey, model: model, language: language}
}

func (t *deepgramTranscriber) Transcribe(ctx context.Context, audio []byte, _ string) (Result, error) {
	c := client.NewREST(t.apiKey, &interfaces.ClientOptions{})
	dg := api.New(c)

	options := &interfaces.PreRecordedTranscriptionOptions{
		Model:       t.model,
		Punctuate:   true,
		SmartFormat: true,
	}
	if t.language != "" {
		options.Language = t.language
	} else {
		options.DetectLanguage = true
	}

	resp, err := dg.FromStream(ctx, bytes.NewReader(audio), options)
	if err != nil {
		return Result{}, fmt.Errorf("deepgram transcription: %w", err)
	}

	if len(resp.Results.Channels) == 0 || len(resp.Results.Channels[0].Alternatives) == 0 {
		return Result{}, nil
	}

	channel := resp.Results.Channels[0]
	alt := channel.Alternatives[0]

	result := Result{
		Text:     strings.TrimSpace(alt.Transcript),
		Language: channel.DetectedLanguage,
		Duration: resp.Metadata.Duration,
	}
	for _, word := range alt.Words {
		result.Segments = append(result.Segments, Span{
			Text:  word.PunctuatedWord,
			Start: word.Start,
			End:   word.End,
		})
	}

	return result, nil
}
