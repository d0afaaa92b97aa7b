package notes

import (
	"context"
	"fmt"
	"strings"

	"github.com/lectern-app/lectern/internal/llm"
)

// ShiftDetector asks an LLM whether the newest transcript fragment moves to
// a different topic than the fragments before it. Used to trigger synthesis
// earlier than the time threshold.
type ShiftDetector struct {
	client llm.Client
}

func NewShiftDetector(client llm.Client) *ShiftDetector {
	return &ShiftDetector{client: client}
}

func (d *ShiftDetector) Detect(ctx context.Context, latest string, prior []string) (bool, error) {
	if d.client == nil || len(prior) == 0 {
		return false, nil
	}

	prompt := fmt.Sprintf(`Earlier transcript fragments:
%s

Latest fragment:
%s

Does the latest fragment introduce a clearly different topic than the earlier fragments? Answer with exactly YES or NO.`,
		strings.Join(prior, "\n---\n"), latest)

	result, err := d.client.Complete(ctx, llm.Request{User: prompt, MaxTokens: 5})
	if err != nil {
		return false, fmt.Errorf("detect topic shift: %w", err)
	}

	answer := strings.ToUpper(strings.TrimSpace(result))
	return strings.HasPrefix(answer, "YES"), nil
}
