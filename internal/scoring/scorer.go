// Package scoring estimates how important a transcript fragment is likely
// to be for later review. The score is a heuristic over the fragment text
// and its timed spans, clamped to [0, 1].
package scoring

import (
	"strings"

	"github.com/lectern-app/lectern/internal/transcribe"
)

var emphasisMarkers = []string{
	"important", "remember", "key point", "takeaway", "exam",
	"definition", "in summary", "to summarize", "note that", "crucial",
	"main idea", "for example",
}

type Scorer struct{}

func New() Scorer {
	return Scorer{}
}

// Score rates a fragment. Longer, denser speech with explicit emphasis
// markers scores higher; mostly-silent segments score lower.
func (Scorer) Score(text string, segments []transcribe.Span) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	score := 0.5

	// Length: very short fragments are usually filler.
	switch {
	case len(words) < 8:
		score -= 0.2
	case len(words) > 40:
		score += 0.1
	}

	lower := strings.ToLower(text)
	for _, marker := range emphasisMarkers {
		if strings.Contains(lower, marker) {
			score += 0.15
			break
		}
	}

	if strings.Contains(text, "?") {
		score += 0.05
	}

	// Penalize segments the decoder itself thought were mostly non-speech.
	if len(segments) > 0 {
		var noSpeech float64
		for _, seg := range segments {
			noSpeech += seg.NoSpeechProb
		}
		avg := noSpeech / float64(len(segments))
		if avg > 0.5 {
			score -= 0.25
		}
	}

	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
