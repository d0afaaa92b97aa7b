package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Trigger decides after each fragment append whether to run a mid-stream
// synthesis round. The rule: never with fewer than Window fragments; always
// when Interval has elapsed since the last successful round (or none has
// run yet); otherwise ask the topic-shift detector whether the newest
// fragment left the current topic.
type Trigger struct {
	Window   int
	Interval time.Duration
	Detector ShiftDetector

	now func() time.Time
}

func NewTrigger(window int, interval time.Duration, detector ShiftDetector) *Trigger {
	if window <= 0 {
		window = 3
	}
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Trigger{
		Window:   window,
		Interval: interval,
		Detector: detector,
		now:      time.Now,
	}
}

func (t *Trigger) Evaluate(ctx context.Context, sessionID string, data *SessionData) bool {
	if data.Buffer.Len() < t.Window {
		return false
	}

	last := data.LastSynthesis()
	if last.IsZero() || t.now().Sub(last) >= t.Interval {
		return true
	}

	if t.Detector == nil {
		return false
	}

	texts := data.Buffer.Texts(t.Window)
	latest := texts[len(texts)-1]
	prior := texts[:len(texts)-1]

	shift, err := t.Detector.Detect(ctx, latest, prior)
	if err != nil {
		// Detector failure never forces or blocks a round; the time-based
		// trigger will fire on a later fragment regardless.
		slog.Warn("topic shift detection failed", "session", sessionID, "error", err)
		return false
	}
	if shift {
		slog.Info("topic shift detected, triggering early synthesis", "session", sessionID)
	}
	return shift
}
