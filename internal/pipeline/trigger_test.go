package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeDetector struct {
	shift  bool
	err    error
	calls  int
	latest string
	prior  []string
}

func (d *fakeDetector) Detect(_ context.Context, latest string, prior []string) (bool, error) {
	d.calls++
	d.latest = latest
	d.prior = prior
	return d.shift, d.err
}

func dataWithFragments(texts ...string) *SessionData {
	data := NewSessionData()
	for i, text := range texts {
		data.Buffer.Append(frag(i, text))
	}
	return data
}

func TestTrigger_Evaluate_BelowWindowNeverFires(t *testing.T) {
	detector := &fakeDetector{shift: true}
	trig := NewTrigger(3, time.Minute, detector)

	data := dataWithFragments("one", "two")
	if trig.Evaluate(context.Background(), "s1", data) {
		t.Fatal("expected no trigger below window size")
	}
	if detector.calls != 0 {
		t.Errorf("expected detector not consulted below window, got %d calls", detector.calls)
	}
}

func TestTrigger_Evaluate_FirstWindowFires(t *testing.T) {
	trig := NewTrigger(3, time.Minute, &fakeDetector{})

	// No synthesis has run yet, so the elapsed-time rule fires immediately
	// once the window is full.
	data := dataWithFragments("one", "two", "three")
	if !trig.Evaluate(context.Background(), "s1", data) {
		t.Fatal("expected trigger on first full window")
	}
}

func TestTrigger_Evaluate_IntervalElapsed(t *testing.T) {
	detector := &fakeDetector{}
	trig := NewTrigger(3, time.Minute, detector)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trig.now = func() time.Time { return base.Add(61 * time.Second) }

	data := dataWithFragments("one", "two", "three")
	data.SetLastSynthesis(base)

	if !trig.Evaluate(context.Background(), "s1", data) {
		t.Fatal("expected trigger after interval elapsed")
	}
	if detector.calls != 0 {
		t.Errorf("expected detector skipped when interval fires, got %d calls", detector.calls)
	}
}

func TestTrigger_Evaluate_WithinIntervalAsksDetector(t *testing.T) {
	detector := &fakeDetector{shift: true}
	trig := NewTrigger(3, time.Minute, detector)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trig.now = func() time.Time { return base.Add(10 * time.Second) }

	data := dataWithFragments("one", "two", "three")
	data.SetLastSynthesis(base)

	if !trig.Evaluate(context.Background(), "s1", data) {
		t.Fatal("expected trigger on detected topic shift")
	}
	if detector.calls != 1 {
		t.Fatalf("expected 1 detector call, got %d", detector.calls)
	}
	if detector.latest != "three" {
		t.Errorf("expected latest fragment 'three', got %q", detector.latest)
	}
	if len(detector.prior) != 2 || detector.prior[0] != "one" || detector.prior[1] != "two" {
		t.Errorf("expected prior [one two], got %v", detector.prior)
	}
}

func TestTrigger_Evaluate_NoShiftNoTrigger(t *testing.T) {
	detector := &fakeDetector{shift: false}
	trig := NewTrigger(3, time.Minute, detector)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trig.now = func() time.Time { return base.Add(10 * time.Second) }

	data := dataWithFragments("one", "two", "three")
	data.SetLastSynthesis(base)

	if trig.Evaluate(context.Background(), "s1", data) {
		t.Fatal("expected no trigger within interval and no shift")
	}
}

func TestTrigger_Evaluate_DetectorErrorSuppressed(t *testing.T) {
	detector := &fakeDetector{err: errors.New("llm unavailable")}
	trig := NewTrigger(3, time.Minute, detector)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trig.now = func() time.Time { return base.Add(10 * time.Second) }

	data := dataWithFragments("one", "two", "three")
	data.SetLastSynthesis(base)

	if trig.Evaluate(context.Background(), "s1", data) {
		t.Fatal("expected detector failure to suppress the trigger")
	}
}

func TestTrigger_Evaluate_NilDetector(t *testing.T) {
	trig := NewTrigger(3, time.Minute, nil)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	trig.now = func() time.Time { return base.Add(10 * time.Second) }

	data := dataWithFragments("one", "two", "three")
	data.SetLastSynthesis(base)

	if trig.Evaluate(context.Background(), "s1", data) {
		t.Fatal("expected no trigger with nil detector within interval")
	}
}
