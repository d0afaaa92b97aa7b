package pipeline

import "github.com/lectern-app/lectern/internal/notes"

// FragmentBuffer holds the fragments not yet consumed by a synthesis round,
// in arrival-processing order. Not safe for concurrent use: the session
// worker is the sole mutator.
type FragmentBuffer struct {
	fragments []notes.Fragment
}

func (b *FragmentBuffer) Append(frag notes.Fragment) {
	b.fragments = append(b.fragments, frag)
}

func (b *FragmentBuffer) Len() int {
	return len(b.fragments)
}

// Window returns a copy of the newest n fragments, oldest first. Returns
// fewer when the buffer holds fewer.
func (b *FragmentBuffer) Window(n int) []notes.Fragment {
	if n <= 0 || len(b.fragments) == 0 {
		return nil
	}
	if n > len(b.fragments) {
		n = len(b.fragments)
	}
	out := make([]notes.Fragment, n)
	copy(out, b.fragments[len(b.fragments)-n:])
	return out
}

// Texts returns the text of the newest n fragments, oldest first.
func (b *FragmentBuffer) Texts(n int) []string {
	window := b.Window(n)
	texts := make([]string, 0, len(window))
	for _, frag := range window {
		texts = append(texts, frag.Text)
	}
	return texts
}

// TruncateToNewest drops everything but the most recent fragment, which is
// retained as continuity context for the next synthesis round.
func (b *FragmentBuffer) TruncateToNewest() {
	if len(b.fragments) <= 1 {
		return
	}
	newest := b.fragments[len(b.fragments)-1]
	b.fragments = []notes.Fragment{newest}
}
