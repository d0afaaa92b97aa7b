package retrieval

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	chunks := Split("a short document", 100, 20)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "a short document" {
		t.Errorf("expected text unchanged, got %q", chunks[0])
	}
}

func TestSplit_EmptyText(t *testing.T) {
	if got := Split("   \n  ", 100, 20); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestSplit_BreaksAtSentenceBoundary(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third sentence closes the paragraph with more words."
	chunks := Split(text, 50, 10)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Errorf("expected first chunk to end at a sentence boundary, got %q", chunks[0])
	}
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	words := make([]string, 120)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	chunks := Split(text, 100, 30)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Every chunk must fit in the requested size.
	for i, chunk := range chunks {
		if len([]rune(chunk)) > 100 {
			t.Errorf("chunk %d exceeds size: %d runes", i, len([]rune(chunk)))
		}
	}
}

func TestSplit_LargeOverlapStillAdvances(t *testing.T) {
	// A break point pulled back toward the window midpoint combined with an
	// overlap past half the chunk size used to leave start stuck in place.
	text := "aaaaaa " + strings.Repeat("b", 100)

	for overlap := 5; overlap < 10; overlap++ {
		chunks := Split(text, 10, overlap)
		if len(chunks) == 0 {
			t.Fatalf("overlap %d: expected chunks, got none", overlap)
		}
		if len(chunks) > len(text) {
			t.Fatalf("overlap %d: expected bounded chunk count, got %d", overlap, len(chunks))
		}
		last := chunks[len(chunks)-1]
		if !strings.HasSuffix(last, "b") {
			t.Errorf("overlap %d: expected final chunk to reach end of text, got %q", overlap, last)
		}
	}
}

func TestSplit_AllContentCovered(t *testing.T) {
	text := "alpha beta gamma. delta epsilon zeta. eta theta iota. kappa lambda mu."
	chunks := Split(text, 30, 5)

	joined := strings.Join(chunks, " ")
	for _, word := range strings.Fields(strings.ReplaceAll(text, ".", "")) {
		if !strings.Contains(joined, word) {
			t.Errorf("expected word %q present in some chunk", word)
		}
	}
}
