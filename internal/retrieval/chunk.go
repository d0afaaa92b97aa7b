package retrieval

import "strings"

// Chunk is one stored slice of an uploaded reference document.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Content    string `json:"content"`
}

// Split cuts text into overlapping chunks of roughly size runes, preferring
// to break at paragraph and sentence boundaries. Overlap carries trailing
// context into the next chunk so a concept split mid-sentence is still
// retrievable from both sides.
func Split(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = 1200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		// breakPoint can pull end back far enough that end-overlap lands at
		// or before start; force progress so the loop always terminates.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// breakPoint backtracks from end looking for a paragraph break, then a
// sentence end, then whitespace. Falls back to a hard cut.
func breakPoint(runes []rune, start, end int) int {
	min := start + (end-start)/2

	for i := end; i > min; i-- {
		if i < len(runes) && runes[i] == '\n' && i > 0 && runes[i-1] == '\n' {
			return i
		}
	}
	for i := end; i > min; i-- {
		r := runes[i-1]
		if r == '.' || r == '!' || r == '?' {
			return i
		}
	}
	for i := end; i > min; i-- {
		if runes[i-1] == ' ' || runes[i-1] == '\n' {
			return i
		}
	}
	return end
}
