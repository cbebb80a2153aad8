// Package chunk splits document text into overlapping windows for embedding.
//
// Chunking is deterministic: the same text and parameters always produce the
// same chunk sequence. Window ends prefer sentence boundaries so that chunks
// do not cut sentences in half unless the boundary would make the window
// degenerately small.
package chunk

import (
	"fmt"
	"strings"

	askerrors "github.com/askpile/askpile/internal/errors"
)

// Default chunking parameters.
const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// boundaryRunes are the characters treated as sentence boundaries.
var boundaryRunes = map[rune]bool{
	'.':  true,
	'!':  true,
	'?':  true,
	'\n': true,
}

// Split divides text into chunks of at most maxSize characters with the given
// overlap between adjacent chunks. Sizes are measured in runes, not bytes, so
// multi-byte text chunks correctly.
//
// A window that would end mid-text is shortened to the last sentence boundary
// inside it, but only when that boundary lies past the window's midpoint;
// earlier boundaries would produce uselessly small chunks. Chunks are trimmed
// of surrounding whitespace and empty chunks are dropped.
func Split(text string, maxSize, overlap int) ([]string, error) {
	if maxSize <= 0 {
		return nil, askerrors.ConfigError(
			fmt.Sprintf("chunk size must be positive, got %d", maxSize), nil)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, askerrors.ConfigError(
			fmt.Sprintf("chunk overlap must be in [0, %d), got %d", maxSize, overlap), nil)
	}

	if strings.TrimSpace(text) == "" {
		return []string{}, nil
	}

	runes := []rune(text)
	if len(runes) <= maxSize {
		return []string{strings.TrimSpace(text)}, nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			// Back off to the last sentence boundary in the window,
			// keeping the boundary character inside the chunk.
			if rel := lastBoundary(runes[start:end]); rel > maxSize/2 {
				end = start + rel + 1
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, piece)
		}

		if end >= len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			// Overlap would revisit the same window; advance without it.
			next = end
		}
		start = next
	}

	return chunks, nil
}

// lastBoundary returns the index of the last sentence boundary rune in window,
// or -1 if the window contains none.
func lastBoundary(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if boundaryRunes[window[i]] {
			return i
		}
	}
	return -1
}
