package retrieval

import (
	"strings"

	"github.com/iksnae/vibe-context/internal"
)

// Chunk splits text into pieces of at most size runes, each overlapping the
// previous one by overlap runes. A chunk ends after the last newline (or,
// failing that, the last space) inside its window when there is one. Chunks
// are trimmed and blank ones dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = internal.DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= size {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < n {
		end := start + size
		if end >= n {
			chunks = appendChunk(chunks, runes[start:])
			break
		}

		if brk := lastIndex(runes, '\n', start, end); brk > start {
			end = brk + 1
		} else if brk := lastIndex(runes, ' ', start, end); brk > start {
			end = brk + 1
		}
		chunks = appendChunk(chunks, runes[start:end])

		if end-overlap > start {
			start = end - overlap
		} else {
			start = end
		}
	}
	return chunks
}

// lastIndex finds r in runes[from:to+1], returning -1 when absent.
func lastIndex(runes []rune, r rune, from, to int) int {
	for i := to; i >= from; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}

func appendChunk(chunks []string, piece []rune) []string {
	if t := strings.TrimSpace(string(piece)); t != "" {
		return append(chunks, t)
	}
	return chunks
}
