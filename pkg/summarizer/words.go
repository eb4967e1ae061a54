package summarizer

import (
	"regexp"
	"strings"
)

var paragraphBreakRE = regexp.MustCompile(`\n\s*\n`)

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TruncateWords keeps the first n words of text. Whitespace between the kept
// words is normalized to single spaces.
func TruncateWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ")
}

// SplitChunks splits text into contiguous chunks of at most chunkWords words.
// Paragraphs are kept together when they fit; a paragraph longer than a whole
// chunk is split between words. No chunk is ever empty.
func SplitChunks(text string, chunkWords int) []string {
	if chunkWords < 1 {
		chunkWords = 1
	}

	var chunks []string
	var current []string
	currentWords := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, strings.Join(current, "\n\n"))
			current = current[:0]
			currentWords = 0
		}
	}

	for _, paragraph := range paragraphBreakRE.Split(text, -1) {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			continue
		}

		if len(words) > chunkWords {
			flush()
			for start := 0; start < len(words); start += chunkWords {
				end := min(start+chunkWords, len(words))
				chunks = append(chunks, strings.Join(words[start:end], " "))
			}
			continue
		}

		if currentWords+len(words) > chunkWords {
			flush()
		}
		current = append(current, strings.Join(words, " "))
		currentWords += len(words)
	}
	flush()

	return chunks
}
