package ai

import (
	"strings"
	"unicode/utf8"
)

const paragraphSeparator = "\n\n"

// SplitChunks splits text into paragraph-aligned chunks of at most
// maxRunes runes. A paragraph is never split in the middle; boundaries
// fall only at paragraph separators, so a single oversized paragraph
// becomes its own oversized chunk.
func SplitChunks(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	paragraphs := strings.Split(text, paragraphSeparator)
	var chunks []string
	var current []string
	currentLen := 0
	sepLen := utf8.RuneCountInString(paragraphSeparator)

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, paragraphSeparator))
		current = nil
		currentLen = 0
	}

	for _, paragraph := range paragraphs {
		plen := utf8.RuneCountInString(paragraph)
		if currentLen > 0 && currentLen+sepLen+plen > maxRunes {
			flush()
		}
		current = append(current, paragraph)
		if currentLen > 0 {
			currentLen += sepLen
		}
		currentLen += plen
	}
	flush()
	return chunks
}

// TruncateRunes cuts text to at most maxRunes runes.
func TruncateRunes(text string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}
