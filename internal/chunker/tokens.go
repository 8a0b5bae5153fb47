package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// CountTokens estimates the number of model tokens in text. The estimate is a
// fixed, deterministic function of the text: each whitespace-separated word
// contributes ceil(runes/4) tokens, matching the usual ~4 chars/token ratio
// of BPE vocabularies. Size-bound decisions throughout the system use this
// single estimator so ingestion and re-ingestion agree on chunk boundaries.
func CountTokens(text string) int {
	total := 0
	for _, word := range strings.Fields(text) {
		n := utf8.RuneCountInString(word)
		total += (n + 3) / 4
	}
	return total
}

var (
	sentenceRe   = regexp.MustCompile(`[^.!?]+[.!?]+`)
	spaceRunRe   = regexp.MustCompile(`[ \t\r]+`)
	blankLineRe  = regexp.MustCompile(`\n\s*\n`)
	singleNLRe   = regexp.MustCompile(`([^\n])\n([^\n])`)
	missingGapRe = regexp.MustCompile(`\.([A-Z])`)
)

// Normalize collapses whitespace runs while preserving paragraph breaks:
// runs of spaces and tabs become a single space, single newlines become
// spaces, and runs of blank lines become exactly one blank line. A period
// glued to a following capital letter gets a space so sentence splitting
// sees the boundary.
func Normalize(text string) string {
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankLineRe.ReplaceAllString(text, "\x00")
	text = singleNLRe.ReplaceAllString(text, "$1 $2")
	text = strings.ReplaceAll(text, "\x00", "\n\n")
	text = missingGapRe.ReplaceAllString(text, ". $1")
	return strings.TrimSpace(text)
}

// SplitSentences splits text into trimmed, non-empty sentences on
// terminal punctuation. Text after the last terminator is kept as a
// final sentence so no content is lost.
func SplitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[loc[0]:loc[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		last = loc[1]
	}
	if tail := strings.TrimSpace(text[last:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
