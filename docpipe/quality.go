package docpipe

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ExtractionQuality captures metrics about the extracted text.
type ExtractionQuality struct {
	CharCount      int     `json:"char_count"`
	ParagraphCount int     `json:"paragraph_count"`
	PrintableRatio float64 `json:"printable_ratio"`
	WordlikeRatio  float64 `json:"wordlike_ratio"`
	VisualRefCount int     `json:"visual_ref_count"`
}

// LooksGarbled reports text that is probably a wrong code page guess or
// binary data read as text.
func (q *ExtractionQuality) LooksGarbled() bool {
	if q.CharCount == 0 {
		return false
	}
	return q.PrintableRatio < 0.85 || (q.CharCount >= 200 && q.WordlikeRatio < 0.3)
}

// HasVisualGap reports text that refers to figures or tables, which the
// text extractors never return.
func (q *ExtractionQuality) HasVisualGap() bool {
	return q.VisualRefCount > 0
}

func measure(text string, paragraphs int) *ExtractionQuality {
	return &ExtractionQuality{
		CharCount:      utf8.RuneCountInString(text),
		ParagraphCount: paragraphs,
		PrintableRatio: computePrintableRatio(text),
		WordlikeRatio:  computeWordlikeRatio(text),
		VisualRefCount: countVisualRefs(text),
	}
}

// computePrintableRatio excludes PUA U+E000-U+F8FF, U+FFFD and control
// characters other than \n \r \t \f.
func computePrintableRatio(text string) float64 {
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || isLayoutRune(r) {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

func isLayoutRune(r rune) bool {
	return r == '\n' || r == '\r' || r == '\t' || r == '\f'
}

func isGarbageRune(r rune) bool {
	switch {
	case r >= 0xE000 && r <= 0xF8FF:
		return true
	case r == utf8.RuneError:
		return true
	case r < 0x20 && !isLayoutRune(r):
		return true
	}
	return false
}

// computeWordlikeRatio returns the share of tokens 2 to 15 runes long.
func computeWordlikeRatio(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	wordlike := 0
	for _, f := range fields {
		n := utf8.RuneCountInString(f)
		if n >= 2 && n <= 15 {
			wordlike++
		}
	}
	return float64(wordlike) / float64(len(fields))
}

var visualRefPattern = regexp.MustCompile(`(?i)\b(figure|fig\.|tableau|table|abbildung|tabelle|sch[eé]ma|diagram|diagramme)\s+\d+`)

func countVisualRefs(text string) int {
	return len(visualRefPattern.FindAllStringIndex(text, -1))
}
