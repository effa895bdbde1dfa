package fetch

import (
	"strings"
	"unicode/utf8"
)

// Source tags where a paper's text came from.
type Source string

const (
	SourceHTML     Source = "html"     // ar5iv rendition converted to text
	SourcePDF      Source = "pdf"      // PDF extraction
	SourceAbstract Source = "abstract" // metadata-only fallback
)

// Content is the resolved text for one paper together with its provenance.
type Content struct {
	Source Source `json:"source"`
	Text   string `json:"text"`
}

// TruncationMarker is appended when a character budget cuts content short.
const TruncationMarker = "\n\n... (content truncated)"

// Truncate enforces a character budget, appending the marker when content was
// cut. A non-positive limit disables truncation.
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := text[:limit]
	// Back up to the previous space so the cut does not split a word.
	if idx := strings.LastIndexByte(cut, ' '); idx > limit/2 {
		cut = cut[:idx]
	}
	// The byte cut can land inside a multi-byte rune; drop the partial rune.
	for len(cut) > 0 {
		r, size := utf8.DecodeLastRuneInString(cut)
		if r == utf8.RuneError && size <= 1 {
			cut = cut[:len(cut)-1]
			continue
		}
		break
	}
	return strings.TrimSpace(cut) + TruncationMarker
}

// LimitSections keeps at most maxSections top-level sections of extracted
// text. A section starts at a "## " heading; the preamble before the first
// heading does not count against the cap. A non-positive cap, or text with no
// section headings (PDF extraction, abstracts), passes through unchanged.
func LimitSections(text string, maxSections int) string {
	if maxSections <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	sections := 0
	for i, line := range lines {
		if !strings.HasPrefix(line, "## ") {
			continue
		}
		sections++
		if sections > maxSections {
			return strings.TrimSpace(strings.Join(lines[:i], "\n")) + TruncationMarker
		}
	}
	return text
}
