// Package msdoc extracts plain text and document properties from legacy
// Microsoft Word binary files (Word 97 and later, stored in a CFB container).
//
// Extract sniffs the buffer first: a CFB container is decoded as a Word
// document, a buffer starting with {\rtf goes to the RTF converter, and a
// buffer whose first significant character is '<' goes to the HTML filter.
//
//	res, err := msdoc.Extract(data, msdoc.Options{Warner: logger})
//	fmt.Println(res.Metadata.Title, res.Text)
package msdoc

import (
	"errors"
	"log/slog"
)

var (
	// ErrEmptyBuffer is returned for a zero-length input.
	ErrEmptyBuffer = errors.New("msdoc: empty buffer")
	// ErrHeaderNotFound is returned when no known format is recognised.
	ErrHeaderNotFound = errors.New("msdoc: header not found")
	// ErrEncrypted is returned for password-protected documents.
	ErrEncrypted = errors.New("msdoc: document is encrypted")
	// ErrFastSavedUnsupported is returned for fast-saved (complex) documents,
	// whose text is scattered through a piece table.
	ErrFastSavedUnsupported = errors.New("msdoc: fast-saved document not supported")
	// ErrCorrupted is returned when the WordDocument stream is truncated.
	ErrCorrupted = errors.New("msdoc: corrupted document")
	// ErrNoWordDocument is returned for a CFB container without a
	// WordDocument stream (a spreadsheet or presentation, for instance).
	ErrNoWordDocument = errors.New("msdoc: no WordDocument stream")
)

// Warner receives recoverable anomalies. *slog.Logger satisfies it.
type Warner interface {
	Warn(msg string, args ...any)
}

// HTMLFilter strips markup from an HTML document and returns the text and
// its length in runes.
type HTMLFilter interface {
	Filter(text string, preserveWhitespace, decodeEntities bool) (string, int)
}

// Kind names the format Sniff recognised.
type Kind string

const (
	KindUnknown Kind = ""
	KindDOC     Kind = "doc"
	KindRTF     Kind = "rtf"
	KindHTML    Kind = "html"
)

// Metadata holds the document properties this package understands.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Author   string `json:"author,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Comments string `json:"comments,omitempty"`
}

// IsZero reports whether no property is set.
func (m Metadata) IsZero() bool { return m == Metadata{} }

// Options configures Extract.
type Options struct {
	// Warner receives recoverable anomalies. Nil uses slog.Default.
	Warner Warner
	// HTMLFilter handles HTML input. Nil uses htmlfilter.Default.
	HTMLFilter HTMLFilter
}

func (o Options) warner() Warner {
	if o.Warner == nil {
		return slog.Default()
	}
	return o.Warner
}

// Result is the outcome of Extract.
type Result struct {
	Kind Kind `json:"kind"`
	// Text is the extracted text. Paragraphs end with "\n".
	Text string `json:"text"`
	// Paragraphs is Text split as decoded. Only set for Word documents.
	Paragraphs []string `json:"paragraphs,omitempty"`
	Metadata   Metadata `json:"metadata"`
}
