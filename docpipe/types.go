package docpipe

import (
	"github.com/hazyhaar/legacydoc/msdoc"
	"github.com/hazyhaar/legacydoc/rtf"
)

// Format identifies a document type.
type Format string

const (
	FormatDOC  Format = "doc"
	FormatRTF  Format = "rtf"
	FormatHTML Format = "html"
	FormatTXT  Format = "txt"
)

// Section is one paragraph of extracted text.
type Section struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Type  string `json:"type"` // paragraph
}

// Document is the result of extracting a file.
type Document struct {
	Path     string         `json:"path"`
	Format   Format         `json:"format"`
	Title    string         `json:"title"`
	Sections []Section      `json:"sections"`
	RawText  string         `json:"raw_text"`
	Metadata msdoc.Metadata `json:"metadata"`

	// Rendering, filled for RTF input (and HTML input for Markdown) when
	// the pipeline is configured for it.
	HTML      string         `json:"html,omitempty"`
	Style     string         `json:"style,omitempty"`
	Markdown  string         `json:"markdown,omitempty"`
	Font      string         `json:"font,omitempty"`
	FontSize  int            `json:"font_size,omitempty"`
	TextColor string         `json:"text_color,omitempty"` // #RRGGBB
	Page      *rtf.PageSetup `json:"page,omitempty"`

	Quality *ExtractionQuality `json:"quality,omitempty"`
	Cached  bool               `json:"cached,omitempty"`
}
