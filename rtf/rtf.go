// Package rtf converts Rich Text Format to plain text or to a simplified
// HTML rendering of its character formatting.
//
// The interpreter walks the byte stream once, keeping a stack of property
// snapshots per {} group. Control words are looked up in one of two static
// tables (plain text or HTML); the few keywords that need look-ahead or
// counting are handled in code.
//
//	res, err := rtf.Convert(data, rtf.Options{HTML: true})
//	page := "<style>" + res.Style + "</style>" + res.Text
package rtf

import (
	"bytes"
	"errors"
	"log/slog"
)

var (
	// ErrStackUnderflow is returned for a '}' without a matching '{'.
	ErrStackUnderflow = errors.New("rtf: group stack underflow")
	// ErrUnmatchedBrace is returned when a '{' is still open at end of input.
	ErrUnmatchedBrace = errors.New("rtf: unmatched brace")
	// ErrBadTable signals an inconsistent symbol table entry.
	ErrBadTable = errors.New("rtf: bad symbol table entry")
)

const (
	defaultFont     = "Arial"
	defaultFontSize = 12
)

// Warner receives recoverable anomalies. *slog.Logger satisfies it.
type Warner interface {
	Warn(msg string, args ...any)
}

// Options configures Convert.
type Options struct {
	// HTML selects HTML output instead of plain text.
	HTML bool
	// StylePrefix is prepended to the CSS class names of color spans.
	StylePrefix string
	// Warner receives recoverable anomalies. Nil uses slog.Default.
	Warner Warner
}

// Metadata holds the {\info} fields.
type Metadata struct {
	Title    string `json:"title,omitempty"`
	Subject  string `json:"subject,omitempty"`
	Author   string `json:"author,omitempty"`
	Keywords string `json:"keywords,omitempty"`
	Comments string `json:"comments,omitempty"`
}

// Color is one color table entry.
type Color struct {
	Red   int    `json:"red"`
	Green int    `json:"green"`
	Blue  int    `json:"blue"`
	Web   string `json:"web,omitempty"` // RRGGBB, upper-case hex
}

// PageSetup holds the document formatting properties last set in the body,
// in twips.
type PageSetup struct {
	Width        int  `json:"width,omitempty"`
	Height       int  `json:"height,omitempty"`
	MarginLeft   int  `json:"margin_left,omitempty"`
	MarginRight  int  `json:"margin_right,omitempty"`
	MarginTop    int  `json:"margin_top,omitempty"`
	MarginBottom int  `json:"margin_bottom,omitempty"`
	StartPage    int  `json:"start_page,omitempty"`
	FacingPages  bool `json:"facing_pages,omitempty"`
	Landscape    bool `json:"landscape,omitempty"`
}

// Result is the outcome of Convert. Font, Fonts, Colors, TextColor and
// Style are only filled in HTML mode.
type Result struct {
	Text      string    `json:"text"`
	Style     string    `json:"style,omitempty"`
	Metadata  Metadata  `json:"metadata"`
	Font      string    `json:"font"`
	Fonts     []string  `json:"fonts,omitempty"`
	FontSize  int       `json:"font_size"`
	TextColor Color     `json:"text_color"`
	Colors    []Color   `json:"colors,omitempty"`
	Page      PageSetup `json:"page"`
}

// Convert extracts the text of an RTF document. Input is read up to the
// first NUL byte.
func Convert(buf []byte, opts Options) (*Result, error) {
	w := opts.Warner
	if w == nil {
		w = slog.Default()
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	res := &Result{Font: defaultFont, FontSize: defaultFontSize}
	if len(buf) == 0 {
		return res, nil
	}
	res.Metadata = scanInfo(buf, w)

	var out sink = &textSink{}
	var colors int
	if opts.HTML {
		res.Fonts = scanFonts(buf)
		if len(res.Fonts) > 0 {
			res.Font = res.Fonts[0]
		}
		res.Colors = scanColors(buf)
		res.Style = styleSection(opts.StylePrefix, res.Colors)
		res.TextColor = scanTextColor(buf, res.Colors)
		colors = len(res.Colors)
		out = &htmlSink{}
	}

	in := newInterpreter(buf, out, colors, opts.StylePrefix)
	if err := in.run(); err != nil {
		return nil, err
	}
	res.Text = out.String()
	res.FontSize = in.fontSize
	res.Page = in.page
	return res, nil
}

// plainText converts an RTF fragment to text without pre-scanning it.
func plainText(buf []byte) (string, error) {
	out := &textSink{}
	in := newInterpreter(buf, out, 0, "")
	if err := in.run(); err != nil {
		return "", err
	}
	return out.String(), nil
}
