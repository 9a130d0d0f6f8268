// Package htmlfilter reduces an HTML document to its visible text.
//
// It is the markup fallback of the legacy document readers: Word can save
// a document as HTML under a .doc name, and those files are routed here
// instead of to the binary decoder.
package htmlfilter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)font-size\s*:\s*0[^1-9]`),
}

// Filterer strips markup. The zero value keeps hidden elements.
type Filterer struct {
	// SkipHidden drops elements whose inline style hides them.
	SkipHidden bool
}

// Default is the filter used by Filter.
var Default = &Filterer{SkipHidden: true}

// Filter runs Default.Filter.
func Filter(text string, preserve, decodeEntities bool) (string, int) {
	return Default.Filter(text, preserve, decodeEntities)
}

// Filter returns the visible text of an HTML document and its length in
// runes. The content of script, style, head and noscript elements is
// dropped and whitespace runs collapse to one space, except inside <pre>.
// With preserve set, block elements and <br> become line breaks and table
// cells end in a tab. Entities are decoded only when decodeEntities is set.
func (f *Filterer) Filter(text string, preserve, decodeEntities bool) (string, int) {
	text = strings.TrimPrefix(text, "\uFEFF")
	z := html.NewTokenizer(strings.NewReader(text))
	w := &writer{preserve: preserve}

	var skip string
	skipDepth := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			if skipDepth > 0 {
				continue
			}
			// Raw must be read before Text, which unescapes in place.
			if decodeEntities {
				w.text(string(z.Text()))
			} else {
				w.text(string(z.Raw()))
			}
			continue
		}
		tok := z.Token()

		if skipDepth > 0 {
			switch {
			case tt == html.StartTagToken && tok.Data == skip:
				skipDepth++
			case tt == html.EndTagToken && tok.Data == skip:
				skipDepth--
			}
			continue
		}

		switch tt {
		case html.StartTagToken:
			if dropped(tok.DataAtom) || (f.SkipHidden && hidden(tok) && !void(tok.DataAtom)) {
				skip, skipDepth = tok.Data, 1
				continue
			}
			w.open(tok.DataAtom)
		case html.SelfClosingTagToken:
			w.open(tok.DataAtom)
		case html.EndTagToken:
			w.close(tok.DataAtom)
		}
	}

	out := w.String()
	return out, utf8.RuneCountInString(out)
}

// Decode converts a raw HTML file to a string. Valid UTF-8 is used as is;
// anything else is decoded with the charset the document declares, falling
// back to Windows-1252.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return strings.TrimPrefix(string(b), "\uFEFF")
	}
	enc, _, _ := charset.DetermineEncoding(b, "text/html")
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Title returns the text of the document's <title> element, or "".
func Title(text string) string {
	z := html.NewTokenizer(strings.NewReader(text))
	in := false
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.StartTagToken:
			if tok := z.Token(); tok.DataAtom == atom.Title {
				in = true
			}
		case html.EndTagToken:
			if tok := z.Token(); tok.DataAtom == atom.Title {
				return strings.TrimSpace(b.String())
			}
		case html.TextToken:
			if in {
				b.Write(z.Text())
			}
		}
	}
}

func dropped(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Head, atom.Noscript, atom.Template:
		return true
	}
	return false
}

func hidden(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "hidden" {
			return true
		}
		if a.Key != "style" {
			continue
		}
		for _, pat := range hiddenStylePatterns {
			if pat.MatchString(a.Val + ";") {
				return true
			}
		}
	}
	return false
}

func void(a atom.Atom) bool {
	switch a {
	case atom.Br, atom.Img, atom.Hr, atom.Input, atom.Meta, atom.Link, atom.Wbr, atom.Col, atom.Area, atom.Source:
		return true
	}
	return false
}

func block(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Li, atom.Tr, atom.Table, atom.Ul, atom.Ol,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Blockquote, atom.Pre, atom.Hr, atom.Section, atom.Article,
		atom.Header, atom.Footer, atom.Dl, atom.Dt, atom.Dd, atom.Title, atom.Body:
		return true
	}
	return false
}

type writer struct {
	b        strings.Builder
	preserve bool
	pre      int
	// space records a pending collapsed whitespace run.
	space bool
}

func (w *writer) text(s string) {
	if w.pre > 0 {
		w.b.WriteString(s)
		return
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			w.space = true
			continue
		}
		if w.space && !w.atLineStart() {
			w.b.WriteByte(' ')
		}
		w.space = false
		w.b.WriteRune(r)
	}
}

func (w *writer) atLineStart() bool {
	out := w.b.String()
	return out == "" || strings.HasSuffix(out, "\n")
}

func (w *writer) open(a atom.Atom) {
	switch {
	case a == atom.Br:
		w.lineBreak(true)
	case block(a):
		w.lineBreak(false)
	}
	if a == atom.Pre {
		w.pre++
	}
}

func (w *writer) close(a atom.Atom) {
	if a == atom.Pre && w.pre > 0 {
		w.pre--
	}
	switch {
	case a == atom.Td || a == atom.Th:
		if w.preserve {
			w.b.WriteByte('\t')
			w.space = false
		} else {
			w.space = true
		}
	case block(a):
		w.lineBreak(false)
	}
}

// lineBreak ends the current line. Unless force is set, a break at the
// start of a line is dropped. Without preserve it is a collapsed space.
func (w *writer) lineBreak(force bool) {
	if !w.preserve {
		w.space = true
		return
	}
	w.space = false
	if !force && w.atLineStart() {
		return
	}
	w.b.WriteByte('\n')
}

func (w *writer) String() string {
	if w.preserve {
		return w.b.String()
	}
	return strings.TrimSpace(w.b.String())
}
