package rtf

import (
	"strconv"
	"strings"
)

// sink receives the interpreter's output. The text sink ignores scopes;
// the HTML sink escapes characters and closes the spans opened inside each
// group when the group ends.
type sink interface {
	emitChar(r rune)
	emitString(s string)
	// openScope writes a span-opening tag owned by the current group.
	openScope(tag string)
	pushGroup()
	popGroup()
	// html reports HTML output, which enables the paragraph parity rule.
	html() bool
	listIndent() string
	listBreak() string
	String() string
}

// Private-use symbols Word embeds for header and footer fields.
func droppedRune(r rune) bool {
	return r == 3913 || r == 3928 || r == 3929
}

type textSink struct {
	b strings.Builder
}

func (s *textSink) emitChar(r rune) {
	if droppedRune(r) {
		return
	}
	s.b.WriteRune(r)
}

func (s *textSink) emitString(str string) { s.b.WriteString(str) }
func (s *textSink) openScope(string)      {}
func (s *textSink) pushGroup()            {}
func (s *textSink) popGroup()             {}
func (s *textSink) html() bool            { return false }
func (s *textSink) listIndent() string    { return "\t" }
func (s *textSink) listBreak() string     { return "\n\t" }
func (s *textSink) String() string        { return s.b.String() }

const (
	nbsp      = "&nbsp;"
	spanClose = "</span>"
)

type htmlSink struct {
	b strings.Builder
	// spans counts the open spans of each enclosing group.
	spans []int
}

func (s *htmlSink) emitChar(r rune) {
	if droppedRune(r) {
		return
	}
	switch {
	case r > 127:
		s.b.WriteString("&#")
		s.b.WriteString(strconv.Itoa(int(r)))
		s.b.WriteByte(';')
	case r == '<':
		s.b.WriteString("&#60;")
	case r == '>':
		s.b.WriteString("&#62;")
	case r == '"':
		s.b.WriteString("&#34;")
	case r == '&':
		s.b.WriteString("&#38;")
	case r == '\'':
		s.b.WriteString("&#39;")
	case r == ' ':
		out := s.b.String()
		if strings.HasSuffix(out, " ") || strings.HasSuffix(out, nbsp) {
			s.b.WriteString(nbsp)
		} else {
			s.b.WriteByte(' ')
		}
	default:
		s.b.WriteRune(r)
	}
}

func (s *htmlSink) emitString(str string) { s.b.WriteString(str) }

func (s *htmlSink) openScope(tag string) {
	s.b.WriteString(tag)
	if n := len(s.spans); n > 0 {
		s.spans[n-1]++
	}
}

func (s *htmlSink) pushGroup() { s.spans = append(s.spans, 0) }

func (s *htmlSink) popGroup() {
	n := len(s.spans)
	if n == 0 {
		return
	}
	s.b.WriteString(strings.Repeat(spanClose, s.spans[n-1]))
	s.spans = s.spans[:n-1]
}

func (s *htmlSink) html() bool         { return true }
func (s *htmlSink) listIndent() string { return strings.Repeat(nbsp, 4) }
func (s *htmlSink) listBreak() string  { return htmlBreak + strings.Repeat(nbsp, 4) }
func (s *htmlSink) String() string     { return s.b.String() }
