package rtf

import (
	"bytes"
	"fmt"
	"math"

	"golang.org/x/text/encoding/charmap"
)

type destination uint8

const (
	destNormal destination = iota
	destSkip
)

type inputMode uint8

const (
	modeNormal inputMode = iota
	modeBinary
	modeHex
)

type charProps struct {
	bold, italic, underline, strike bool
}

type paraProps struct {
	leftIndent, rightIndent, firstIndent int
	justify                              int
}

type sectionProps struct {
	columns, pageNumberX, pageNumberY int
	breakKind, pageNumberFormat      int
}

// groupState is the snapshot pushed on '{' and restored on '}'.
type groupState struct {
	chp  charProps
	pap  paraProps
	sep  sectionProps
	doc  PageSetup
	dest destination
	mode inputMode
	uc   int // fallback units skipped after \u
}

type interpreter struct {
	src    []byte
	pos    int
	out    sink
	table  symbolTable
	colors int
	prefix string

	groupState
	stack []groupState
	depth int

	skipUnknown bool
	binLeft     int
	lastParam   int
	parCount    int
	bullet      bool

	fontSize int
	page     PageSetup
}

func newInterpreter(src []byte, out sink, colors int, prefix string) *interpreter {
	table := textSymbols
	if out.html() {
		table = htmlSymbols
	}
	return &interpreter{
		src:        src,
		out:        out,
		table:      table,
		colors:     colors,
		prefix:     prefix,
		fontSize:   defaultFontSize,
		groupState: groupState{uc: 1},
	}
}

func (in *interpreter) run() error {
	for in.pos < len(in.src) {
		ch := in.src[in.pos]
		if in.mode == modeBinary {
			in.binLeft--
			if in.binLeft <= 0 {
				in.mode = modeNormal
			}
			in.parseChar(byteRune(ch))
			in.pos++
			continue
		}

		switch ch {
		case '{':
			in.push()
		case '}':
			if err := in.pop(); err != nil {
				return err
			}
		case '\\':
			ended, err := in.keyword()
			if err != nil {
				return err
			}
			if ended {
				return nil
			}
			continue
		case '\r', '\n':
		default:
			if in.mode == modeHex {
				in.hexByte(ch)
			} else {
				in.parseChar(byteRune(ch))
			}
		}
		in.pos++
	}

	if in.depth > 0 {
		return fmt.Errorf("%w: %d groups left open", ErrUnmatchedBrace, in.depth)
	}
	return nil
}

func (in *interpreter) push() {
	in.stack = append(in.stack, in.groupState)
	in.mode = modeNormal
	in.depth++
	in.out.pushGroup()
}

func (in *interpreter) pop() error {
	n := len(in.stack)
	if n == 0 {
		return ErrStackUnderflow
	}
	in.groupState = in.stack[n-1]
	in.stack = in.stack[:n-1]
	in.depth--
	in.out.popGroup()
	return nil
}

// hexByte decodes the two hex digits of a \'hh escape. ch is the first; the
// position is left on the second.
func (in *interpreter) hexByte(ch byte) {
	var lo byte
	if in.pos+1 < len(in.src) {
		in.pos++
		lo = in.src[in.pos]
	}
	v, ok := hexDigit(ch)
	if ok {
		if d, ok := hexDigit(lo); ok {
			v = v<<4 | d
		}
		in.parseChar(byteRune(byte(v)))
	}
	in.mode = modeNormal
}

// keyword reads a control word or symbol starting at the backslash and
// dispatches it. The position is left on the first unread byte. ended
// reports input that stops inside the control word.
func (in *interpreter) keyword() (ended bool, err error) {
	in.pos++
	if in.pos >= len(in.src) {
		return true, nil
	}
	ch := in.src[in.pos]
	if !isLetter(ch) {
		in.pos++
		return false, in.translate(string(ch), 0, false)
	}

	start := in.pos
	for in.pos < len(in.src) && isLetter(in.src[in.pos]) {
		in.pos++
	}
	word := string(in.src[start:in.pos])

	neg := false
	if in.pos < len(in.src) && in.src[in.pos] == '-' {
		neg = true
		in.pos++
		if in.pos >= len(in.src) {
			return true, nil
		}
	}
	param, hasParam := 0, false
	if in.pos < len(in.src) && isDigit(in.src[in.pos]) {
		hasParam = true
		digits := in.pos
		for in.pos < len(in.src) && isDigit(in.src[in.pos]) {
			in.pos++
		}
		param = atoiClamped(in.src[digits:in.pos])
		if neg {
			param = -param
		}
		in.lastParam = param
	}
	if in.pos < len(in.src) && in.src[in.pos] == ' ' {
		in.pos++
	}

	if in.out.html() && (word == "par" || word == "pard") {
		word = in.paragraphParity()
	}
	return false, in.translate(word, param, hasParam)
}

// paragraphParity decides how a \par or \pard renders in HTML. Every second
// one closes a paragraph; an odd one directly followed by another \par is
// an empty paragraph and becomes a line break.
func (in *interpreter) paragraphParity() string {
	in.parCount++
	if in.parCount%2 == 0 {
		return "par"
	}
	next := in.pos
	for next < len(in.src) && isSpace(in.src[next]) {
		next++
	}
	if bytes.HasPrefix(in.src[next:], []byte(`\par`)) {
		in.parCount--
		return "line"
	}
	return "pard"
}

func (in *interpreter) translate(word string, param int, hasParam bool) error {
	switch {
	case hasParam && word == "u":
		if param < 0 {
			param += 65536
		}
		in.parseChar(rune(param))
		in.skipFallback()
		return nil
	case hasParam && word == "uc":
		in.uc = max(param, 0)
		return nil
	case hasParam && word == "fs":
		in.fontSize = param / 2
	case word == "pntext":
		in.bullet = true
		in.parseString(in.out.listIndent())
		if i := bytes.IndexByte(in.src[in.pos:], '}'); i >= 0 {
			in.pos += i
		}
		return nil
	case in.bullet && word == "line":
		in.parseString(in.out.listBreak())
		return nil
	case word == "par" || word == "pard":
		in.bullet = false
	}

	sym, ok := in.table[word]
	if !ok {
		if in.skipUnknown {
			in.dest = destSkip
		}
		in.skipUnknown = false
		return nil
	}
	in.skipUnknown = false

	switch sym.act {
	case actProp:
		if sym.passDflt || !hasParam {
			param = sym.dflt
		}
		return in.applyProp(property(sym.arg), param)
	case actChar:
		in.parseChar(rune(sym.arg))
	case actString:
		in.parseString(sym.text)
	case actDest:
		in.dest = destSkip
	case actSectionSkip:
		in.dest = destSkip
		if end := matchingClose(in.src, in.pos); end >= 0 {
			in.pos = end
		}
	case actSpec:
		return in.special(special(sym.arg))
	case actHighlight:
		in.colorSpan("bc", param)
	case actFontColor:
		in.colorSpan("fc", param)
	case actBold:
		in.styleSpan(word, hasParam && param == 0, "font-weight:bold;", "font-weight:normal;")
	case actItalic:
		in.styleSpan(word, hasParam && param == 0, "font-style:italic;", "font-style:normal;")
	case actUnderline:
		off := word == "ulnone" || (hasParam && param == 0)
		in.styleSpan(word, off, "text-decoration:underline;", "text-decoration:none;")
	case actStrike:
		in.styleSpan(word, hasParam && param == 0, "text-decoration:line-through;", "text-decoration:none;")
	default:
		return fmt.Errorf("%w: %q", ErrBadTable, word)
	}
	return nil
}

// skipFallback consumes the uc replacement units that follow a \u escape.
// A \'hh escape counts as one unit; a brace ends the fallback early.
func (in *interpreter) skipFallback() {
	for n := in.uc; n > 0 && in.pos < len(in.src); n-- {
		switch {
		case in.src[in.pos] == '{' || in.src[in.pos] == '}':
			return
		case bytes.HasPrefix(in.src[in.pos:], []byte(`\'`)):
			in.pos = min(in.pos+4, len(in.src))
		default:
			in.pos++
		}
	}
}

func (in *interpreter) special(s special) error {
	if in.dest == destSkip && s != specBin {
		return nil
	}
	switch s {
	case specBin:
		if in.lastParam > 0 {
			in.mode = modeBinary
			in.binLeft = in.lastParam
		}
	case specSkipDest:
		in.skipUnknown = true
	case specHex:
		in.mode = modeHex
	default:
		return fmt.Errorf("%w: special %d", ErrBadTable, s)
	}
	return nil
}

func (in *interpreter) applyProp(p property, v int) error {
	if in.dest == destSkip {
		return nil
	}
	switch p {
	case propLeftIndent:
		in.pap.leftIndent = v
	case propRightIndent:
		in.pap.rightIndent = v
	case propFirstIndent:
		in.pap.firstIndent = v
	case propJustify:
		in.pap.justify = v
	case propColumns:
		in.sep.columns = v
	case propPageNumberX:
		in.sep.pageNumberX = v
	case propPageNumberY:
		in.sep.pageNumberY = v
	case propSectionBreak:
		in.sep.breakKind = v
	case propPageNumberFormat:
		in.sep.pageNumberFormat = v
	case propPaperWidth:
		in.doc.Width = v
	case propPaperHeight:
		in.doc.Height = v
	case propMarginLeft:
		in.doc.MarginLeft = v
	case propMarginRight:
		in.doc.MarginRight = v
	case propMarginTop:
		in.doc.MarginTop = v
	case propMarginBottom:
		in.doc.MarginBottom = v
	case propPageStart:
		in.doc.StartPage = v
	case propFacingPages:
		in.doc.FacingPages = v != 0
	case propLandscape:
		in.doc.Landscape = v != 0
	default:
		return fmt.Errorf("%w: property %d", ErrBadTable, p)
	}
	in.page = in.doc
	return nil
}

func (in *interpreter) parseChar(r rune) {
	if r == 0 || in.dest == destSkip {
		return
	}
	in.out.emitChar(r)
}

func (in *interpreter) parseString(s string) {
	if in.dest == destSkip {
		return
	}
	in.out.emitString(s)
}

func (in *interpreter) colorSpan(kind string, idx int) {
	if in.dest == destSkip || idx <= 0 || idx > in.colors {
		return
	}
	in.out.openScope(fmt.Sprintf(`<span class="%s%s%d">`, in.prefix, kind, idx))
}

func (in *interpreter) styleSpan(word string, off bool, on, offStyle string) {
	if in.dest == destSkip {
		return
	}
	style := on
	if off {
		style = offStyle
	}
	switch word {
	case "b":
		in.chp.bold = !off
	case "i":
		in.chp.italic = !off
	case "ul", "ulnone":
		in.chp.underline = !off
	default:
		in.chp.strike = !off
	}
	in.out.openScope("<span style='" + style + "'>")
}

// byteRune maps a raw or hex-escaped byte through Windows-1252.
func byteRune(b byte) rune {
	if b < 0x80 {
		return rune(b)
	}
	return charmap.Windows1252.DecodeByte(b)
}

func hexDigit(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	}
	return 0, false
}

func isLetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool  { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func atoiClamped(digits []byte) int {
	v := 0
	for _, c := range digits {
		v = v*10 + int(c-'0')
		if v > math.MaxInt32 {
			return math.MaxInt32
		}
	}
	return v
}
