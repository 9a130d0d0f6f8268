package rtf

import (
	"bytes"
	"fmt"
	"strings"
)

var infoFields = []struct {
	tag string
	set func(*Metadata, string)
}{
	{`{\title`, func(m *Metadata, v string) { m.Title = v }},
	{`{\subject`, func(m *Metadata, v string) { m.Subject = v }},
	{`{\author`, func(m *Metadata, v string) { m.Author = v }},
	{`{\keywords`, func(m *Metadata, v string) { m.Keywords = v }},
	{`{\doccomm`, func(m *Metadata, v string) { m.Comments = v }},
}

// scanInfo reads the fields of the {\info} group. Each field is converted
// on its own; a field that fails to convert is left empty.
func scanInfo(buf []byte, w Warner) Metadata {
	var meta Metadata
	i := bytes.Index(buf, []byte(`{\info`))
	if i < 0 {
		return meta
	}
	start := i + 1
	end := matchingClose(buf, start)
	if end < 0 {
		return meta
	}
	for _, f := range infoFields {
		j := bytes.Index(buf[start:], []byte(f.tag))
		if j < 0 {
			continue
		}
		from := start + j + len(f.tag)
		if from >= end {
			continue
		}
		to := findUnescaped(buf, from, '}')
		if to < 0 || to >= end {
			continue
		}
		text, err := plainText(buf[from:to])
		if err != nil {
			w.Warn("rtf: skipping info field", "field", f.tag[2:], "error", err)
			continue
		}
		f.set(&meta, strings.TrimSpace(strings.ReplaceAll(text, `\`, "")))
	}
	return meta
}

// scanFonts returns the face names of the font table in order. A face name
// is whatever follows the first space after the entry's last control word.
func scanFonts(buf []byte) []string {
	i := bytes.Index(buf, []byte(`{\fonttbl`))
	if i < 0 {
		return nil
	}
	start := i + 1
	end := matchingClose(buf, start)
	if end < 0 {
		return nil
	}
	table := buf[:end]

	var fonts []string
	cur := indexFrom(table, start, '{')
	for cur >= 0 {
		semi := indexFrom(table, cur, ';')
		if semi < 0 {
			break
		}
		entry := table[cur:semi]
		slash := bytes.LastIndexByte(entry, '\\')
		if slash < 0 {
			break
		}
		sp := indexFrom(entry, slash, ' ')
		if sp < 0 {
			break
		}
		fonts = append(fonts, string(entry[sp+1:]))
		cur = indexFrom(table, semi, '{')
	}
	return fonts
}

// scanColors reads the color table. The implicit auto color before the
// first ';' is not part of the result, so entry N of the table is
// Colors[N-1].
func scanColors(buf []byte) []Color {
	i := bytes.Index(buf, []byte(`{\colortbl`))
	if i < 0 {
		return nil
	}
	start := i + 1
	end := matchingClose(buf, start)
	if end < 0 {
		return nil
	}
	table := buf[:end]

	var colors []Color
	cur := indexFrom(table, start, ';')
	for cur >= 0 {
		var c Color
		var ok bool
		if cur, c.Red, ok = component(table, cur, "red"); !ok {
			break
		}
		if cur, c.Green, ok = component(table, cur, "green"); !ok {
			break
		}
		if cur, c.Blue, ok = component(table, cur, "blue"); !ok {
			break
		}
		c.Web = fmt.Sprintf("%02X%02X%02X", c.Red, c.Green, c.Blue)
		colors = append(colors, c)
		cur = indexFrom(table, cur, ';')
	}
	return colors
}

func component(table []byte, from int, name string) (int, int, bool) {
	j := bytes.Index(table[from:], []byte(name))
	if j < 0 {
		return from, 0, false
	}
	at := from + j
	return at, atoi(table[at+len(name):]), true
}

// styleSection renders the CSS classes referenced by color spans. Index 0
// is the white background and black foreground default.
func styleSection(prefix string, colors []Color) string {
	var b strings.Builder
	fmt.Fprintf(&b, ".%sbc0 {background-color:#FFFFFF;}\n.%sfc0 {color:#000000;}", prefix, prefix)
	for i, c := range colors {
		fmt.Fprintf(&b, "\n.%sbc%d {background-color:#%s;}\n.%sfc%d {color:#%s;}",
			prefix, i+1, c.Web, prefix, i+1, c.Web)
	}
	return b.String()
}

var defaultTextColor = Color{Web: "000000"}

// scanTextColor takes the foreground color set right after the first
// \par as the color of the whole document, black when there is none.
func scanTextColor(buf []byte, colors []Color) Color {
	i := bytes.Index(buf, []byte(`\par`))
	if i < 0 {
		return defaultTextColor
	}
	sp := indexFrom(buf, i, ' ')
	cf := bytes.Index(buf[i:], []byte(`\cf`))
	if sp < 0 || cf < 0 || i+cf >= sp {
		return defaultTextColor
	}
	idx := atoi(buf[i+cf+3:])
	if idx > 0 && idx <= len(colors) {
		return colors[idx-1]
	}
	return defaultTextColor
}

// matchingClose returns the index of the '}' closing the group that
// encloses from, ignoring braces preceded by a backslash, or -1.
func matchingClose(buf []byte, from int) int {
	depth := 0
	for i := from; i < len(buf); i++ {
		if i > from && buf[i-1] == '\\' {
			continue
		}
		switch buf[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// findUnescaped returns the index of the first c at or after from that is
// not the operand of a backslash, or -1.
func findUnescaped(buf []byte, from int, c byte) int {
	for i := from; i < len(buf); {
		switch buf[i] {
		case '\\':
			i += 2
		case c:
			return i
		default:
			i++
		}
	}
	return -1
}

func indexFrom(buf []byte, from int, c byte) int {
	if from >= len(buf) {
		return -1
	}
	j := bytes.IndexByte(buf[from:], c)
	if j < 0 {
		return -1
	}
	return from + j
}

// atoi parses the optionally signed decimal prefix of b after leading
// whitespace. It returns 0 when there are no digits.
func atoi(b []byte) int {
	i := 0
	for i < len(b) && isSpace(b[i]) {
		i++
	}
	neg := false
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		neg = b[i] == '-'
		i++
	}
	j := i
	for j < len(b) && isDigit(b[j]) {
		j++
	}
	v := atoiClamped(b[i:j])
	if neg {
		return -v
	}
	return v
}
