package msdoc

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// PID_CODEPAGE values with a known single-byte table.
var codePages = map[int]*charmap.Charmap{
	437:   charmap.CodePage437,
	850:   charmap.CodePage850,
	852:   charmap.CodePage852,
	866:   charmap.CodePage866,
	874:   charmap.Windows874,
	1250:  charmap.Windows1250,
	1251:  charmap.Windows1251,
	1252:  charmap.Windows1252,
	1253:  charmap.Windows1253,
	1254:  charmap.Windows1254,
	1255:  charmap.Windows1255,
	1256:  charmap.Windows1256,
	1257:  charmap.Windows1257,
	1258:  charmap.Windows1258,
	10000: charmap.Macintosh,
	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28605: charmap.ISO8859_15,
}

const codePageUTF8 = 65001

// decodeNarrow turns an 8-bit property string into UTF-8. Valid UTF-8 is
// kept as is; anything else goes through the declared code page, falling
// back to Windows-1252.
func decodeNarrow(b []byte, codePage int) string {
	if codePage == codePageUTF8 || utf8.Valid(b) {
		return string(b)
	}
	cm, ok := codePages[codePage]
	if !ok {
		cm = charmap.Windows1252
	}
	out, err := cm.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// decodeWide decodes little-endian UTF-16. A trailing odd byte is dropped.
func decodeWide(b []byte) string {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return string(utf16.Decode(units))
}
