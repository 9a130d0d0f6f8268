package msdoc

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/legacydoc/bytecursor"
)

const blockSize = 256

// Field instructions whose result text is kept.
var keptFieldPrefixes = []string{"HYPERLINK", "SEQ Table", "REF", "TOC", "EMBED", "PAGEREF", "SEITENREF"}

// cp1252Controls maps the Windows-1252 code points 0x80-0x9F that have a
// printable meaning. Unlisted ones are dropped.
var cp1252Controls = map[rune]rune{
	0x80: 0x20AC, 0x82: 0x201A, 0x83: 0x0192, 0x84: 0x00A4, 0x85: 0x2026,
	0x86: 0x2020, 0x87: 0x2021, 0x88: 0x02C6, 0x89: 0x2030, 0x8A: 0x0160,
	0x8B: 0x2039, 0x8C: 0x0152, 0x8E: 0x017D, 0x91: 0x2018, 0x92: 0x2019,
	0x93: 0x201C, 0x94: 0x201D, 0x95: 0x2022, 0x96: 0x2013, 0x97: 0x2014,
	0x98: 0x02DC, 0x99: 0x2122, 0x9A: 0x0161, 0x9B: 0x203A, 0x9C: 0x0153,
	0x9E: 0x017E, 0x9F: 0x0178,
}

var ligatures = map[rune]string{
	0xF001: "fi", 0xF002: "fl",
	0xFB00: "ff", 0xFB01: "fi", 0xFB02: "fl", 0xFB03: "ffi",
	0xFB04: "ffl", 0xFB05: "ft", 0xFB06: "st",
}

// DecodeWordDocument reads the FIB of a WordDocument stream and decodes its
// main text into paragraphs.
func DecodeWordDocument(stream []byte, w Warner) ([]string, error) {
	fib, err := ReadFIB(stream)
	if err != nil {
		return nil, err
	}
	if fib.Complex() {
		return nil, ErrFastSavedUnsupported
	}
	if fib.Encrypted() {
		return nil, ErrEncrypted
	}
	if fib.FcMin < 0 || int(fib.FcMin) >= len(stream) {
		return nil, fmt.Errorf("%w: text starts at %d, stream is %d bytes", ErrCorrupted, fib.FcMin, len(stream))
	}
	if w == nil {
		w = Options{}.warner()
	}
	textLen := fib.TextLength()
	if textLen < 0 {
		w.Warn("msdoc: text end before text start, reading to end of stream",
			"fc_min", fib.FcMin, "fc_mac", fib.FcMac)
		textLen = len(stream) - int(fib.FcMin)
	}
	d := &decoder{
		body:       stream[fib.FcMin:],
		utf16:      fib.ExtendedCharset(),
		forceUTF16: fib.ExtendedCharset(),
		w:          w,
	}
	return d.run(textLen), nil
}

// decoder walks the main text in 256-byte blocks. Unless the FIB declares
// an extended charset, each block is classified as 8-bit or UTF-16 text on
// its own; blocks that look binary are skipped.
type decoder struct {
	body       []byte
	block      []byte
	index      int // block index loaded in block, -1 before the first load
	utf16      bool
	forceUTF16 bool
	w          Warner

	// Field and table state, carried across paragraphs.
	inTable    bool
	fieldBegin bool
	fieldValid bool
}

func (d *decoder) run(textLen int) []string {
	limit := textLen
	if limit > len(d.body) {
		limit = len(d.body)
	}
	d.index = -1

	var out []string
	offset := 0
	for offset < limit {
		var para []rune
		var nonPrintable, force, consecutiveTabs, newBlock bool

		for offset < limit && !endsWithBreak(para) {
			newBlock = offset%blockSize == 0
			nonPrintable, force = false, false
			if offset/blockSize != d.index {
				offset = d.load(offset, limit)
				if offset >= limit {
					break
				}
			}

			ch, width := d.char(offset % blockSize)
			offset += width
			if ch == 0 {
				if rem := offset % blockSize; rem != 0 {
					offset += blockSize - rem
				}
				newBlock = true
			}

			if d.inTable {
				if ch == 0x07 {
					para = append(para, '\t')
					consecutiveTabs = true
					continue
				}
				if consecutiveTabs && len(para) > 0 {
					para[len(para)-1] = '\n'
				}
				consecutiveTabs = false
				d.inTable = false
			}

			switch {
			case ch < 0x20 || (ch >= 0x80 && ch <= 0x9F):
				var skip bool
				para, nonPrintable, force, skip = d.control(ch, para)
				if skip {
					continue
				}
			case ch == 0xFEFF:
			default:
				if lig, ok := ligatures[ch]; ok {
					para = append(para, []rune(lig)...)
				} else {
					para = append(para, ch)
				}
			}
			if nonPrintable || force {
				break
			}
		}

		if (!nonPrintable || newBlock) && len(para) > 0 {
			out = append(out, string(para))
		}
	}
	return out
}

// load reads the block holding offset, skipping blocks that look binary
// while at least one more block remains. It returns the possibly advanced
// offset.
func (d *decoder) load(offset, limit int) int {
	for {
		idx := offset / blockSize
		raw := bytecursor.Window(d.body, idx*blockSize, blockSize).Next(blockSize)
		if idx*blockSize+blockSize < limit && isBinaryBlock(raw) {
			d.w.Warn("msdoc: binary block skipped", "block", idx)
			offset += blockSize
			continue
		}
		n := len(raw)
		if rest := limit - idx*blockSize; n > rest {
			n = max(rest, 0)
		}
		// Two spare bytes let a UTF-16 read at the block's last byte
		// see zero padding.
		buf := make([]byte, blockSize+2)
		copy(buf, raw[:n])
		d.block = buf
		d.index = idx
		if !d.forceUTF16 {
			d.utf16 = !isExtendedASCII(raw[:n])
		}
		return offset
	}
}

func (d *decoder) char(pos int) (rune, int) {
	if d.utf16 {
		return rune(uint16(d.block[pos]) | uint16(d.block[pos+1])<<8), 2
	}
	return rune(d.block[pos]), 1
}

// control handles a control or C1 character. skip reports that the
// character is consumed without ending the paragraph.
func (d *decoder) control(ch rune, para []rune) (out []rune, nonPrintable, force, skip bool) {
	switch ch {
	case 0x13: // field begin
		if beginsWith(para, "PAGE") {
			para = para[:0]
		}
		d.fieldBegin = true
		force = true
	case 0x01:
		if d.fieldBegin {
			return para, false, false, true
		}
		force = true
	case 0x14: // field separator
		switch {
		case d.fieldBegin && beginsWithAny(para, keptFieldPrefixes):
			d.fieldValid = true
			para = para[:0]
		case beginsWith(para, "PAGE"):
			d.fieldValid = false
			para = para[:0]
		}
		nonPrintable = true
	case 0x15: // field end
		switch {
		case d.fieldValid:
			force = true
		case beginsWith(para, "PAGE"):
			nonPrintable = true
			para = para[:0]
		case !d.fieldBegin:
			force = true
		default:
			nonPrintable = true
		}
		d.fieldBegin = false
		d.fieldValid = false
	case 0x05:
		d.fieldBegin = false
	case 0x07: // cell mark
		d.fieldBegin = false
		d.inTable = true
		para = append(para, '\t')
	case 0x0D, 0x0B:
		d.fieldBegin = false
		para = append(para, '\n')
	case 0x0C:
		d.fieldBegin = false
		para = append(para, '\n')
		force = true
	case 0x1E:
		d.fieldBegin = false
		para = append(para, '-')
	case 0x02, 0x1F, 0x08:
		d.fieldBegin = false
	case 0x09:
		d.fieldBegin = false
		para = append(para, '\t')
	default:
		if r, ok := cp1252Controls[ch]; ok {
			para = append(para, r)
			break
		}
		d.fieldBegin = false
		nonPrintable = true
	}
	return para, nonPrintable, force, false
}

func endsWithBreak(para []rune) bool {
	if len(para) == 0 {
		return false
	}
	last := para[len(para)-1]
	return last == '\n' || last == '\r'
}

// beginsWith compares prefix with para after its leading whitespace.
func beginsWith(para []rune, prefix string) bool {
	s := strings.TrimLeft(string(para), " \n\r\t")
	return strings.HasPrefix(s, prefix)
}

func beginsWithAny(para []rune, prefixes []string) bool {
	for _, p := range prefixes {
		if beginsWith(para, p) {
			return true
		}
	}
	return false
}

// isBinaryBlock reports a block containing a 00 00 pair followed later by a
// non-zero byte.
func isBinaryBlock(b []byte) bool {
	pair := -1
	for i := 0; i+1 < len(b); i++ {
		if b[i] == 0 && b[i+1] == 0 {
			pair = i + 2
			break
		}
	}
	if pair < 0 {
		return false
	}
	for _, c := range b[pair:] {
		if c != 0 {
			return true
		}
	}
	return false
}

// isExtendedASCII reports 8-bit text: no zero byte followed by a non-zero
// byte, and at least one whitespace byte when the block is longer than 128.
func isExtendedASCII(b []byte) bool {
	spaces := 0
	for i := 0; i < len(b); i++ {
		if i+1 < len(b) && b[i] == 0 && b[i+1] != 0 {
			return false
		}
		switch b[i] {
		case ' ', '\t', '\n', '\v', '\f', '\r':
			spaces++
		}
	}
	if len(b) > 128 {
		return spaces > 0
	}
	return true
}
