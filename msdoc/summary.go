package msdoc

import (
	"io"
	"strings"

	"github.com/hazyhaar/legacydoc/bytecursor"
)

// SummaryInformationName is the CFB stream holding document properties.
const SummaryInformationName = "\x05SummaryInformation"

const (
	summaryHeaderSize  = 28
	sectionRecordSize  = 20
	maxSummaryListSize = 4096
)

// Property identifiers and types read from the summary stream.
const (
	pidCodePage = 1
	pidTitle    = 2
	pidSubject  = 3
	pidAuthor   = 4
	pidKeywords = 5
	pidComments = 6

	vtI2     = 2
	vtBSTR   = 8
	vtLPSTR  = 30
	vtLPWSTR = 31
)

// DecodeSummary reads title, subject, author, keywords and comments from a
// SummaryInformation property set stream. Malformed parts are skipped with
// a warning; the function never fails.
func DecodeSummary(stream []byte, w Warner) Metadata {
	if w == nil {
		w = Options{}.warner()
	}
	var md Metadata
	hdr := bytecursor.New(stream)
	sig, _ := hdr.Uint16()
	if len(stream) < summaryHeaderSize || (sig != 0xFFFE && sig != 0xFEFF) {
		w.Warn("msdoc: SummaryInformation has an invalid signature, properties not loaded")
		return md
	}
	hdr.Seek(24, io.SeekStart)
	count, _ := hdr.Int32()
	if count < 0 || int64(count)*sectionRecordSize+summaryHeaderSize > maxSummaryListSize {
		w.Warn("msdoc: SummaryInformation section count out of range, reading first section only",
			"count", count)
		count = 1
	}

	for i := 0; i < int(count); i++ {
		rec := bytecursor.Window(stream, summaryHeaderSize+i*sectionRecordSize, sectionRecordSize)
		rec.Next(16)
		start, ok := rec.Int32()
		if !ok {
			w.Warn("msdoc: SummaryInformation section list truncated", "section", i)
			break
		}
		if start < 0 {
			w.Warn("msdoc: SummaryInformation section offset negative, skipped", "section", i)
			continue
		}
		size, _ := bytecursor.Window(stream, int(start), 4).Int32()
		if size <= 0 {
			w.Warn("msdoc: SummaryInformation section size invalid, skipped", "section", i, "size", size)
			continue
		}
		section := bytecursor.Window(stream, int(start), int(size)).Next(int(size))
		readSection(section, &md, w)
	}
	return md
}

type propertyRef struct {
	id, offset int32
}

func readSection(sec []byte, md *Metadata, w Warner) {
	size := len(sec)
	c := bytecursor.Window(sec, 4, 4)
	n, _ := c.Int32()

	var props []propertyRef
	for i := 0; i < int(n); i++ {
		pos := 8 + i*8
		if pos+8 > size {
			w.Warn("msdoc: SummaryInformation property list runs past its section")
			break
		}
		c := bytecursor.Window(sec, pos, 8)
		id, _ := c.Int32()
		off, _ := c.Int32()
		if off < 0 {
			w.Warn("msdoc: SummaryInformation property offset negative, skipped", "id", id)
			continue
		}
		props = append(props, propertyRef{id: id, offset: off})
	}

	codePage := 0
	for _, p := range props {
		if p.id != pidCodePage {
			continue
		}
		c := bytecursor.Window(sec, int(p.offset), 8)
		if typ, _ := c.Int32(); typ == vtI2 {
			v, _ := c.Uint16()
			codePage = int(v)
		}
	}

	for _, p := range props {
		off := int(p.offset)
		if off+8 > size {
			w.Warn("msdoc: SummaryInformation property runs past its section", "id", p.id)
			continue
		}
		c := bytecursor.Window(sec, off, 8)
		typ, _ := c.Int32()
		count, _ := c.Int32()

		var value string
		switch typ {
		case vtBSTR, vtLPSTR, vtLPWSTR:
			if count < 0 || off+8+int(count) > size {
				w.Warn("msdoc: SummaryInformation string runs past its section", "id", p.id)
				continue
			}
			raw := sec[off+8 : off+8+int(count)]
			if typ == vtLPWSTR {
				value = decodeWide(raw)
			} else {
				value = decodeNarrow(raw, codePage)
			}
		default:
			continue
		}
		if i := strings.IndexByte(value, 0); i >= 0 {
			value = value[:i]
		}

		switch p.id {
		case pidTitle:
			md.Title = value
		case pidSubject:
			md.Subject = value
		case pidAuthor:
			md.Author = value
		case pidKeywords:
			md.Keywords = value
		case pidComments:
			md.Comments = value
		}
	}
}
