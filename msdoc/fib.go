package msdoc

import (
	"fmt"

	"github.com/hazyhaar/legacydoc/bytecursor"
)

// FIB flag bits at offset 10 of the WordDocument stream.
const (
	flagComplex   = 0x0004
	flagEncrypted = 0x0100
	flagExtChar   = 0x1000
	flagFarEast   = 0x4000
)

// fibMinSize covers the fields ReadFIB reads.
const fibMinSize = 32

// FIB is the part of the File Information Block the decoder needs.
type FIB struct {
	Ident uint16 `json:"ident"`
	Flags uint16 `json:"flags"`
	// FcMin and FcMac bound the main text, relative to the stream start.
	FcMin int32 `json:"fc_min"`
	FcMac int32 `json:"fc_mac"`
}

// ReadFIB parses the header of a WordDocument stream.
func ReadFIB(stream []byte) (FIB, error) {
	if len(stream) < fibMinSize {
		return FIB{}, fmt.Errorf("%w: WordDocument stream is %d bytes", ErrCorrupted, len(stream))
	}
	c := bytecursor.New(stream)
	var f FIB
	f.Ident, _ = c.Uint16()
	c.Next(8)
	f.Flags, _ = c.Uint16()
	c.Next(12)
	f.FcMin, _ = c.Int32()
	f.FcMac, _ = c.Int32()
	return f, nil
}

// Complex reports a fast-saved document.
func (f FIB) Complex() bool { return f.Flags&flagComplex != 0 }

// Encrypted reports a password-protected document.
func (f FIB) Encrypted() bool { return f.Flags&flagEncrypted != 0 }

// ExtendedCharset reports that text is stored as UTF-16.
func (f FIB) ExtendedCharset() bool { return f.Flags&(flagExtChar|flagFarEast) != 0 }

// TextLength is the byte length of the main text.
func (f FIB) TextLength() int { return int(f.FcMac) - int(f.FcMin) }
