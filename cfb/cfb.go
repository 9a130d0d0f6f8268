// Package cfb reads Compound File Binary (OLE2) containers from memory.
//
// A container is a small FAT file system packed into one file: a 512-byte
// header, a chain of allocation table sectors, a directory of 128-byte
// entries and the stream sectors themselves. Streams under 4096 bytes live
// in the root entry's mini stream and are chained through the MiniFAT.
//
// Every chain walk is bounded by the entry size and the table length, so a
// corrupt pointer can shorten a stream but never loop or read out of range.
//
//	c, err := cfb.Open(data)
//	body, err := c.Stream("WordDocument")
package cfb

import (
	"bytes"
	"errors"
)

var (
	// ErrBadHeader is returned when the buffer does not carry a CFB signature
	// or its header fields are unusable.
	ErrBadHeader = errors.New("cfb: bad header")
	// ErrBadAllocationTable is returned when an allocation table sector count
	// or pointer falls outside the file.
	ErrBadAllocationTable = errors.New("cfb: bad allocation table")
	// ErrRootEntryNotFound is returned when the directory has no root storage.
	ErrRootEntryNotFound = errors.New("cfb: root entry not found")
	// ErrStreamNotFound is returned by Stream for an unknown name.
	ErrStreamNotFound = errors.New("cfb: stream not found")
)

const (
	headerSize       = 512
	entrySize        = 128
	inlineDIFATCount = 109
	inlineDIFATStart = 0x4C
	miniStreamCutoff = 4096
	rootEntryName    = "Root Entry"
)

// Sector pointer sentinels. Any negative pointer ends a chain.
const (
	FreeSector  int32 = -1
	EndOfChain  int32 = -2
	FATSector   int32 = -3
	DIFATSector int32 = -4
)

var (
	signature     = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	betaSignature = []byte{0x0E, 0x11, 0xFC, 0x0D, 0xD0, 0xCF, 0x11, 0x0E}
)

// IsCFB reports whether buf starts with the CFB signature or its pre-release
// variant.
func IsCFB(buf []byte) bool {
	return bytes.HasPrefix(buf, signature) || bytes.HasPrefix(buf, betaSignature)
}
