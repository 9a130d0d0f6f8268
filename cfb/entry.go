package cfb

import (
	"encoding/binary"
	"unicode/utf16"
)

// EntryType is the object type byte of a directory entry.
type EntryType uint8

const (
	TypeUnallocated EntryType = 0
	TypeStorage     EntryType = 1
	TypeStream      EntryType = 2
	TypeLockBytes   EntryType = 3
	TypeProperty    EntryType = 4
	TypeRoot        EntryType = 5
)

func (t EntryType) String() string {
	switch t {
	case TypeUnallocated:
		return "unallocated"
	case TypeStorage:
		return "storage"
	case TypeStream:
		return "stream"
	case TypeLockBytes:
		return "lockbytes"
	case TypeProperty:
		return "property"
	case TypeRoot:
		return "root"
	default:
		return "unknown"
	}
}

// Color is the red-black tree tag of a directory entry. It is kept for
// completeness only.
type Color uint8

const (
	Red   Color = 0
	Black Color = 1
)

// DirectoryEntry is one 128-byte slot of the directory. Sectors holds the
// resolved chain; Size is clamped to what the chain can hold.
type DirectoryEntry struct {
	Name        string    `json:"name"`
	Type        EntryType `json:"type"`
	Color       Color     `json:"color"`
	Left        uint32    `json:"left"`
	Right       uint32    `json:"right"`
	Child       uint32    `json:"child"`
	StartSector uint32    `json:"start_sector"`
	Size        int64     `json:"size"`
	Sectors     []uint32  `json:"-"`
}

// IsRoot reports whether e is the root storage. Some writers only set the
// name, so both markers are accepted.
func (e *DirectoryEntry) IsRoot() bool {
	return e.Type == TypeRoot || e.Name == rootEntryName
}

// InMiniStream reports whether the entry's data lives in the mini stream.
func (e *DirectoryEntry) InMiniStream() bool {
	return e.Size < miniStreamCutoff && !e.IsRoot()
}

// decodeEntryName reads the UTF-16 name field, stopping at the first NUL.
// ok is false when the declared length exceeds the 64-byte field.
func decodeEntryName(slot []byte) (name string, ok bool) {
	units := int(binary.LittleEndian.Uint16(slot[64:])) / 2
	if units > 32 {
		return "", false
	}
	buf := make([]uint16, 0, units)
	for i := 0; i < units; i++ {
		u := binary.LittleEndian.Uint16(slot[i*2:])
		if u == 0 {
			break
		}
		buf = append(buf, u)
	}
	return string(utf16.Decode(buf)), true
}

func parseEntry(slot []byte) (*DirectoryEntry, bool) {
	name, ok := decodeEntryName(slot)
	if !ok {
		return nil, false
	}
	return &DirectoryEntry{
		Name:        name,
		Type:        EntryType(slot[66]),
		Color:       Color(slot[67]),
		Left:        binary.LittleEndian.Uint32(slot[68:]),
		Right:       binary.LittleEndian.Uint32(slot[72:]),
		Child:       binary.LittleEndian.Uint32(slot[76:]),
		StartSector: binary.LittleEndian.Uint32(slot[116:]),
		Size:        int64(binary.LittleEndian.Uint32(slot[120:])),
	}, true
}
