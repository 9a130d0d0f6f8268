// Package cfbtest builds small, well-formed CFB containers in memory for
// tests. Layout: FAT sectors, directory, MiniFAT, mini stream, then regular
// streams, all with 512-byte sectors and 64-byte mini sectors.
package cfbtest

import (
	"encoding/binary"
	"unicode/utf16"
)

const (
	sectorSize = 512
	miniSize   = 64
	cutoff     = 4096
	endChain   = 0xFFFFFFFE
	freeSect   = 0xFFFFFFFF
	fatSect    = 0xFFFFFFFD
)

// Stream is one named stream to place in the container root.
type Stream struct {
	Name string
	Data []byte
}

type placed struct {
	name  string
	size  int
	start uint32
}

// Build returns a container holding streams under the root storage.
func Build(streams ...Stream) []byte {
	var mini []byte
	var miniChains [][2]int // first mini sector, count
	var big []Stream
	for _, s := range streams {
		if len(s.Data) < cutoff {
			first := len(mini) / miniSize
			n := ceil(len(s.Data), miniSize)
			padded := make([]byte, n*miniSize)
			copy(padded, s.Data)
			mini = append(mini, padded...)
			miniChains = append(miniChains, [2]int{first, n})
			continue
		}
		big = append(big, s)
		miniChains = append(miniChains, [2]int{-1, 0})
	}

	miniSectorCount := len(mini) / miniSize
	dirSectors := ceil(len(streams)+1, sectorSize/128)
	miniFATSectors := ceil(miniSectorCount*4, sectorSize)
	miniStreamSectors := ceil(len(mini), sectorSize)
	bigSectors := 0
	for _, s := range big {
		bigSectors += ceil(len(s.Data), sectorSize)
	}
	rest := dirSectors + miniFATSectors + miniStreamSectors + bigSectors
	fatSectors := 1
	for fatSectors*(sectorSize/4) < fatSectors+rest {
		fatSectors++
	}
	total := fatSectors + rest

	fat := make([]uint32, fatSectors*(sectorSize/4))
	for i := range fat {
		fat[i] = freeSect
	}
	for i := 0; i < fatSectors; i++ {
		fat[i] = fatSect
	}
	next := fatSectors
	chain := func(n int) uint32 {
		if n == 0 {
			return endChain
		}
		start := next
		for i := 0; i < n; i++ {
			if i == n-1 {
				fat[start+i] = endChain
			} else {
				fat[start+i] = uint32(start + i + 1)
			}
		}
		next += n
		return uint32(start)
	}
	dirStart := chain(dirSectors)
	miniFATStart := chain(miniFATSectors)
	miniStreamStart := chain(miniStreamSectors)

	out := make([]byte, sectorSize*(total+1))
	hdr := out[:sectorSize]
	copy(hdr, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	binary.LittleEndian.PutUint16(hdr[24:], 0x3E)
	binary.LittleEndian.PutUint16(hdr[26:], 3)
	binary.LittleEndian.PutUint16(hdr[28:], 0xFFFE)
	binary.LittleEndian.PutUint16(hdr[30:], 9)
	binary.LittleEndian.PutUint16(hdr[32:], 6)
	binary.LittleEndian.PutUint32(hdr[44:], uint32(fatSectors))
	binary.LittleEndian.PutUint32(hdr[48:], dirStart)
	binary.LittleEndian.PutUint32(hdr[56:], cutoff)
	binary.LittleEndian.PutUint32(hdr[60:], miniFATStart)
	binary.LittleEndian.PutUint32(hdr[64:], uint32(miniFATSectors))
	binary.LittleEndian.PutUint32(hdr[68:], endChain)
	binary.LittleEndian.PutUint32(hdr[72:], 0)
	for i := 0; i < 109; i++ {
		v := uint32(freeSect)
		if i < fatSectors {
			v = uint32(i)
		}
		binary.LittleEndian.PutUint32(hdr[0x4C+i*4:], v)
	}

	sectorAt := func(n uint32) []byte {
		off := (int(n) + 1) * sectorSize
		return out[off : off+sectorSize]
	}

	var entries []placed
	entries = append(entries, placed{name: "Root Entry", size: len(mini), start: miniStreamStart})
	for i, s := range streams {
		if miniChains[i][0] >= 0 {
			entries = append(entries, placed{name: s.Name, size: len(s.Data), start: uint32(miniChains[i][0])})
			continue
		}
		start := chain(ceil(len(s.Data), sectorSize))
		entries = append(entries, placed{name: s.Name, size: len(s.Data), start: start})
		for k := 0; k*sectorSize < len(s.Data); k++ {
			copy(sectorAt(start+uint32(k)), s.Data[k*sectorSize:])
		}
	}

	for i := 0; i < fatSectors; i++ {
		sec := sectorAt(uint32(i))
		for k := 0; k < sectorSize/4; k++ {
			binary.LittleEndian.PutUint32(sec[k*4:], fat[i*(sectorSize/4)+k])
		}
	}

	miniFAT := make([]uint32, miniFATSectors*(sectorSize/4))
	for i := range miniFAT {
		miniFAT[i] = freeSect
	}
	for _, mc := range miniChains {
		first, n := mc[0], mc[1]
		for k := 0; k < n; k++ {
			if k == n-1 {
				miniFAT[first+k] = endChain
			} else {
				miniFAT[first+k] = uint32(first + k + 1)
			}
		}
	}
	for i := 0; i < miniFATSectors; i++ {
		sec := sectorAt(miniFATStart + uint32(i))
		for k := 0; k < sectorSize/4; k++ {
			binary.LittleEndian.PutUint32(sec[k*4:], miniFAT[i*(sectorSize/4)+k])
		}
	}
	for i := 0; i < miniStreamSectors; i++ {
		copy(sectorAt(miniStreamStart+uint32(i)), mini[i*sectorSize:])
	}

	for i, e := range entries {
		sec := sectorAt(dirStart + uint32(i/(sectorSize/128)))
		slot := sec[(i%(sectorSize/128))*128:][:128]
		name := utf16.Encode([]rune(e.name))
		for k, u := range name {
			binary.LittleEndian.PutUint16(slot[k*2:], u)
		}
		binary.LittleEndian.PutUint16(slot[64:], uint16((len(name)+1)*2))
		if i == 0 {
			slot[66] = 5
		} else {
			slot[66] = 2
		}
		slot[67] = 1
		binary.LittleEndian.PutUint32(slot[68:], freeSect)
		binary.LittleEndian.PutUint32(slot[72:], freeSect)
		child := uint32(freeSect)
		if i == 0 && len(entries) > 1 {
			child = 1
		}
		binary.LittleEndian.PutUint32(slot[76:], child)
		if i > 0 && i < len(entries)-1 {
			binary.LittleEndian.PutUint32(slot[72:], uint32(i+1))
		}
		binary.LittleEndian.PutUint32(slot[116:], e.start)
		binary.LittleEndian.PutUint32(slot[120:], uint32(e.size))
	}
	return out
}

func ceil(n, unit int) int {
	return (n + unit - 1) / unit
}
