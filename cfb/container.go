package cfb

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/legacydoc/bytecursor"
)

// Container is a parsed CFB file. It borrows the caller's buffer and is
// immutable after Open.
type Container struct {
	data           []byte
	sectorSize     int
	miniSectorSize int
	sectorCount    int
	fat            []int32
	miniFAT        []int32
	entries        []*DirectoryEntry
	root           *DirectoryEntry
	logger         Warner
}

// Warner receives recoverable anomalies. *slog.Logger satisfies it.
type Warner interface {
	Warn(msg string, args ...any)
}

// Option configures Open.
type Option func(*Container)

// WithLogger sets the sink for recoverable anomalies. Nil keeps slog.Default.
func WithLogger(l Warner) Option {
	return func(c *Container) {
		if l != nil {
			c.logger = l
		}
	}
}

// header holds the fields of the 512-byte file header this reader uses.
type header struct {
	sectorShift   uint16
	miniShift     uint16
	fatCount      uint32
	dirStart      uint32
	miniFATStart  int32
	miniFATCount  uint32
	difatStart    uint32
	difatCount    uint32
	inlineSectors []int32
}

func readHeader(cur *bytecursor.Cursor) (*header, error) {
	raw := cur.Next(headerSize)
	if len(raw) < headerSize || !IsCFB(raw) {
		return nil, ErrBadHeader
	}
	h := &header{
		sectorShift:  binary.LittleEndian.Uint16(raw[30:]),
		miniShift:    binary.LittleEndian.Uint16(raw[32:]),
		fatCount:     binary.LittleEndian.Uint32(raw[44:]),
		dirStart:     binary.LittleEndian.Uint32(raw[48:]),
		miniFATStart: int32(binary.LittleEndian.Uint32(raw[60:])),
		miniFATCount: binary.LittleEndian.Uint32(raw[64:]),
		difatStart:   binary.LittleEndian.Uint32(raw[68:]),
		difatCount:   binary.LittleEndian.Uint32(raw[72:]),
	}
	h.inlineSectors = make([]int32, inlineDIFATCount)
	for i := range h.inlineSectors {
		h.inlineSectors[i] = int32(binary.LittleEndian.Uint32(raw[inlineDIFATStart+i*4:]))
	}
	if h.sectorShift < 7 || h.sectorShift > 16 || h.miniShift < 4 || h.miniShift > h.sectorShift {
		return nil, fmt.Errorf("%w: sector shift %d, mini shift %d", ErrBadHeader, h.sectorShift, h.miniShift)
	}
	return h, nil
}

// Open parses the header, allocation tables and directory of data.
// A buffer without a CFB signature yields ErrBadHeader.
func Open(data []byte, opts ...Option) (*Container, error) {
	c := &Container{data: data, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}

	cur := bytecursor.New(data)
	h, err := readHeader(cur)
	if err != nil {
		return nil, err
	}
	c.sectorSize = 1 << h.sectorShift
	c.miniSectorSize = 1 << h.miniShift
	c.sectorCount = len(data) / c.sectorSize

	if h.fatCount == 0 {
		return nil, fmt.Errorf("%w: no allocation table sectors", ErrBadHeader)
	}
	fileLen := uint64(len(data))
	if uint64(h.fatCount)*uint64(c.sectorSize) > fileLen {
		return nil, fmt.Errorf("%w: %d FAT sectors exceed file length", ErrBadAllocationTable, h.fatCount)
	}
	if uint64(h.difatCount)*uint64(c.sectorSize) > fileLen {
		return nil, fmt.Errorf("%w: %d XBAT sectors exceed file length", ErrBadAllocationTable, h.difatCount)
	}

	fatSectors, err := c.collectFATSectors(h)
	if err != nil {
		return nil, err
	}
	if err := c.loadFAT(fatSectors); err != nil {
		return nil, err
	}
	if err := c.loadMiniFAT(h); err != nil {
		return nil, err
	}
	c.scanDirectory(h.dirStart)

	for _, e := range c.entries {
		if e.IsRoot() {
			c.root = e
			break
		}
	}
	if c.root == nil {
		return nil, ErrRootEntryNotFound
	}
	return c, nil
}

// sector returns the bytes of regular sector n, short at the end of file.
func (c *Container) sector(n int64) []byte {
	if n < 0 {
		return nil
	}
	cur := bytecursor.New(c.data)
	cur.Seek((n+1)*int64(c.sectorSize), io.SeekStart)
	return cur.Next(c.sectorSize)
}

func (c *Container) validSector(n int32) bool {
	return n >= 0 && int(n) < c.sectorCount
}

// collectFATSectors lists the sectors holding the FAT: the 109 header slots,
// then each XBAT sector's data slots, following the XBAT's last slot to the
// next one. It stops at the declared FAT sector count.
func (c *Container) collectFATSectors(h *header) ([]int32, error) {
	want := int(h.fatCount)
	list := make([]int32, 0, want)
	for _, s := range h.inlineSectors {
		if len(list) == want {
			break
		}
		list = append(list, s)
	}

	perXBAT := c.sectorSize/4 - 1
	next := int32(h.difatStart)
	for i := uint32(0); i < h.difatCount && len(list) < want; i++ {
		if !c.validSector(next) {
			return nil, fmt.Errorf("%w: XBAT sector %d out of range", ErrBadAllocationTable, next)
		}
		raw := c.sector(int64(next))
		if len(raw) < c.sectorSize {
			return nil, fmt.Errorf("%w: short XBAT sector %d", ErrBadAllocationTable, next)
		}
		for k := 0; k < perXBAT && len(list) < want; k++ {
			list = append(list, int32(binary.LittleEndian.Uint32(raw[k*4:])))
		}
		next = int32(binary.LittleEndian.Uint32(raw[perXBAT*4:]))
	}

	if len(list) < want {
		c.logger.Warn("cfb: FAT sector list shorter than declared",
			"declared", want, "found", len(list))
	}
	return list, nil
}

func (c *Container) loadFAT(sectors []int32) error {
	per := c.sectorSize / 4
	c.fat = make([]int32, 0, len(sectors)*per)
	for _, s := range sectors {
		if !c.validSector(s) {
			return fmt.Errorf("%w: FAT sector %d out of range (%d sectors)", ErrBadAllocationTable, s, c.sectorCount)
		}
		raw := c.sector(int64(s))
		if len(raw) < c.sectorSize {
			return fmt.Errorf("%w: short FAT sector %d", ErrBadAllocationTable, s)
		}
		for k := 0; k < per; k++ {
			c.fat = append(c.fat, int32(binary.LittleEndian.Uint32(raw[k*4:])))
		}
	}
	return nil
}

// loadMiniFAT follows the MiniFAT chain through the FAT, reading at most the
// declared number of sectors.
func (c *Container) loadMiniFAT(h *header) error {
	start := h.miniFATStart
	if start <= 0 || int(start) >= c.sectorCount {
		if start != EndOfChain {
			c.logger.Warn("cfb: MiniFAT start out of range", "start", start)
		}
		return nil
	}

	budget := int(h.miniFATCount)
	if budget == 0 {
		c.logger.Warn("cfb: MiniFAT start set but sector count is zero", "start", start)
		return nil
	}
	cur := start
	read := 0
	for read < budget {
		raw := c.sector(int64(cur))
		for k := 0; k+4 <= len(raw); k += 4 {
			c.miniFAT = append(c.miniFAT, int32(binary.LittleEndian.Uint32(raw[k:])))
		}
		read++
		if int(cur) >= len(c.fat) {
			return fmt.Errorf("%w: MiniFAT sector %d beyond FAT", ErrBadAllocationTable, cur)
		}
		cur = c.fat[cur]
		if !c.validSector(cur) {
			break
		}
	}
	if read == budget && c.validSector(cur) {
		c.logger.Warn("cfb: MiniFAT chain longer than declared, truncated", "sectors", budget)
	}
	return nil
}

// scanDirectory reads 128-byte entries sequentially from the directory start
// until the derived entry count runs out or the buffer ends.
func (c *Container) scanDirectory(dirStart uint32) {
	if int64(dirStart) >= int64(c.sectorCount) {
		c.logger.Warn("cfb: directory start beyond file", "start", dirStart)
		return
	}
	count := (c.sectorCount - int(dirStart)) * (c.sectorSize / entrySize)
	cur := bytecursor.New(c.data)
	cur.Seek((int64(dirStart)+1)*int64(c.sectorSize), io.SeekStart)

	for i := 0; i < count; i++ {
		slot := cur.Next(entrySize)
		if len(slot) < entrySize {
			c.logger.Warn("cfb: directory entry beyond file length", "index", i)
			return
		}
		e, ok := parseEntry(slot)
		if !ok {
			c.logger.Warn("cfb: corrupt entry name, entry skipped", "index", i)
			continue
		}
		c.resolveChain(e)
		c.entries = append(c.entries, e)
	}
}

// resolveChain walks the entry's sector chain. The walk stops at a negative
// pointer, at the end of the table, or once ceil(size/unit) sectors (never
// more than the table holds) are collected; Size is then clamped to the
// collected sectors.
func (c *Container) resolveChain(e *DirectoryEntry) {
	table, unit := c.fat, int64(c.sectorSize)
	if e.InMiniStream() {
		table, unit = c.miniFAT, int64(c.miniSectorSize)
	}
	budget := (e.Size + unit - 1) / unit
	if n := int64(len(table)); budget > n {
		budget = n
	}

	cur := e.StartSector
	for int64(len(e.Sectors)) < budget {
		if int64(cur) >= int64(len(table)) {
			break
		}
		e.Sectors = append(e.Sectors, cur)
		next := table[cur]
		if next < 0 {
			break
		}
		cur = uint32(next)
	}
	if limit := int64(len(e.Sectors)) * unit; e.Size > limit {
		e.Size = limit
	}
}

// SectorSize returns the regular sector size, normally 512.
func (c *Container) SectorSize() int { return c.sectorSize }

// MiniSectorSize returns the mini sector size, normally 64.
func (c *Container) MiniSectorSize() int { return c.miniSectorSize }

// Root returns the root storage entry.
func (c *Container) Root() *DirectoryEntry { return c.root }

// Entries returns the directory entries in file order.
func (c *Container) Entries() []*DirectoryEntry { return c.entries }

// Find returns the first stream or storage entry named name.
func (c *Container) Find(name string) *DirectoryEntry {
	for _, e := range c.entries {
		if e.Type == TypeUnallocated {
			continue
		}
		if e.Name == name {
			return e
		}
	}
	return nil
}

// Stream returns the contents of the named stream.
func (c *Container) Stream(name string) ([]byte, error) {
	e := c.Find(name)
	if e == nil {
		return nil, fmt.Errorf("%w: %q", ErrStreamNotFound, name)
	}
	return c.ReadStream(e), nil
}

// ReadStream returns the bytes of e, read sector by sector through its
// resolved chain. Sectors that fall outside the file end the stream early.
func (c *Container) ReadStream(e *DirectoryEntry) []byte {
	unit := int64(c.sectorSize)
	if e.InMiniStream() {
		unit = int64(c.miniSectorSize)
	}
	out := make([]byte, 0, e.Size)
	remaining := e.Size
	for i := range e.Sectors {
		if remaining <= 0 {
			break
		}
		off, ok := c.sectorOffset(e, i)
		if !ok {
			c.logger.Warn("cfb: stream sector outside file", "entry", e.Name, "index", i)
			break
		}
		n := unit
		if remaining < n {
			n = remaining
		}
		cur := bytecursor.Window(c.data, int(off), int(n))
		chunk := cur.Next(int(n))
		out = append(out, chunk...)
		remaining -= int64(len(chunk))
		if int64(len(chunk)) < n {
			break
		}
	}
	return out
}

// sectorOffset maps the i-th sector of e to a file offset. Mini sectors are
// located inside the root entry's chain.
func (c *Container) sectorOffset(e *DirectoryEntry, i int) (int64, bool) {
	s := int64(e.Sectors[i])
	if !e.InMiniStream() {
		off := (s + 1) * int64(c.sectorSize)
		return off, off < int64(len(c.data))
	}
	perSector := int64(c.sectorSize / c.miniSectorSize)
	rootIdx := s / perSector
	if c.root == nil || rootIdx >= int64(len(c.root.Sectors)) {
		return 0, false
	}
	off := (int64(c.root.Sectors[rootIdx])+1)*int64(c.sectorSize) + (s%perSector)*int64(c.miniSectorSize)
	return off, off < int64(len(c.data))
}
