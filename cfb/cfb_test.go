package cfb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/hazyhaar/legacydoc/cfb/cfbtest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsCFB(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want bool
	}{
		{"standard", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0}, true},
		{"beta", []byte{0x0E, 0x11, 0xFC, 0x0D, 0xD0, 0xCF, 0x11, 0x0E}, true},
		{"rtf", []byte(`{\rtf1 hello}`), false},
		{"short", []byte{0xD0, 0xCF}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		if got := IsCFB(tt.in); got != tt.want {
			t.Errorf("IsCFB(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOpen_SmallAndLargeStreams(t *testing.T) {
	small := []byte("tiny stream body")
	large := bytes.Repeat([]byte("0123456789abcdef"), 400) // 6400 bytes
	data := cfbtest.Build(
		cfbtest.Stream{Name: "Small", Data: small},
		cfbtest.Stream{Name: "Large", Data: large},
	)

	c, err := Open(data, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.SectorSize() != 512 || c.MiniSectorSize() != 64 {
		t.Errorf("sector sizes = %d/%d, want 512/64", c.SectorSize(), c.MiniSectorSize())
	}
	if c.Root() == nil || c.Root().Type != TypeRoot {
		t.Fatalf("root entry missing or wrong type: %+v", c.Root())
	}

	got, err := c.Stream("Small")
	if err != nil {
		t.Fatalf("Stream(Small): %v", err)
	}
	if !bytes.Equal(got, small) {
		t.Errorf("Stream(Small) = %q, want %q", got, small)
	}
	if e := c.Find("Small"); e == nil || !e.InMiniStream() {
		t.Error("Small should live in the mini stream")
	}

	got, err = c.Stream("Large")
	if err != nil {
		t.Fatalf("Stream(Large): %v", err)
	}
	if !bytes.Equal(got, large) {
		t.Errorf("Stream(Large) length %d, want %d (content mismatch)", len(got), len(large))
	}
}

func TestOpen_UnicodeName(t *testing.T) {
	data := cfbtest.Build(cfbtest.Stream{Name: "\x05SummaryInformation", Data: []byte{1, 2, 3}})
	c, err := Open(data, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if c.Find("\x05SummaryInformation") == nil {
		t.Error("entry with control-character name not found")
	}
}

func TestStream_NotFound(t *testing.T) {
	c, err := Open(cfbtest.Build(cfbtest.Stream{Name: "A", Data: []byte("x")}), WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := c.Stream("WordDocument"); !errors.Is(err, ErrStreamNotFound) {
		t.Errorf("Stream(missing) error = %v, want ErrStreamNotFound", err)
	}
}

func TestOpen_BadHeader(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}},
		{"not cfb", bytes.Repeat([]byte{'x'}, 1024)},
	}
	for _, tt := range tests {
		if _, err := Open(tt.data); !errors.Is(err, ErrBadHeader) {
			t.Errorf("Open(%s) error = %v, want ErrBadHeader", tt.name, err)
		}
	}
}

func TestOpen_FATCountBeyondFile(t *testing.T) {
	data := cfbtest.Build(cfbtest.Stream{Name: "A", Data: []byte("hello")})
	binary.LittleEndian.PutUint32(data[44:], 10000)
	_, err := Open(data, WithLogger(quietLogger()))
	if !errors.Is(err, ErrBadAllocationTable) {
		t.Errorf("error = %v, want ErrBadAllocationTable", err)
	}
}

func TestOpen_XBATCountBeyondFile(t *testing.T) {
	data := cfbtest.Build(cfbtest.Stream{Name: "A", Data: []byte("hello")})
	binary.LittleEndian.PutUint32(data[72:], 10000)
	_, err := Open(data, WithLogger(quietLogger()))
	if !errors.Is(err, ErrBadAllocationTable) {
		t.Errorf("error = %v, want ErrBadAllocationTable", err)
	}
}

func TestOpen_FATPointerOutOfRange(t *testing.T) {
	data := cfbtest.Build(cfbtest.Stream{Name: "A", Data: []byte("hello")})
	binary.LittleEndian.PutUint32(data[0x4C:], 5000)
	_, err := Open(data, WithLogger(quietLogger()))
	if !errors.Is(err, ErrBadAllocationTable) {
		t.Errorf("error = %v, want ErrBadAllocationTable", err)
	}

	binary.LittleEndian.PutUint32(data[0x4C:], 0xFFFFFFF0)
	_, err = Open(data, WithLogger(quietLogger()))
	if !errors.Is(err, ErrBadAllocationTable) {
		t.Errorf("negative pointer error = %v, want ErrBadAllocationTable", err)
	}
}

func TestOpen_RootEntryNotFound(t *testing.T) {
	data := cfbtest.Build(cfbtest.Stream{Name: "A", Data: []byte("hello")})
	if _, err := Open(data, WithLogger(quietLogger())); err != nil {
		t.Fatalf("Open before corruption: %v", err)
	}
	// Directory starts right after the single FAT sector (sector 1).
	slot := data[2*512:]
	slot[66] = byte(TypeStorage)
	copy(slot[:20], []byte{'N', 0, 'o', 0, 't', 0, 'R', 0, 'o', 0, 'o', 0, 't', 0, 0, 0, 0, 0, 0, 0})
	binary.LittleEndian.PutUint16(slot[64:], 16)
	if _, err := Open(data, WithLogger(quietLogger())); !errors.Is(err, ErrRootEntryNotFound) {
		t.Errorf("error = %v, want ErrRootEntryNotFound", err)
	}
}

func TestResolveChain_CycleIsBounded(t *testing.T) {
	large := bytes.Repeat([]byte{'z'}, 5000)
	data := cfbtest.Build(cfbtest.Stream{Name: "Large", Data: large})
	c, err := Open(data, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	e := c.Find("Large")
	first := e.StartSector

	// Point the stream's first sector at itself and grow the declared size.
	fatOff := 512 + int(first)*4
	binary.LittleEndian.PutUint32(data[fatOff:], first)
	dirSlot := 2*512 + 128
	binary.LittleEndian.PutUint32(data[dirSlot+120:], 0x7FFFFFFF)

	c, err = Open(data, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("Open after corruption: %v", err)
	}
	e = c.Find("Large")
	if len(e.Sectors) > 128 {
		t.Errorf("chain length %d exceeds FAT size", len(e.Sectors))
	}
	if e.Size > int64(len(e.Sectors))*512 {
		t.Errorf("size %d not clamped to %d sectors", e.Size, len(e.Sectors))
	}
	_ = c.ReadStream(e)
}

func TestEntryType_String(t *testing.T) {
	if TypeRoot.String() != "root" || TypeStream.String() != "stream" || EntryType(9).String() != "unknown" {
		t.Error("unexpected EntryType names")
	}
}

// Random mutations of a valid container must never panic; they either parse
// or fail with one of the package errors.
func TestOpen_MutationsContained(t *testing.T) {
	base := cfbtest.Build(
		cfbtest.Stream{Name: "WordDocument", Data: bytes.Repeat([]byte("text "), 1000)},
		cfbtest.Stream{Name: "Small", Data: []byte("small")},
	)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		data := append([]byte(nil), base...)
		for k := 0; k < 8; k++ {
			pos := rng.Intn(len(data))
			data[pos] = byte(rng.Intn(256))
		}
		c, err := Open(data, WithLogger(quietLogger()))
		if err != nil {
			if !errors.Is(err, ErrBadHeader) && !errors.Is(err, ErrBadAllocationTable) && !errors.Is(err, ErrRootEntryNotFound) {
				t.Fatalf("iteration %d: unexpected error %v", i, err)
			}
			continue
		}
		for _, e := range c.Entries() {
			_ = c.ReadStream(e)
		}
	}
}

func FuzzOpen(f *testing.F) {
	f.Add(cfbtest.Build(cfbtest.Stream{Name: "WordDocument", Data: []byte("hello world")}))
	f.Fuzz(func(t *testing.T, data []byte) {
		c, err := Open(data, WithLogger(quietLogger()))
		if err != nil {
			return
		}
		for _, e := range c.Entries() {
			if got := c.ReadStream(e); int64(len(got)) > e.Size {
				t.Fatalf("stream %q longer than its size", e.Name)
			}
		}
	})
}
