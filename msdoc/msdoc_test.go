package msdoc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf16"
)

type recordingWarner struct {
	msgs []string
}

func (r *recordingWarner) Warn(msg string, args ...any) {
	r.msgs = append(r.msgs, fmt.Sprint(append([]any{msg}, args...)...))
}

const testFcMin = 0x400

// wordStream builds a WordDocument stream whose main text is body.
func wordStream(flags uint16, body []byte) []byte {
	s := make([]byte, testFcMin+len(body))
	binary.LittleEndian.PutUint16(s[0:], 0xA5EC)
	binary.LittleEndian.PutUint16(s[10:], flags)
	binary.LittleEndian.PutUint32(s[24:], testFcMin)
	binary.LittleEndian.PutUint32(s[28:], uint32(testFcMin+len(body)))
	copy(s[testFcMin:], body)
	return s
}

func utf16le(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

func decodeText(t *testing.T, body []byte) string {
	t.Helper()
	paras, err := DecodeWordDocument(wordStream(0, body), &recordingWarner{})
	if err != nil {
		t.Fatalf("DecodeWordDocument: %v", err)
	}
	return strings.Join(paras, "")
}

func TestReadFIB(t *testing.T) {
	s := wordStream(flagExtChar|flagEncrypted, []byte("abc"))
	fib, err := ReadFIB(s)
	if err != nil {
		t.Fatalf("ReadFIB: %v", err)
	}
	if fib.Ident != 0xA5EC {
		t.Errorf("Ident = %#x", fib.Ident)
	}
	if !fib.Encrypted() || fib.Complex() || !fib.ExtendedCharset() {
		t.Errorf("flags decoded wrong: %+v", fib)
	}
	if fib.FcMin != testFcMin || fib.TextLength() != 3 {
		t.Errorf("range = %d..%d", fib.FcMin, fib.FcMac)
	}

	if _, err := ReadFIB(make([]byte, 10)); !errors.Is(err, ErrCorrupted) {
		t.Errorf("short FIB: err = %v, want ErrCorrupted", err)
	}
}

func TestDecode_Paragraphs8Bit(t *testing.T) {
	paras, err := DecodeWordDocument(wordStream(0, []byte("Hello world\rSecond paragraph\r")), nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Hello world\n", "Second paragraph\n"}
	if len(paras) != len(want) {
		t.Fatalf("paragraphs = %q, want %q", paras, want)
	}
	for i := range want {
		if paras[i] != want[i] {
			t.Errorf("paragraph %d = %q, want %q", i, paras[i], want[i])
		}
	}
}

func TestDecode_UTF16(t *testing.T) {
	if got := decodeText(t, utf16le("Grüße aus Köln\r")); got != "Grüße aus Köln\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_CharsetFlagsForceUTF16(t *testing.T) {
	// Each CJK unit has a non-zero high byte, which the per-block check
	// alone would take for 8-bit text.
	for _, flag := range []uint16{flagFarEast, flagExtChar} {
		paras, err := DecodeWordDocument(wordStream(flag, utf16le("中文\r")), &recordingWarner{})
		if err != nil {
			t.Fatal(err)
		}
		if got := strings.Join(paras, ""); got != "中文\n" {
			t.Errorf("flags %#x: got %q, want %q", flag, got, "中文\n")
		}
	}
}

func TestDecode_Ligatures(t *testing.T) {
	if got := decodeText(t, utf16le("ﬁne ﬄy\uFEFF\r")); got != "fine ffly\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_Windows1252Controls(t *testing.T) {
	if got := decodeText(t, []byte("\x93quoted\x94 \x96 dash\r")); got != "“quoted” – dash\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_UnknownControlDiscardsParagraph(t *testing.T) {
	if got := decodeText(t, []byte("ab\x81cd\r")); got != "cd\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_HyperlinkFieldKeepsResult(t *testing.T) {
	body := []byte("\x13 HYPERLINK \"http://example.com\" \x14link text\x15 more\r")
	if got := decodeText(t, body); got != "link text more\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_PageFieldDropped(t *testing.T) {
	body := []byte("Page \x13 PAGE \x14 3\x15 end\r")
	if got := decodeText(t, body); got != "Page  end\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_TableRows(t *testing.T) {
	body := []byte("A\x07B\x07\x07next\r")
	if got := decodeText(t, body); got != "A\tB\t\nnext\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_MiscControls(t *testing.T) {
	body := []byte("a\x1Eb\x1Fc\x02d\x09e\x0Bf\r")
	if got := decodeText(t, body); got != "a-bcd\te\nf\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_ControlsCloseOpenField(t *testing.T) {
	// A tab ends the unterminated field, so the field end is plain text.
	body := []byte{0x13, 'H', 'I', 0x09, 0x15, 'x', '\r'}
	if got := decodeText(t, body); got != "HI\tx\n" {
		t.Errorf("tab: got %q", got)
	}
	for _, c := range []byte{0x1E, 0x02, 0x1F, 0x08} {
		body := []byte{0x13, 'a', c, 'b', 0x15, 'c', '\r'}
		want := "ab"
		if c == 0x1E {
			want = "a-b"
		}
		if got := decodeText(t, body); got != want+"c\n" {
			t.Errorf("control %#x: got %q, want %q", c, got, want+"c\n")
		}
	}
}

func TestDecode_PageBreakFlushes(t *testing.T) {
	paras, err := DecodeWordDocument(wordStream(0, []byte("one\x0Ctwo\r")), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(paras) != 2 || paras[0] != "one\n" || paras[1] != "two\n" {
		t.Errorf("paragraphs = %q", paras)
	}
}

func TestDecode_ZeroPaddedBlockFlushes(t *testing.T) {
	body := make([]byte, blockSize)
	copy(body, "Hi there")
	body = append(body, "There\r"...)
	if got := decodeText(t, body); got != "Hi thereThere\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_BinaryBlockSkipped(t *testing.T) {
	body := make([]byte, blockSize)
	for i := range body {
		body[i] = byte(i % 7)
	}
	body[10], body[11] = 0, 0
	body = append(body, "Text\r"...)

	w := &recordingWarner{}
	paras, err := DecodeWordDocument(wordStream(0, body), w)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(paras, ""); got != "Text\n" {
		t.Errorf("got %q", got)
	}
	if len(w.msgs) != 1 || !strings.Contains(w.msgs[0], "binary block") {
		t.Errorf("warnings = %q", w.msgs)
	}
}

func TestDecode_TextLengthBoundsOutput(t *testing.T) {
	s := wordStream(0, []byte("kept\rignored\r"))
	binary.LittleEndian.PutUint32(s[28:], testFcMin+5)
	paras, err := DecodeWordDocument(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(paras, ""); got != "kept\n" {
		t.Errorf("got %q", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
		want   error
	}{
		{"fast saved", wordStream(flagComplex, []byte("x\r")), ErrFastSavedUnsupported},
		{"encrypted", wordStream(flagEncrypted, []byte("x\r")), ErrEncrypted},
		{"short", make([]byte, 8), ErrCorrupted},
		{"body beyond stream", wordStream(0, nil), ErrCorrupted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeWordDocument(tt.stream, nil); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIsExtendedASCII(t *testing.T) {
	if !isExtendedASCII([]byte("plain text")) {
		t.Error("plain text classified as UTF-16")
	}
	if isExtendedASCII(utf16le("wide")) {
		t.Error("UTF-16 classified as 8-bit")
	}
	if isExtendedASCII([]byte(strings.Repeat("x", 200))) {
		t.Error("long block without whitespace classified as 8-bit")
	}
}

func TestIsBinaryBlock(t *testing.T) {
	if isBinaryBlock([]byte("text\x00\x00\x00")) {
		t.Error("zero tail reported binary")
	}
	if !isBinaryBlock([]byte("ab\x00\x00\x01")) {
		t.Error("embedded data not reported binary")
	}
}
