package msdoc

import (
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/legacydoc/cfb"
	"github.com/hazyhaar/legacydoc/cfb/cfbtest"
)

func TestSniff(t *testing.T) {
	doc := cfbtest.Build(cfbtest.Stream{Name: WordDocumentName, Data: wordStream(0, []byte("x\r"))})
	tests := []struct {
		name string
		in   []byte
		want Kind
	}{
		{"empty", nil, KindUnknown},
		{"cfb", doc, KindDOC},
		{"rtf", []byte(`{\rtf1 hi}`), KindRTF},
		{"html", []byte("<html></html>"), KindHTML},
		{"html after bom and space", []byte("\xEF\xBB\xBF \r\n\t<p>x</p>"), KindHTML},
		{"plain", []byte("just text"), KindUnknown},
		{"whitespace", []byte(" \n\t"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sniff(tt.in); got != tt.want {
				t.Errorf("Sniff = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_WordDocument(t *testing.T) {
	data := cfbtest.Build(
		cfbtest.Stream{Name: WordDocumentName, Data: wordStream(0, []byte("First line\rSecond line\r"))},
		cfbtest.Stream{Name: SummaryInformationName, Data: summaryStream(
			lpstr(pidTitle, []byte("Quarterly report")),
			lpstr(pidAuthor, []byte("Jo Bloggs")),
		)},
	)
	res, err := Extract(data, Options{Warner: &recordingWarner{}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Kind != KindDOC {
		t.Errorf("Kind = %q", res.Kind)
	}
	if res.Text != "First line\nSecond line\n" {
		t.Errorf("Text = %q", res.Text)
	}
	if len(res.Paragraphs) != 2 {
		t.Errorf("Paragraphs = %q", res.Paragraphs)
	}
	if res.Metadata.Title != "Quarterly report" || res.Metadata.Author != "Jo Bloggs" {
		t.Errorf("Metadata = %+v", res.Metadata)
	}
}

func TestExtract_LargeWordDocument(t *testing.T) {
	body := strings.Repeat("The quick brown fox jumps over the lazy dog.\r", 200)
	data := cfbtest.Build(cfbtest.Stream{Name: WordDocumentName, Data: wordStream(0, []byte(body))})
	res, err := Extract(data, Options{Warner: &recordingWarner{}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Paragraphs) != 200 {
		t.Errorf("got %d paragraphs, want 200", len(res.Paragraphs))
	}
	if want := strings.ReplaceAll(body, "\r", "\n"); res.Text != want {
		t.Errorf("text differs: got %d bytes, want %d", len(res.Text), len(want))
	}
}

func TestExtract_Errors(t *testing.T) {
	encrypted := cfbtest.Build(cfbtest.Stream{Name: WordDocumentName, Data: wordStream(flagEncrypted, []byte("x\r"))})
	fastSaved := cfbtest.Build(cfbtest.Stream{Name: WordDocumentName, Data: wordStream(flagComplex, []byte("x\r"))})
	noWord := cfbtest.Build(cfbtest.Stream{Name: "Workbook", Data: []byte("cells")})

	tests := []struct {
		name string
		in   []byte
		want error
	}{
		{"empty", []byte{}, ErrEmptyBuffer},
		{"unknown", []byte("plain text"), ErrHeaderNotFound},
		{"whitespace only", []byte("\xEF\xBB\xBF \n"), ErrHeaderNotFound},
		{"encrypted", encrypted, ErrEncrypted},
		{"fast saved", fastSaved, ErrFastSavedUnsupported},
		{"no WordDocument", noWord, ErrNoWordDocument},
		{"broken container", cfbtest.Build()[:100], cfb.ErrBadHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(tt.in, Options{Warner: &recordingWarner{}})
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExtract_RTFSavedAsDoc(t *testing.T) {
	in := `{\rtf1\ansi\ansicpg1252\deff0\deflang1033{\fonttbl{\f0\fswiss\fcharset0 Arial;}{\f1\froman\fprq2\fcharset0 Batang;}}` +
		`{\colortbl ;\red192\green192\blue192;\red128\green128\blue0;\red0\green0\blue128;}{\*\generator Msftedit 5.41.15.1515;}` +
		`\viewkind4\uc1\pard\f0\fs20 H\b e\ul\i r\ulnone\b0\i0 e is s\cf1\ul\b om\cf0\ulnone\b0 e t\i\f1\fs56 ex\i0\f0\fs20 t t\i\fs48 h\i0\fs20 at is \cf2 for\cf3\ul\i ma\cf2\ulnone\i0 tted\cf0 .\par}`
	res, err := Extract([]byte(in), Options{Warner: &recordingWarner{}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Kind != KindRTF {
		t.Errorf("Kind = %q", res.Kind)
	}
	want := "\nHere is some text that is formatted.\n"
	if res.Text != want {
		t.Errorf("Text = %q, want %q", res.Text, want)
	}
	if n := len([]rune(res.Text)); n != 38 {
		t.Errorf("length = %d, want 38", n)
	}
}

func TestExtract_HTMLSavedAsDoc(t *testing.T) {
	in := []byte("\xEF\xBB\xBF\n<html><head><title>t</title></head><body><p>Hello &amp; welcome</p></body></html>")
	res, err := Extract(in, Options{Warner: &recordingWarner{}})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Kind != KindHTML {
		t.Errorf("Kind = %q", res.Kind)
	}
	if !strings.Contains(res.Text, "Hello &amp; welcome") {
		t.Errorf("Text = %q", res.Text)
	}
	if strings.Contains(res.Text, "<p>") {
		t.Errorf("markup left in %q", res.Text)
	}
}

type upperFilter struct{}

func (upperFilter) Filter(text string, _, _ bool) (string, int) {
	s := strings.ToUpper(text)
	return s, len([]rune(s))
}

func TestExtract_CustomHTMLFilter(t *testing.T) {
	res, err := Extract([]byte("<b>x</b>"), Options{HTMLFilter: upperFilter{}, Warner: &recordingWarner{}})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "<B>X</B>" {
		t.Errorf("Text = %q", res.Text)
	}
}
