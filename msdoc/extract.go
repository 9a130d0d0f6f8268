package msdoc

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/hazyhaar/legacydoc/cfb"
	"github.com/hazyhaar/legacydoc/htmlfilter"
	"github.com/hazyhaar/legacydoc/rtf"
)

// WordDocumentName is the CFB stream holding the FIB and the main text.
const WordDocumentName = "WordDocument"

var (
	rtfPrefix = []byte(`{\rtf`)
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// Sniff reports which decoder Extract would use for buf.
func Sniff(buf []byte) Kind {
	switch {
	case len(buf) == 0:
		return KindUnknown
	case cfb.IsCFB(buf):
		return KindDOC
	case bytes.HasPrefix(buf, rtfPrefix):
		return KindRTF
	}
	rest := bytes.TrimLeft(bytes.TrimPrefix(buf, utf8BOM), " \t\n\r")
	if len(rest) > 0 && rest[0] == '<' {
		return KindHTML
	}
	return KindUnknown
}

// Extract returns the text and properties of a Word document. RTF and HTML
// buffers, which Word happily saves under a .doc name, are handed to their
// own decoders.
func Extract(buf []byte, opts Options) (*Result, error) {
	if len(buf) == 0 {
		return nil, ErrEmptyBuffer
	}
	switch Sniff(buf) {
	case KindDOC:
		return extractCFB(buf, opts)
	case KindRTF:
		return extractRTF(buf, opts)
	case KindHTML:
		return extractHTML(buf, opts), nil
	}
	return nil, ErrHeaderNotFound
}

func extractCFB(buf []byte, opts Options) (*Result, error) {
	w := opts.warner()
	c, err := cfb.Open(buf, cfb.WithLogger(w))
	if err != nil {
		return nil, err
	}
	res := &Result{Kind: KindDOC}

	body := c.Find(WordDocumentName)
	if body == nil {
		return nil, ErrNoWordDocument
	}
	paras, err := DecodeWordDocument(c.ReadStream(body), w)
	if err != nil {
		return nil, err
	}
	res.Paragraphs = paras
	res.Text = strings.Join(paras, "")

	if si := c.Find(SummaryInformationName); si != nil {
		res.Metadata = DecodeSummary(c.ReadStream(si), w)
	}
	return res, nil
}

func extractRTF(buf []byte, opts Options) (*Result, error) {
	r, err := rtf.Convert(buf, rtf.Options{Warner: opts.Warner})
	if err != nil {
		return nil, fmt.Errorf("msdoc: rtf body: %w", err)
	}
	return &Result{Kind: KindRTF, Text: r.Text, Metadata: Metadata(r.Metadata)}, nil
}

func extractHTML(buf []byte, opts Options) *Result {
	f := opts.HTMLFilter
	if f == nil {
		f = htmlfilter.Default
	}
	out, _ := f.Filter(htmlfilter.Decode(buf), true, false)
	return &Result{Kind: KindHTML, Text: out}
}
