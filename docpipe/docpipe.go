// Package docpipe extracts structured text from legacy word-processor files.
//
// Supported formats:
//   - .doc  Word 97-2003 binary documents (CFB container)
//   - .rtf  Rich Text Format, as text and optionally as HTML and Markdown
//   - .html HTML saved under any name, including .doc
//   - .txt  plain text, UTF-8 or Windows-1252
//
// The content decides the decoder; the extension is only consulted when
// the bytes match no known signature.
//
//	pipe := docpipe.New(docpipe.Config{HTML: true})
//	doc, err := pipe.Extract(ctx, "/path/to/letter.doc")
//	fmt.Println(doc.Title, len(doc.Sections), "paragraphs")
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/encoding/charmap"

	"github.com/hazyhaar/legacydoc/docstore"
	"github.com/hazyhaar/legacydoc/htmlfilter"
	"github.com/hazyhaar/legacydoc/msdoc"
	"github.com/hazyhaar/legacydoc/rtf"
)

var (
	// ErrUnsupportedFormat is returned when neither content nor extension
	// name a supported format.
	ErrUnsupportedFormat = errors.New("docpipe: unsupported format")
	// ErrTooLarge is returned for input above Config.MaxFileSize.
	ErrTooLarge = errors.New("docpipe: file too large")
)

const maxTitleRunes = 120

// Pipeline is the document extraction engine.
type Pipeline struct {
	cfg      Config
	logger   *slog.Logger
	store    *docstore.Store
	ownStore bool
	policy   *bluemonday.Policy
	md       *converter.Converter
}

// Option customises New.
type Option func(*Pipeline)

// WithStore uses s as the result cache instead of opening Config.CachePath.
func WithStore(s *docstore.Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// New creates a Pipeline. When Config.CachePath is set and the cache cannot
// be opened, the pipeline runs without it.
func New(cfg Config, opts ...Option) *Pipeline {
	cfg.defaults()
	p := &Pipeline{
		cfg:    cfg,
		logger: cfg.Logger,
		policy: newPolicy(),
		md:     newMarkdownConverter(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.store == nil && cfg.CachePath != "" {
		s, err := docstore.Open(cfg.CachePath)
		if err != nil {
			p.logger.Warn("docpipe: cache disabled", "path", cfg.CachePath, "error", err)
		} else {
			p.store, p.ownStore = s, true
		}
	}
	return p
}

// Close releases the cache opened from Config.CachePath.
func (p *Pipeline) Close() error {
	if p.ownStore {
		return p.store.Close()
	}
	return nil
}

// Detect returns the document format based on file extension.
func (p *Pipeline) Detect(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".doc", ".dot", ".wbk":
		return FormatDOC, nil
	case ".rtf":
		return FormatRTF, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".txt", ".text":
		return FormatTXT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// Sniff returns the format recognised from the content, or "" when the
// bytes carry no known signature.
func (p *Pipeline) Sniff(data []byte) Format {
	switch msdoc.Sniff(data) {
	case msdoc.KindDOC:
		return FormatDOC
	case msdoc.KindRTF:
		return FormatRTF
	case msdoc.KindHTML:
		return FormatHTML
	}
	return ""
}

// Extract reads and extracts the file at path.
func (p *Pipeline) Extract(ctx context.Context, path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, info.Size(), p.cfg.MaxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return p.ExtractBytes(ctx, path, data)
}

// ExtractBytes extracts data. name is reported as Document.Path and its
// extension is used when the content is not recognised.
func (p *Pipeline) ExtractBytes(ctx context.Context, name string, data []byte) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if int64(len(data)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(data), p.cfg.MaxFileSize)
	}

	format := p.Sniff(data)
	if format == "" {
		f, err := p.Detect(name)
		if err != nil {
			return nil, err
		}
		format = f
	}

	var key string
	if p.store != nil {
		key = docstore.Key(data)
		if doc, ok := p.cached(ctx, key, name, format); ok {
			return doc, nil
		}
	}

	p.logger.DebugContext(ctx, "extracting document", "path", name, "format", format, "bytes", len(data))
	doc, err := p.decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("extract %s (%s): %w", name, format, err)
	}
	doc.Path = name
	if doc.Quality.LooksGarbled() {
		p.logger.WarnContext(ctx, "docpipe: extracted text looks garbled",
			"path", name, "printable_ratio", doc.Quality.PrintableRatio, "wordlike_ratio", doc.Quality.WordlikeRatio)
	}

	if p.store != nil {
		p.remember(ctx, key, doc)
	}
	return doc, nil
}

func (p *Pipeline) decode(data []byte, format Format) (*Document, error) {
	doc := &Document{Format: format}
	var text, source string
	var paragraphs []string

	switch format {
	case FormatDOC:
		res, err := msdoc.Extract(data, msdoc.Options{Warner: p.logger})
		if err != nil {
			return nil, err
		}
		doc.Metadata = res.Metadata
		text, paragraphs = res.Text, res.Paragraphs
	case FormatHTML:
		source = htmlfilter.Decode(data)
		text, _ = htmlfilter.Default.Filter(source, true, false)
		doc.Metadata.Title = htmlfilter.Title(source)
	case FormatRTF:
		res, err := rtf.Convert(data, rtf.Options{Warner: p.logger})
		if err != nil {
			return nil, err
		}
		text = res.Text
		doc.Metadata = msdoc.Metadata(res.Metadata)
		doc.FontSize = res.FontSize
		doc.Page = &res.Page
		if p.cfg.HTML || p.cfg.Markdown {
			// Warnings were already reported by the text pass.
			hres, err := rtf.Convert(data, rtf.Options{
				HTML:        true,
				StylePrefix: p.cfg.StylePrefix,
				Warner:      slog.New(slog.DiscardHandler),
			})
			if err != nil {
				return nil, err
			}
			source = hres.Text
			doc.Style = hres.Style
			doc.Font = hres.Font
			if hres.TextColor.Web != "" {
				doc.TextColor = "#" + hres.TextColor.Web
			}
		}
	case FormatTXT:
		text = decodeText(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	if paragraphs == nil {
		paragraphs = strings.SplitAfter(text, "\n")
	}
	for _, para := range paragraphs {
		if s := strings.TrimSpace(para); s != "" {
			doc.Sections = append(doc.Sections, Section{Index: len(doc.Sections), Text: s, Type: "paragraph"})
		}
	}
	doc.RawText = text
	doc.Title = doc.Metadata.Title
	if doc.Title == "" && len(doc.Sections) > 0 {
		doc.Title = firstLine(doc.Sections[0].Text)
	}

	if source != "" {
		if p.cfg.HTML {
			doc.HTML = p.sanitize(source)
		}
		if p.cfg.Markdown {
			doc.Markdown = p.markdown(source)
		}
	}
	doc.Quality = measure(text, len(doc.Sections))
	return doc, nil
}

// decodeText reads UTF-8, falling back to Windows-1252, and normalises
// line endings.
func decodeText(data []byte) string {
	var s string
	if utf8.Valid(data) {
		s = strings.TrimPrefix(string(data), "\uFEFF")
	} else {
		b, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			b = data
		}
		s = string(b)
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func firstLine(s string) string {
	if i := strings.IndexAny(s, "\n\f\t"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > maxTitleRunes {
		s = string([]rune(s)[:maxTitleRunes])
	}
	return s
}

// SupportedFormats returns all supported format names.
func SupportedFormats() []string {
	return []string{string(FormatDOC), string(FormatRTF), string(FormatHTML), string(FormatTXT)}
}
