package docpipe

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/legacydoc/docstore"
)

// newPolicy allows user-generated-content markup plus the spans the RTF
// renderer emits for colors and character formatting.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[A-Za-z0-9_-]+$`)).OnElements("span")
	p.AllowAttrs("style").OnElements("span")
	p.AllowStyles("font-weight", "font-style", "text-decoration").OnElements("span")
	return p
}

func newMarkdownConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

func (p *Pipeline) sanitize(html string) string {
	if !p.cfg.Sanitize {
		return html
	}
	return p.policy.Sanitize(html)
}

// markdown converts html, returning "" when the conversion fails.
func (p *Pipeline) markdown(html string) string {
	out, err := p.md.ConvertString(p.sanitize(html))
	if err != nil {
		p.logger.Warn("docpipe: markdown conversion failed", "error", err)
		return ""
	}
	return strings.TrimSpace(out)
}

func (p *Pipeline) cached(ctx context.Context, key, name string, format Format) (*Document, bool) {
	e, ok, err := p.store.Get(ctx, key, p.cfg.variant(format))
	if err != nil {
		p.logger.WarnContext(ctx, "docpipe: cache lookup failed", "path", name, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var doc Document
	if err := json.Unmarshal(e.Payload, &doc); err != nil {
		p.logger.WarnContext(ctx, "docpipe: cache entry unreadable", "path", name, "error", err)
		return nil, false
	}
	doc.Path = name
	doc.Cached = true
	p.logger.DebugContext(ctx, "docpipe: cache hit", "path", name, "key", key)
	return &doc, true
}

func (p *Pipeline) remember(ctx context.Context, key string, doc *Document) {
	payload, err := json.Marshal(doc)
	if err == nil {
		err = p.store.Put(ctx, docstore.Entry{
			Key:     key,
			Variant: p.cfg.variant(doc.Format),
			Format:  string(doc.Format),
			Name:    doc.Path,
			Payload: payload,
		})
	}
	if err != nil {
		p.logger.WarnContext(ctx, "docpipe: cache store failed", "path", doc.Path, "error", err)
	}
}
