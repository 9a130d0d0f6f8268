package docpipe

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/legacydoc/kit"
	"github.com/hazyhaar/legacydoc/safeio"
)

// RegisterMCP registers the legacydoc tools on an MCP server.
//
//	legacydoc_extract   path | content_base64 -> Document
//	legacydoc_detect    path | content_base64 -> {format, source}
//	legacydoc_formats   -> {formats}
//	legacydoc_metadata  path | content_base64 -> {format, title, metadata}
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	fileSchema := inputSchema(fileProps, []string{"path"})
	kit.RegisterMCPTools(srv, []kit.MCPTool{
		{
			Tool: &mcp.Tool{
				Name:        "legacydoc_extract",
				Description: "Extract text, metadata and optional HTML/Markdown from a legacy document (doc, rtf, html, txt).",
				InputSchema: fileSchema,
			},
			Decode: decodeFileReq,
			Endpoint: func(ctx context.Context, req any) (any, error) {
				return p.extractReq(ctx, req.(*fileReq))
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "legacydoc_detect",
				Description: "Detect a document format from its content, falling back to the file extension.",
				InputSchema: fileSchema,
			},
			Decode: decodeFileReq,
			Endpoint: func(_ context.Context, req any) (any, error) {
				format, source, err := p.detectReq(req.(*fileReq))
				if err != nil {
					return nil, err
				}
				return map[string]any{"format": string(format), "source": source}, nil
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "legacydoc_formats",
				Description: "List all supported document formats.",
				InputSchema: inputSchema(map[string]any{}, nil),
			},
			Decode: kit.NoArgs,
			Endpoint: func(context.Context, any) (any, error) {
				return map[string]any{"formats": SupportedFormats()}, nil
			},
		},
		{
			Tool: &mcp.Tool{
				Name:        "legacydoc_metadata",
				Description: "Return the document properties (title, subject, author, keywords, comments) of a legacy document.",
				InputSchema: fileSchema,
			},
			Decode: decodeFileReq,
			Endpoint: func(ctx context.Context, req any) (any, error) {
				doc, err := p.extractReq(ctx, req.(*fileReq))
				if err != nil {
					return nil, err
				}
				return map[string]any{"format": string(doc.Format), "title": doc.Title, "metadata": doc.Metadata}, nil
			},
		},
	}, kit.Logging(p.logger))
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// fileReq names a file on disk, or carries its bytes inline.
type fileReq struct {
	Path    string `json:"path"`
	Content string `json:"content_base64,omitempty"`
}

var fileProps = map[string]any{
	"path":           map[string]any{"type": "string", "description": "File path, or file name when content_base64 is set"},
	"content_base64": map[string]any{"type": "string", "description": "File content, base64-encoded"},
}

func decodeFileReq(args json.RawMessage) (any, error) {
	var r fileReq
	if err := json.Unmarshal(args, &r); err != nil {
		return nil, err
	}
	if r.Path == "" {
		return nil, errors.New("path is required")
	}
	return &r, nil
}

func (p *Pipeline) extractReq(ctx context.Context, r *fileReq) (*Document, error) {
	if r.Content == "" {
		path, err := p.resolve(r.Path)
		if err != nil {
			return nil, err
		}
		return p.Extract(ctx, path)
	}
	data, err := base64.StdEncoding.DecodeString(r.Content)
	if err != nil {
		return nil, err
	}
	return p.ExtractBytes(ctx, r.Path, data)
}

// resolve maps a requested path into cfg.Root when one is set.
func (p *Pipeline) resolve(path string) (string, error) {
	if p.cfg.Root == "" {
		return path, nil
	}
	return safeio.JoinUnder(p.cfg.Root, path)
}

// detectReq sniffs inline content when present and reports whether the
// answer came from the content or the extension.
func (p *Pipeline) detectReq(r *fileReq) (Format, string, error) {
	if r.Content != "" {
		data, err := base64.StdEncoding.DecodeString(r.Content)
		if err != nil {
			return "", "", err
		}
		if f := p.Sniff(data); f != "" {
			return f, "content", nil
		}
	}
	f, err := p.Detect(r.Path)
	return f, "extension", err
}
