package docpipe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/legacydoc/connectivity"
)

// RegisterConnectivity registers the pipeline services on a router.
//
//	legacydoc_extract  {"path": ..., "content_base64": ...} -> Document
//	legacydoc_detect   {"path": ..., "content_base64": ...} -> {"format", "source"}
func (p *Pipeline) RegisterConnectivity(router *connectivity.Router) {
	router.RegisterLocal("legacydoc_extract", p.handleExtract)
	router.RegisterLocal("legacydoc_detect", p.handleDetect)
}

func (p *Pipeline) handleExtract(ctx context.Context, payload []byte) ([]byte, error) {
	var req fileReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	doc, err := p.extractReq(ctx, &req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

func (p *Pipeline) handleDetect(_ context.Context, payload []byte) ([]byte, error) {
	var req fileReq
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	format, source, err := p.detectReq(&req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{"format": string(format), "source": source})
}
