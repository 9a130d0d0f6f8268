package connectivity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/legacydoc/kit"
	"github.com/hazyhaar/legacydoc/safeio"
)

// A remote Document for a large file stays well under this.
const maxRemoteResult int64 = 10 << 20

// remoteExtractor forwards a service payload to another legacydoc
// instance, usually its /rpc/{service} endpoint.
type remoteExtractor struct {
	endpoint    string
	contentType string
	client      *http.Client
}

type remoteConfig struct {
	TimeoutMs   int64  `json:"timeout_ms"`
	ContentType string `json:"content_type"`
}

// HTTPFactory builds handlers for routes with strategy "http". The payload
// (the JSON file request of legacydoc_extract or legacydoc_detect) is
// POSTed to the route endpoint and the response body is the result.
//
// Route config: timeout_ms, default 30000, and content_type, default
// application/json. A non-2xx status becomes an error carrying the status
// code and body; results above 10 MiB are refused.
func HTTPFactory() TransportFactory {
	return func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		if _, err := safeio.CheckEndpoint(endpoint); err != nil {
			return nil, nil, fmt.Errorf("connectivity/http: %w", err)
		}
		cfg := remoteConfig{TimeoutMs: 30_000, ContentType: "application/json"}
		if len(config) > 0 {
			// Malformed config keeps the defaults.
			_ = json.Unmarshal(config, &cfg)
		}
		if cfg.TimeoutMs <= 0 {
			cfg.TimeoutMs = 30_000
		}
		if cfg.ContentType == "" {
			cfg.ContentType = "application/json"
		}

		rx := &remoteExtractor{
			endpoint:    endpoint,
			contentType: cfg.ContentType,
			client:      &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		}
		return rx.call, rx.client.CloseIdleConnections, nil
	}
}

func (rx *remoteExtractor) call(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rx.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("connectivity/http: build request: %w", err)
	}
	req.Header.Set("Content-Type", rx.contentType)
	req.Header.Set("Accept", "application/json")
	if id := kit.GetRequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := rx.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connectivity/http: %s: %w", rx.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := safeio.ReadAll(resp.Body, maxRemoteResult)
	if err != nil {
		return nil, fmt.Errorf("connectivity/http: read result: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("connectivity/http: %s returned %d: %s", rx.endpoint, resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
