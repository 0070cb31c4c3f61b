package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/windlass-io/windlass/pkg/models"
)

const maxResponseBytes = 10 << 20

// Node performs one HTTP request. Server errors (5xx) are returned as node
// errors so the executor's retry policy applies to them; client errors (4xx)
// are data the workflow can branch on.
type Node struct {
	url     string
	method  string
	headers map[string]string
	body    []byte
	client  *http.Client
}

// NewNode creates an HTTP request node.
func NewNode(config map[string]any) (*Node, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, errors.New("missing required field 'url'")
	}

	method := http.MethodGet
	if m, ok := config["method"].(string); ok && m != "" {
		method = strings.ToUpper(m)
	}

	headers := make(map[string]string)

	if raw, ok := config["headers"].(map[string]any); ok {
		for key, value := range raw {
			headers[key] = fmt.Sprintf("%v", value)
		}
	}

	var body []byte

	switch b := config["body"].(type) {
	case nil:
	case string:
		body = []byte(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}

		body = encoded

		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = "application/json"
		}
	}

	return &Node{
		url:     url,
		method:  method,
		headers: headers,
		body:    body,
		client:  http.DefaultClient,
	}, nil
}

// Execute performs the request.
func (n *Node) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	var reader io.Reader
	if n.body != nil {
		reader = bytes.NewReader(n.body)
	}

	req, err := http.NewRequestWithContext(ctx, n.method, n.url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	for key, value := range n.headers {
		req.Header.Set(key, value)
	}

	logger.InfoContext(ctx, "Performing HTTP request",
		"execution_id", executionCtx.ID,
		"method", n.method,
		"url", n.url,
	)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	respHeaders := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		respHeaders[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     respHeaders,
		"body":        parseBody(raw),
	}, nil
}

// parseBody decodes JSON payloads into structured data; anything else passes
// through as a string.
func parseBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return ""
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		var decoded any
		if err := json.Unmarshal(trimmed, &decoded); err == nil {
			return decoded
		}
	}

	return string(raw)
}
