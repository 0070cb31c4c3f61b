// Package httprequest provides the HTTP call node for workflow graphs.
package httprequest

import (
	"github.com/windlass-io/windlass/pkg/protocol"
)

// Factory creates Node instances.
type Factory struct{}

// NewFactory creates a new factory instance.
func NewFactory() protocol.CapabilityFactory {
	return &Factory{}
}

// Create creates a new Node instance from a rendered configuration.
func (f *Factory) Create(config map[string]any) (protocol.Capability, error) {
	return NewNode(config)
}

// ID returns the factory ID.
func (f *Factory) ID() string {
	return "http_request"
}

// Name returns the factory name.
func (f *Factory) Name() string {
	return "HTTP Request"
}

// Description returns the factory description.
func (f *Factory) Description() string {
	return "Performs an HTTP request and exposes the response status, headers, and parsed body"
}

// Schema returns the JSON schema for HTTP request node configuration.
func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "Target URL. Supports templating with execution context data.",
				"examples": []string{
					"https://api.example.com/users/{{.variables.user_id}}",
				},
			},
			"method": map[string]any{
				"type":        "string",
				"description": "HTTP method",
				"enum":        []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD"},
				"default":     "GET",
			},
			"headers": map[string]any{
				"type":        "object",
				"description": "Request headers",
			},
			"body": map[string]any{
				"description": "Request body. A map or slice is sent as JSON; a string is sent verbatim.",
			},
		},
		"required": []string{"url"},
	}
}
