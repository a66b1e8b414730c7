package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// NetworkTool returns captured network requests.
type NetworkTool struct {
	session *devtools.Session
}

// NewNetworkTool creates a new network tool.
func NewNetworkTool(session *devtools.Session) *NetworkTool {
	return &NetworkTool{session: session}
}

// Name returns the tool name.
func (t *NetworkTool) Name() string {
	return "devtools_network"
}

// Description returns the tool description.
func (t *NetworkTool) Description() string {
	return "Read captured network requests with their responses, oldest first. Only the chrome dialect captures network traffic."
}

// Schema returns the tool's JSON schema.
func (t *NetworkTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"method": map[string]interface{}{
				"type":        "string",
				"description": "Only return requests with this HTTP method (e.g. GET, POST)",
			},
			"url_pattern": map[string]interface{}{
				"type":        "string",
				"description": "Glob matched against the full URL, e.g. '*/api/*' or 'https://example.com/*.js'",
			},
			"status": map[string]interface{}{
				"type":        "integer",
				"description": "Only return requests whose response has this status code",
			},
			"pending_only": map[string]interface{}{
				"type":        "boolean",
				"description": "Only return requests that have not received a response yet",
			},
			"verbose": map[string]interface{}{
				"type":        "boolean",
				"description": "Include headers and request bodies. Default: false",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Return at most this many of the most recent matches. Default: %d", DefaultRecordLimit),
			},
			"clear": map[string]interface{}{
				"type":        "boolean",
				"description": "Empty the whole network store after reading. Default: false",
			},
		},
		nil,
	)
}

// NetworkInput defines the input parameters.
type NetworkInput struct {
	XMLName     xml.Name `xml:"arguments"`
	Method      string   `xml:"method"`
	URLPattern  string   `xml:"url_pattern"`
	Status      int      `xml:"status"`
	PendingOnly bool     `xml:"pending_only"`
	Verbose     bool     `xml:"verbose"`
	Limit       *int     `xml:"limit"`
	Clear       bool     `xml:"clear"`
}

// Execute queries the network store.
func (t *NetworkTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input NetworkInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	if input.Status < 0 || input.Status > 999 {
		return "", nil, fmt.Errorf("invalid status %d", input.Status)
	}
	if input.PendingOnly && input.Status != 0 {
		return "", nil, fmt.Errorf("pending_only cannot be combined with status")
	}

	limit, err := resolveLimit(input.Limit, t.session.Capacity())
	if err != nil {
		return "", nil, err
	}

	records, err := t.session.QueryNetwork(devtools.NetworkFilter{
		Method:      strings.TrimSpace(input.Method),
		URLPattern:  strings.TrimSpace(input.URLPattern),
		Status:      input.Status,
		PendingOnly: input.PendingOnly,
	}, limit, input.Clear)
	if err != nil {
		return "", nil, err
	}

	output := devtools.FormatNetwork(records, input.Verbose)
	if status := t.session.Status(); status.Dialect == devtools.DialectFirefox {
		output += "\n\nNote: the firefox dialect does not capture network traffic."
	}
	if input.Clear {
		output += "\n\nNetwork store cleared."
	}

	return output, map[string]interface{}{
		"count":   len(records),
		"cleared": input.Clear,
	}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *NetworkTool) IsLoopBreaking() bool {
	return false
}
