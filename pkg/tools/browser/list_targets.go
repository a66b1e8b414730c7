package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// ListTargetsTool lists the debuggable targets of a browser.
type ListTargetsTool struct {
	session *devtools.Session
}

// NewListTargetsTool creates a new list targets tool.
func NewListTargetsTool(session *devtools.Session) *ListTargetsTool {
	return &ListTargetsTool{session: session}
}

// Name returns the tool name.
func (t *ListTargetsTool) Name() string {
	return "devtools_list_targets"
}

// Description returns the tool description.
func (t *ListTargetsTool) Description() string {
	return "List the tabs and other debuggable targets of a browser, in the order used by devtools_connect's target_index. Does not require a connection."
}

// Schema returns the tool's JSON schema.
func (t *ListTargetsTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"dialect": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"chrome", "firefox"},
				"description": "Debugging protocol. Default from config (chrome).",
			},
			"host": map[string]interface{}{
				"type":        "string",
				"description": "Host of the debugging endpoint. Default: localhost",
			},
			"port": map[string]interface{}{
				"type":        "integer",
				"description": "Port of the debugging endpoint. Default: 9222",
			},
		},
		nil,
	)
}

// ListTargetsInput defines the input parameters.
type ListTargetsInput struct {
	XMLName xml.Name `xml:"arguments"`
	Dialect string   `xml:"dialect"`
	Host    string   `xml:"host"`
	Port    *int     `xml:"port"`
}

// Execute lists the targets.
func (t *ListTargetsTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ListTargetsInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	ep, err := resolveEndpoint(input.Dialect, input.Host, input.Port)
	if err != nil {
		return "", nil, err
	}

	targets, err := t.session.ListTargets(ctx, ep.Dialect, ep.Host, ep.Port)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list targets: %w", err)
	}

	var b strings.Builder
	if ep.Dialect == devtools.DialectChrome {
		// Best-effort; older endpoints omit /json/version.
		if raw, err := t.session.EndpointVersion(ctx, ep.Host, ep.Port); err == nil {
			if name := gjson.GetBytes(raw, "Browser").String(); name != "" {
				fmt.Fprintf(&b, "Browser: %s\n\n", name)
			}
		}
	}
	fmt.Fprintf(&b, "Targets at %s:%d (%s):\n", ep.Host, ep.Port, ep.Dialect)
	b.WriteString(devtools.FormatTargets(targets))

	return b.String(), map[string]interface{}{"count": len(targets)}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ListTargetsTool) IsLoopBreaking() bool {
	return false
}
