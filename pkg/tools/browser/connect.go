package browser

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// ConnectTool attaches the session to a browser target.
type ConnectTool struct {
	session *devtools.Session
}

// NewConnectTool creates a new connect tool.
func NewConnectTool(session *devtools.Session) *ConnectTool {
	return &ConnectTool{session: session}
}

// Name returns the tool name.
func (t *ConnectTool) Name() string {
	return "devtools_connect"
}

// Description returns the tool description.
func (t *ConnectTool) Description() string {
	return "Connect to a running browser's remote debugging endpoint and start capturing console output, exceptions and network requests. Connecting while already connected is a no-op that reports the current target."
}

// Schema returns the tool's JSON schema.
func (t *ConnectTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"dialect": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"chrome", "firefox"},
				"description": "Debugging protocol: 'chrome' for Chromium-based browsers, 'firefox' for Firefox. Default from config (chrome).",
			},
			"host": map[string]interface{}{
				"type":        "string",
				"description": "Host of the debugging endpoint. Default: localhost",
			},
			"port": map[string]interface{}{
				"type":        "integer",
				"description": "Port of the debugging endpoint. Default: 9222",
			},
			"target_index": map[string]interface{}{
				"type":        "integer",
				"description": "Zero-based index into the target list from devtools_list_targets. Default: 0",
			},
		},
		nil,
	)
}

// ConnectInput defines the input parameters.
type ConnectInput struct {
	XMLName     xml.Name `xml:"arguments"`
	Dialect     string   `xml:"dialect"`
	Host        string   `xml:"host"`
	Port        *int     `xml:"port"`
	TargetIndex int      `xml:"target_index"`
}

// Execute connects the session.
func (t *ConnectTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ConnectInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	if input.TargetIndex < 0 {
		return "", nil, fmt.Errorf("target_index cannot be negative")
	}

	ep, err := resolveEndpoint(input.Dialect, input.Host, input.Port)
	if err != nil {
		return "", nil, err
	}

	status, err := t.session.Connect(ctx, devtools.ConnectOptions{
		Dialect:     ep.Dialect,
		Host:        ep.Host,
		Port:        ep.Port,
		TargetIndex: input.TargetIndex,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to connect: %w", err)
	}

	metadata := map[string]interface{}{
		"dialect": string(ep.Dialect),
		"host":    ep.Host,
		"port":    ep.Port,
	}
	if target := t.session.Status().Target; target != nil {
		metadata["target_title"] = target.Title
		metadata["target_url"] = target.URL
	}

	return status, metadata, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ConnectTool) IsLoopBreaking() bool {
	return false
}
