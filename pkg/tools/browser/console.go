package browser

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

var validSeverities = []string{"log", "error", "warning", "info", "debug"}

var validOrigins = []string{
	devtools.OriginConsoleAPI,
	devtools.OriginBrowserLog,
	devtools.OriginJavaScriptException,
	devtools.OriginFirefoxConsole,
	devtools.OriginFirefoxError,
}

// ConsoleTool returns captured console output and exceptions.
type ConsoleTool struct {
	session *devtools.Session
}

// NewConsoleTool creates a new console tool.
func NewConsoleTool(session *devtools.Session) *ConsoleTool {
	return &ConsoleTool{session: session}
}

// Name returns the tool name.
func (t *ConsoleTool) Name() string {
	return "devtools_console"
}

// Description returns the tool description.
func (t *ConsoleTool) Description() string {
	return "Read captured console messages, browser log entries and uncaught exceptions, oldest first. Records stay available after a disconnect until cleared."
}

// Schema returns the tool's JSON schema.
func (t *ConsoleTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"severity": map[string]interface{}{
				"type":        "string",
				"enum":        validSeverities,
				"description": "Only return records of this severity",
			},
			"origin": map[string]interface{}{
				"type":        "string",
				"enum":        validOrigins,
				"description": "Only return records produced by this event kind",
			},
			"contains": map[string]interface{}{
				"type":        "string",
				"description": "Only return records whose text contains this substring (case-insensitive)",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": fmt.Sprintf("Return at most this many of the most recent matches. Default: %d", DefaultRecordLimit),
			},
			"clear": map[string]interface{}{
				"type":        "boolean",
				"description": "Empty the whole console store after reading. Default: false",
			},
		},
		nil,
	)
}

// ConsoleInput defines the input parameters.
type ConsoleInput struct {
	XMLName  xml.Name `xml:"arguments"`
	Severity string   `xml:"severity"`
	Origin   string   `xml:"origin"`
	Contains string   `xml:"contains"`
	Limit    *int     `xml:"limit"`
	Clear    bool     `xml:"clear"`
}

// Execute queries the console store.
func (t *ConsoleTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input ConsoleInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	filter, err := input.filter()
	if err != nil {
		return "", nil, err
	}

	limit, err := resolveLimit(input.Limit, t.session.Capacity())
	if err != nil {
		return "", nil, err
	}

	records := t.session.QueryConsole(filter, limit, input.Clear)

	output := devtools.FormatConsole(records)
	if input.Clear {
		output += "\n\nConsole store cleared."
	}

	return output, map[string]interface{}{
		"count":   len(records),
		"cleared": input.Clear,
	}, nil
}

func (in ConsoleInput) filter() (devtools.ConsoleFilter, error) {
	severity := strings.ToLower(strings.TrimSpace(in.Severity))
	if severity != "" && !contains(validSeverities, severity) {
		return devtools.ConsoleFilter{}, fmt.Errorf("invalid severity %q: must be one of %s", in.Severity, strings.Join(validSeverities, ", "))
	}

	origin := strings.TrimSpace(in.Origin)
	if origin != "" && !contains(validOrigins, origin) {
		return devtools.ConsoleFilter{}, fmt.Errorf("invalid origin %q: must be one of %s", in.Origin, strings.Join(validOrigins, ", "))
	}

	return devtools.ConsoleFilter{
		Severity: devtools.Severity(severity),
		Origin:   origin,
		Contains: in.Contains,
	}, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *ConsoleTool) IsLoopBreaking() bool {
	return false
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
