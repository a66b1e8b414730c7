package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// BrowserInfoTool reports the connected browser's version information.
type BrowserInfoTool struct {
	session *devtools.Session
}

// NewBrowserInfoTool creates a new browser info tool.
func NewBrowserInfoTool(session *devtools.Session) *BrowserInfoTool {
	return &BrowserInfoTool{session: session}
}

func (t *BrowserInfoTool) Name() string {
	return "devtools_browser_info"
}

func (t *BrowserInfoTool) Description() string {
	return "Show the connected browser's product, protocol version, user agent and JavaScript engine version, plus the current connection state. Requires the chrome dialect."
}

func (t *BrowserInfoTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

var browserInfoFields = []struct{ key, label string }{
	{"product", "Product"},
	{"protocolVersion", "Protocol"},
	{"revision", "Revision"},
	{"userAgent", "User agent"},
	{"jsVersion", "JavaScript engine"},
}

// Execute reads Browser.getVersion.
func (t *BrowserInfoTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	raw, err := t.session.BrowserInfo(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get browser info: %w", err)
	}

	status := t.session.Status()

	var b strings.Builder
	metadata := make(map[string]interface{}, len(browserInfoFields))
	for _, field := range browserInfoFields {
		value := gjson.GetBytes(raw, field.key).String()
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", field.label, value)
		metadata[field.key] = value
	}

	fmt.Fprintf(&b, "\nState: %s (%s dialect)", status.State, status.Dialect)
	if status.Target != nil {
		fmt.Fprintf(&b, "\nTarget: %s (%s)", status.Target.Title, status.Target.URL)
	}
	fmt.Fprintf(&b, "\nCaptured: %d console, %d network", status.ConsoleRecords, status.NetworkRecords)

	return b.String(), metadata, nil
}

func (t *BrowserInfoTool) IsLoopBreaking() bool {
	return false
}
