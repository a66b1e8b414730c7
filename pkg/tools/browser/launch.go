package browser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/launcher"
	"github.com/entrhq/devbridge/pkg/tools"
)

// Launcher starts and stops a local browser. *launcher.Launcher implements it.
type Launcher interface {
	Launch(ctx context.Context, opts launcher.Options) (*launcher.Instance, error)
	Running() (*launcher.Instance, bool)
	Close() error
}

// LaunchBrowserTool starts a local Chromium with its debugging endpoint open.
type LaunchBrowserTool struct {
	session  *devtools.Session
	launcher Launcher
}

// NewLaunchBrowserTool creates a new launch tool.
func NewLaunchBrowserTool(session *devtools.Session, l Launcher) *LaunchBrowserTool {
	return &LaunchBrowserTool{session: session, launcher: l}
}

// Name returns the tool name.
func (t *LaunchBrowserTool) Name() string {
	return "launch_browser"
}

// Description returns the tool description.
func (t *LaunchBrowserTool) Description() string {
	return "Start a local Chromium with remote debugging enabled, for when no browser is running. By default the session connects to it right away. Only one launched browser runs at a time."
}

// Schema returns the tool's JSON schema.
func (t *LaunchBrowserTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "Page to open in the first tab. Default: about:blank",
			},
			"port": map[string]interface{}{
				"type":        "integer",
				"description": "Remote debugging port. Default: the configured port (9222)",
			},
			"headless": map[string]interface{}{
				"type":        "boolean",
				"description": "Run without a visible window. Default from config (true)",
			},
			"connect": map[string]interface{}{
				"type":        "boolean",
				"description": "Connect the session to the new browser. Default: true",
			},
		},
		nil,
	)
}

// LaunchBrowserInput defines the input parameters.
type LaunchBrowserInput struct {
	XMLName  xml.Name `xml:"arguments"`
	URL      string   `xml:"url"`
	Port     *int     `xml:"port"`
	Headless *bool    `xml:"headless"`
	Connect  *bool    `xml:"connect"`
}

// Execute launches the browser.
func (t *LaunchBrowserTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input LaunchBrowserInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	url := strings.TrimSpace(input.URL)
	if url != "" && !strings.Contains(url, ":") {
		return "", nil, fmt.Errorf("url must include a scheme, e.g. https://%s", url)
	}

	ep, err := resolveEndpoint(string(devtools.DialectChrome), "", input.Port)
	if err != nil {
		return "", nil, err
	}

	headless := launchHeadless()
	if input.Headless != nil {
		headless = *input.Headless
	}
	connect := input.Connect == nil || *input.Connect

	if connect && t.session.IsConnected() {
		return "", nil, fmt.Errorf("already connected to a browser: call devtools_disconnect first or set connect to false")
	}

	instance, err := t.launcher.Launch(ctx, launcher.Options{
		Port:     ep.Port,
		Headless: headless,
		URL:      url,
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	mode := "headed"
	if instance.Headless {
		mode = "headless"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Launched Chromium %s (%s) with remote debugging on port %d\nPage: %s",
		instance.Version, mode, instance.Port, instance.URL)

	metadata := map[string]interface{}{
		"port":      instance.Port,
		"headless":  instance.Headless,
		"connected": false,
	}

	if connect {
		status, err := t.session.Connect(ctx, devtools.ConnectOptions{
			Dialect: devtools.DialectChrome,
			Host:    "localhost",
			Port:    instance.Port,
		})
		if err != nil {
			// Leave the browser running; the agent can retry the connection.
			fmt.Fprintf(&b, "\n\nThe browser is running but connecting to it failed: %v", err)
			return b.String(), metadata, nil
		}
		metadata["connected"] = true
		fmt.Fprintf(&b, "\n\n%s", status)
	}

	return b.String(), metadata, nil
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *LaunchBrowserTool) IsLoopBreaking() bool {
	return false
}

// CloseBrowserTool closes the browser started by launch_browser.
type CloseBrowserTool struct {
	session  *devtools.Session
	launcher Launcher
}

// NewCloseBrowserTool creates a new close tool.
func NewCloseBrowserTool(session *devtools.Session, l Launcher) *CloseBrowserTool {
	return &CloseBrowserTool{session: session, launcher: l}
}

func (t *CloseBrowserTool) Name() string {
	return "close_browser"
}

func (t *CloseBrowserTool) Description() string {
	return "Close the browser started by launch_browser. A session connected to it is disconnected first. Browsers not started by launch_browser are never touched."
}

func (t *CloseBrowserTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute closes the launched browser.
func (t *CloseBrowserTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	instance, running := t.launcher.Running()
	if !running {
		return "No launched browser is running", map[string]interface{}{"closed": false}, nil
	}

	var b strings.Builder
	if t.connectedTo(instance.Port) {
		status, _ := t.session.Disconnect()
		b.WriteString(status)
		b.WriteString("\n")
	}

	if err := t.launcher.Close(); err != nil && !errors.Is(err, launcher.ErrNotRunning) {
		return "", nil, err
	}

	fmt.Fprintf(&b, "Closed the launched browser on port %d", instance.Port)
	return b.String(), map[string]interface{}{"closed": true, "port": instance.Port}, nil
}

// connectedTo reports whether the session is attached to the launched
// browser's endpoint.
func (t *CloseBrowserTool) connectedTo(port int) bool {
	status := t.session.Status()
	if status.State == devtools.StateDisconnected || status.Target == nil {
		return false
	}
	return strings.Contains(status.Target.Address, fmt.Sprintf(":%d/", port))
}

// IsLoopBreaking returns false. Another browser can be launched or attached
// afterwards.
func (t *CloseBrowserTool) IsLoopBreaking() bool {
	return false
}
