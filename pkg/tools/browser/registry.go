package browser

import (
	"sort"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// ToolRegistry builds the browser debugging tools around one session.
type ToolRegistry struct {
	session  *devtools.Session
	launcher Launcher
	tools    []tools.Tool
	byName   map[string]tools.Tool
}

// NewToolRegistry creates a registry. l may be nil, in which case the
// launch_browser and close_browser tools are not offered.
func NewToolRegistry(session *devtools.Session, l Launcher) *ToolRegistry {
	return &ToolRegistry{
		session:  session,
		launcher: l,
		byName:   make(map[string]tools.Tool),
	}
}

// RegisterTools creates and returns all tools.
func (r *ToolRegistry) RegisterTools() []tools.Tool {
	if len(r.tools) > 0 {
		return r.tools
	}

	// Connection management
	r.add(
		NewListTargetsTool(r.session),
		NewConnectTool(r.session),
		NewDisconnectTool(r.session),
	)

	// Inspection
	r.add(
		NewConsoleTool(r.session),
		NewNetworkTool(r.session),
		NewClearTool(r.session),
		NewEvaluateTool(r.session),
		NewBrowserInfoTool(r.session),
	)

	if r.launcher != nil {
		r.add(
			NewLaunchBrowserTool(r.session, r.launcher),
			NewCloseBrowserTool(r.session, r.launcher),
		)
	}

	return r.tools
}

func (r *ToolRegistry) add(ts ...tools.Tool) {
	for _, t := range ts {
		r.tools = append(r.tools, t)
		r.byName[t.Name()] = t
	}
}

// Lookup returns the tool with the given name.
func (r *ToolRegistry) Lookup(name string) (tools.Tool, bool) {
	r.RegisterTools()
	t, ok := r.byName[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *ToolRegistry) Names() []string {
	ts := r.RegisterTools()
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name())
	}
	sort.Strings(names)
	return names
}

// GetSession returns the underlying session.
func (r *ToolRegistry) GetSession() *devtools.Session {
	return r.session
}
