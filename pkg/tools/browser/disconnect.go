package browser

import (
	"context"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// DisconnectTool closes the browser connection.
type DisconnectTool struct {
	session *devtools.Session
}

// NewDisconnectTool creates a new disconnect tool.
func NewDisconnectTool(session *devtools.Session) *DisconnectTool {
	return &DisconnectTool{session: session}
}

func (t *DisconnectTool) Name() string {
	return "devtools_disconnect"
}

func (t *DisconnectTool) Description() string {
	return "Close the connection to the browser. Captured records are kept until cleared. Commands still waiting for a reply are abandoned."
}

func (t *DisconnectTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute disconnects. Calling it without a connection is not an error.
func (t *DisconnectTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	wasConnected := t.session.IsConnected()
	status, err := t.session.Disconnect()
	if err != nil {
		return "", nil, err
	}
	return status, map[string]interface{}{"was_connected": wasConnected}, nil
}

// IsLoopBreaking returns false. Captured records stay readable and the
// session can connect again.
func (t *DisconnectTool) IsLoopBreaking() bool {
	return false
}
