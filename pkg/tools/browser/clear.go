package browser

import (
	"context"
	"fmt"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// ClearTool empties both record stores.
type ClearTool struct {
	session *devtools.Session
}

// NewClearTool creates a new clear tool.
func NewClearTool(session *devtools.Session) *ClearTool {
	return &ClearTool{session: session}
}

func (t *ClearTool) Name() string {
	return "devtools_clear"
}

func (t *ClearTool) Description() string {
	return "Discard every captured console and network record. Works with or without a connection."
}

func (t *ClearTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(map[string]interface{}{}, nil)
}

// Execute clears the stores.
func (t *ClearTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	before := t.session.Status()
	t.session.ClearAll()

	return fmt.Sprintf("Cleared %d console and %d network records.", before.ConsoleRecords, before.NetworkRecords),
		map[string]interface{}{
			"console_cleared": before.ConsoleRecords,
			"network_cleared": before.NetworkRecords,
		}, nil
}

func (t *ClearTool) IsLoopBreaking() bool {
	return false
}
