package browser

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/executor/cli"
)

func TestExecutor_DisconnectThenInspectAndReconnect(t *testing.T) {
	endpoint := newFakeEndpoint(t, nil)

	var mu sync.Mutex
	dials := 0
	session := devtools.New(devtools.Options{
		Dialer: func(ctx context.Context, address string) (devtools.Conn, error) {
			mu.Lock()
			defer mu.Unlock()
			dials++
			if dials == 1 {
				return endpoint.conn, nil
			}
			return newFakeConn(nil), nil
		},
	})
	t.Cleanup(func() { session.Disconnect() })
	connectSession(t, endpoint, session)

	endpoint.conn.push(`{"method":"Runtime.consoleAPICalled","params":{"type":"error","args":[{"type":"string","value":"checkout failed"}]}}`)
	require.Eventually(t, func() bool {
		return session.Status().ConsoleRecords == 1
	}, 2*time.Second, 10*time.Millisecond)

	input := strings.Join([]string{
		`<tool><tool_name>devtools_disconnect</tool_name></tool>`,
		`<tool><tool_name>devtools_console</tool_name></tool>`,
		`<tool><tool_name>devtools_connect</tool_name>` + string(endpoint.connectArgs("")) + `</tool>`,
		"",
	}, "\n")

	var out bytes.Buffer
	executor := cli.NewExecutor(NewToolRegistry(session, nil),
		cli.WithReader(strings.NewReader(input)),
		cli.WithWriter(&out),
	)
	require.NoError(t, executor.Run(context.Background()))

	assert.Contains(t, out.String(), `Disconnected from "Shop"`)
	assert.Contains(t, out.String(), "== devtools_console ==")
	assert.Contains(t, out.String(), "checkout failed")
	assert.Contains(t, out.String(), `Connected to "Shop"`)
	assert.True(t, session.IsConnected())

	mu.Lock()
	assert.Equal(t, 2, dials)
	mu.Unlock()
}
