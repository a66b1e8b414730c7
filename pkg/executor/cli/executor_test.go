package cli

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/devbridge/pkg/tools"
)

type echoTool struct {
	name         string
	loopBreaking bool
	err          error
	metadata     map[string]interface{}
	calls        [][]byte
}

func (t *echoTool) Name() string                      { return t.name }
func (t *echoTool) Description() string               { return "echoes its arguments" }
func (t *echoTool) Schema() map[string]interface{}    { return tools.BaseToolSchema(nil, nil) }
func (t *echoTool) IsLoopBreaking() bool              { return t.loopBreaking }
func (t *echoTool) Execute(ctx context.Context, args []byte) (string, map[string]interface{}, error) {
	t.calls = append(t.calls, args)
	if t.err != nil {
		return "", nil, t.err
	}
	return "ran " + t.name, t.metadata, nil
}

type mapRegistry map[string]tools.Tool

func (r mapRegistry) Lookup(name string) (tools.Tool, bool) {
	t, ok := r[name]
	return t, ok
}

func (r mapRegistry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func run(t *testing.T, registry Registry, input string, opts ...ExecutorOption) string {
	t.Helper()
	var out bytes.Buffer
	opts = append([]ExecutorOption{WithReader(strings.NewReader(input)), WithWriter(&out)}, opts...)
	require.NoError(t, NewExecutor(registry, opts...).Run(context.Background()))
	return out.String()
}

func TestExecutor_SingleLineCall(t *testing.T) {
	tool := &echoTool{name: "devtools_console"}
	out := run(t, mapRegistry{tool.name: tool},
		"<tool><tool_name>devtools_console</tool_name><arguments><limit>5</limit></arguments></tool>\n")

	assert.Contains(t, out, "== devtools_console ==")
	assert.Contains(t, out, "ran devtools_console")
	require.Len(t, tool.calls, 1)
	assert.Equal(t, "<arguments><limit>5</limit></arguments>", string(tool.calls[0]))
}

func TestExecutor_MultiLineCall(t *testing.T) {
	tool := &echoTool{name: "devtools_evaluate"}
	input := strings.Join([]string{
		"<tool>",
		"  <tool_name>devtools_evaluate</tool_name>",
		"  <arguments><code>1 + 1</code></arguments>",
		"</tool>",
		"",
	}, "\n")

	out := run(t, mapRegistry{tool.name: tool}, input)

	assert.Contains(t, out, "ran devtools_evaluate")
	assert.Len(t, tool.calls, 1)
}

func TestExecutor_SequentialCalls(t *testing.T) {
	a := &echoTool{name: "a"}
	b := &echoTool{name: "b"}
	input := "<tool><tool_name>a</tool_name></tool>\n\n<tool><tool_name>b</tool_name></tool>\n<tool><tool_name>a</tool_name></tool>"

	out := run(t, mapRegistry{"a": a, "b": b}, input)

	assert.Len(t, a.calls, 2)
	assert.Len(t, b.calls, 1)
	assert.Less(t, strings.Index(out, "ran a"), strings.Index(out, "ran b"))
}

func TestExecutor_Errors(t *testing.T) {
	failing := &echoTool{name: "broken", err: errors.New("not connected to a browser")}
	out := run(t, mapRegistry{"broken": failing},
		"<tool><tool_name>missing</tool_name></tool>\n<tool><tool_name>broken</tool_name></tool>\n<tool><arguments/></tool>\n")

	assert.Contains(t, out, `Error: unknown tool "missing" (available: broken)`)
	assert.Contains(t, out, "Error: not connected to a browser")
	assert.Contains(t, out, "tool_name is required")
}

func TestExecutor_LoopBreakingStops(t *testing.T) {
	stop := &echoTool{name: "devtools_disconnect", loopBreaking: true}
	after := &echoTool{name: "after"}
	run(t, mapRegistry{stop.name: stop, after.name: after},
		"<tool><tool_name>devtools_disconnect</tool_name></tool>\n<tool><tool_name>after</tool_name></tool>\n")

	assert.Len(t, stop.calls, 1)
	assert.Empty(t, after.calls)
}

func TestExecutor_ExitAndHelp(t *testing.T) {
	tool := &echoTool{name: "devtools_clear"}
	out := run(t, mapRegistry{tool.name: tool},
		"help\nexit\n<tool><tool_name>devtools_clear</tool_name></tool>\n")

	assert.Contains(t, out, "Available tools:")
	assert.Contains(t, out, "devtools_clear")
	assert.Contains(t, out, "echoes its arguments")
	assert.Empty(t, tool.calls)
}

func TestExecutor_IncompleteCallAtEOF(t *testing.T) {
	out := run(t, mapRegistry{}, "<tool><tool_name>x</tool_name>")
	assert.Contains(t, out, "incomplete tool call")
}

func TestExecutor_PromptBanner(t *testing.T) {
	out := run(t, mapRegistry{}, "quit\n", WithPrompt(true))
	assert.True(t, strings.HasPrefix(out, "devbridge\n"))
	assert.Contains(t, out, "> ")
}

func TestExecutor_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	executor := NewExecutor(mapRegistry{}, WithReader(strings.NewReader("")), WithWriter(&bytes.Buffer{}))
	assert.ErrorIs(t, executor.Run(ctx), context.Canceled)
}

func TestHighlightJSON(t *testing.T) {
	output := "Result (object):\n{\n  \"a\": 1\n}"
	highlighted := highlightJSON(output)

	assert.Contains(t, highlighted, "Result (object):")
	assert.Contains(t, highlighted, "\x1b[")
	assert.Equal(t, "no newline", highlightJSON("no newline"))
}

func TestExecutor_StyledJSONResult(t *testing.T) {
	tool := &echoTool{name: "devtools_evaluate", metadata: map[string]interface{}{"json": true}}
	out := run(t, mapRegistry{tool.name: tool},
		"<tool><tool_name>devtools_evaluate</tool_name></tool>\n", WithStyled(true))

	assert.Contains(t, out, "devtools_evaluate")
	assert.Contains(t, out, "ran devtools_evaluate")
}
