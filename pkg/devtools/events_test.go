package devtools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent_Chrome(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  interface{}
	}{
		{
			name:  "console api call",
			frame: `{"method":"Runtime.consoleAPICalled","params":{"type":"log","args":[]}}`,
			want:  ConsoleAPICalled{},
		},
		{
			name:  "log entry",
			frame: `{"method":"Log.entryAdded","params":{"entry":{"level":"info","text":"hi"}}}`,
			want:  LogEntryAdded{},
		},
		{
			name:  "exception",
			frame: `{"method":"Runtime.exceptionThrown","params":{"exceptionDetails":{"text":"Uncaught"}}}`,
			want:  ExceptionThrown{},
		},
		{
			name:  "request",
			frame: `{"method":"Network.requestWillBeSent","params":{"requestId":"1","request":{"url":"u","method":"GET"}}}`,
			want:  RequestWillBeSent{},
		},
		{
			name:  "response",
			frame: `{"method":"Network.responseReceived","params":{"requestId":"1","response":{"status":200}}}`,
			want:  ResponseReceived{},
		},
		{
			name:  "unknown method",
			frame: `{"method":"Page.frameNavigated","params":{}}`,
			want:  Unrecognized{},
		},
		{
			name:  "command reply",
			frame: `{"id":7,"result":{}}`,
			want:  Unrecognized{},
		},
		{
			name:  "reply that also names a method",
			frame: `{"id":7,"method":"Runtime.consoleAPICalled","result":{}}`,
			want:  Unrecognized{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(DialectChrome, []byte(tt.frame))
			require.NoError(t, err)
			assert.IsType(t, tt.want, ev)
		})
	}
}

func TestParseEvent_Firefox(t *testing.T) {
	ev, err := ParseEvent(DialectFirefox, []byte(`{"from":"console1","type":"consoleAPICall","message":{"level":"warn","arguments":["a",1]}}`))
	require.NoError(t, err)
	call, ok := ev.(FirefoxConsoleCall)
	require.True(t, ok)
	assert.Equal(t, "warn", call.Level)
	assert.Len(t, call.Arguments, 2)

	ev, err = ParseEvent(DialectFirefox, []byte(`{"from":"console1","type":"pageError","pageError":{"errorMessage":"boom"}}`))
	require.NoError(t, err)
	assert.Equal(t, "boom", ev.(FirefoxPageError).ErrorMessage)

	ev, err = ParseEvent(DialectFirefox, []byte(`{"from":"root","applicationType":"browser"}`))
	require.NoError(t, err)
	assert.IsType(t, Unrecognized{}, ev)
}

func TestParseEvent_MismatchedShape(t *testing.T) {
	_, err := ParseEvent(DialectChrome, []byte(`{"method":"Runtime.consoleAPICalled","params":{"args":"not-a-list"}}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestConsoleRecordFromChrome_RendersArguments(t *testing.T) {
	ev, err := ParseEvent(DialectChrome, []byte(`{"method":"Runtime.consoleAPICalled","params":{
		"type":"warning",
		"args":[
			{"type":"string","value":"hello"},
			{"type":"number","value":42},
			{"type":"boolean","value":true},
			{"type":"object","value":{"a":1,"b":[1,2]}},
			{"type":"number","unserializableValue":"NaN"},
			{"type":"function","description":"function f() {}"},
			{"type":"undefined"}
		],
		"stackTrace":{"callFrames":[{"functionName":"main","url":"https://example.com/app.js","lineNumber":10,"columnNumber":4}]}
	}}`))
	require.NoError(t, err)

	record := consoleRecordFromChrome(ev.(ConsoleAPICalled), 1234)

	assert.Equal(t, SeverityWarning, record.Severity)
	assert.Equal(t, OriginConsoleAPI, record.Origin)
	assert.Equal(t, `hello 42 true {"a":1,"b":[1,2]} NaN function f() {} undefined`, record.Text)
	assert.Equal(t, int64(1234), record.Timestamp)
	require.NotNil(t, record.Location)
	assert.Equal(t, "https://example.com/app.js", record.Location.URL)
	assert.Equal(t, 10, record.Location.Line)
	assert.Contains(t, record.StackTrace, "at main (https://example.com/app.js:10:4)")
	assert.Len(t, record.Args, 7)
}

func TestConsoleRecordFromException(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		wantText string
	}{
		{
			name:     "uses exception description",
			frame:    `{"method":"Runtime.exceptionThrown","params":{"exceptionDetails":{"text":"Uncaught","exception":{"type":"object","description":"TypeError: x is undefined"}}}}`,
			wantText: "TypeError: x is undefined",
		},
		{
			name:     "falls back to text",
			frame:    `{"method":"Runtime.exceptionThrown","params":{"exceptionDetails":{"text":"Uncaught SyntaxError"}}}`,
			wantText: "Uncaught SyntaxError",
		},
		{
			name:     "placeholder when nothing supplied",
			frame:    `{"method":"Runtime.exceptionThrown","params":{"exceptionDetails":{}}}`,
			wantText: "uncaught exception",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseEvent(DialectChrome, []byte(tt.frame))
			require.NoError(t, err)
			record := consoleRecordFromException(ev.(ExceptionThrown), 0)
			assert.Equal(t, SeverityError, record.Severity)
			assert.Equal(t, OriginJavaScriptException, record.Origin)
			assert.Equal(t, tt.wantText, record.Text)
		})
	}
}

func TestConsoleRecordFromLogEntry(t *testing.T) {
	ev, err := ParseEvent(DialectChrome, []byte(`{"method":"Log.entryAdded","params":{"entry":{"source":"network","level":"verbose","text":"Failed to load resource","url":"https://example.com/x.png","lineNumber":3}}}`))
	require.NoError(t, err)

	record := consoleRecordFromLogEntry(ev.(LogEntryAdded), 0)
	assert.Equal(t, SeverityDebug, record.Severity)
	assert.Equal(t, OriginBrowserLog, record.Origin)
	assert.Equal(t, "Failed to load resource", record.Text)
	require.NotNil(t, record.Location)
	assert.Equal(t, "https://example.com/x.png", record.Location.URL)
	assert.Equal(t, 3, record.Location.Line)
}

func TestConsoleRecordFromFirefox(t *testing.T) {
	ev, err := ParseEvent(DialectFirefox, []byte(`{"type":"consoleAPICall","message":{"level":"error","arguments":["failed",{"type":"undefined"},{"x":1}],"filename":"app.js","lineNumber":2}}`))
	require.NoError(t, err)

	record := consoleRecordFromFirefox(ev.(FirefoxConsoleCall), 0)
	assert.Equal(t, SeverityError, record.Severity)
	assert.Equal(t, OriginFirefoxConsole, record.Origin)
	assert.Equal(t, `failed undefined {"x":1}`, record.Text)

	ev, err = ParseEvent(DialectFirefox, []byte(`{"type":"pageError","pageError":{}}`))
	require.NoError(t, err)
	record = consoleRecordFromPageError(ev.(FirefoxPageError), 0)
	assert.Equal(t, SeverityError, record.Severity)
	assert.Equal(t, OriginFirefoxError, record.Origin)
	assert.Equal(t, "uncaught exception", record.Text)
}

func TestRenderJSONValue(t *testing.T) {
	tests := map[string]string{
		`"text"`:                "text",
		`42`:                    "42",
		`{"type":"undefined"}`:  "undefined",
		`{"type":"NaN"}`:        "NaN",
		`{"type":"-Infinity"}`:  "-Infinity",
		`{"type":"-0"}`:         "-0",
		`{"type":"click"}`:      `{"type":"click"}`,
		`{ "type" : "submit" }`: `{"type":"submit"}`,
		`{"type":"NaN","x":1}`:  `{"type":"NaN","x":1}`,
		`[1, 2]`:                "[1,2]",
	}
	for raw, want := range tests {
		assert.Equal(t, want, renderJSONValue([]byte(raw)), raw)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := map[string]Severity{
		"log":     SeverityLog,
		"table":   SeverityLog,
		"error":   SeverityError,
		"assert":  SeverityError,
		"warning": SeverityWarning,
		"warn":    SeverityWarning,
		"info":    SeverityInfo,
		"debug":   SeverityDebug,
		"verbose": SeverityDebug,
		"":        SeverityLog,
		"bogus":   SeverityLog,
	}
	for level, want := range tests {
		assert.Equal(t, want, ParseSeverity(level), "level %q", level)
	}
}

func TestApply_ResponseWithoutRequestIsDropped(t *testing.T) {
	s := New(Options{Now: fakeClock()})

	assert.NotPanics(t, func() {
		s.handleFrame(DialectChrome, []byte(`{"method":"Network.responseReceived","params":{"requestId":"ghost","response":{"status":404}}}`))
	})
	assert.Equal(t, 0, s.records.Network.Len())
}

func TestApply_RequestThenResponse(t *testing.T) {
	s := New(Options{Now: fakeClock()})

	s.handleFrame(DialectChrome, []byte(`{"method":"Network.requestWillBeSent","params":{"requestId":"r1","type":"Fetch","request":{"url":"https://example.com/api","method":"POST","headers":{"Content-Type":"application/json"},"postData":"{}"}}}`))
	pending, err := s.QueryNetwork(NetworkFilter{}, 0, false)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.False(t, pending[0].Complete())

	s.handleFrame(DialectChrome, []byte(`{"method":"Network.responseReceived","params":{"requestId":"r1","type":"Fetch","response":{"status":201,"mimeType":"application/json","headers":{"X-Count":3}}}}`))

	records, err := s.QueryNetwork(NetworkFilter{}, 0, false)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "POST", r.Method)
	assert.Equal(t, "Fetch", r.ResourceType)
	assert.Equal(t, "application/json", r.RequestHeaders["Content-Type"])
	assert.Equal(t, "{}", r.RequestBody)
	require.True(t, r.Complete())
	assert.Equal(t, 201, r.Response.Status)
	assert.Equal(t, "3", r.Response.Headers["X-Count"])
	assert.Equal(t, r.Timestamp, r.Response.RequestTime)
	assert.Equal(t, int64(1000), r.Response.Duration)

	assert.Nil(t, pending[0].Response, "earlier snapshots must not observe the response")
}

func TestHandleFrame_MalformedFramesAreDropped(t *testing.T) {
	s := New(Options{Now: fakeClock()})

	for _, frame := range []string{
		`{not json`,
		``,
		`{"id":"x","result":`,
		`{"method":"Runtime.consoleAPICalled","params":{"args":"oops"}}`,
	} {
		assert.NotPanics(t, func() { s.handleFrame(DialectChrome, []byte(frame)) }, "frame %q", frame)
	}

	s.handleFrame(DialectChrome, []byte(`{"method":"Runtime.consoleAPICalled","params":{"type":"log","args":[{"type":"string","value":"still alive"}]}}`))
	records := s.QueryConsole(ConsoleFilter{}, 0, false)
	require.Len(t, records, 1)
	assert.Equal(t, "still alive", records[0].Text)
}
