package devtools

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// apply stores the record produced by ev. Unrecognized events are dropped.
func (s *Session) apply(ev Event) {
	now := s.now().UnixMilli()

	switch e := ev.(type) {
	case ConsoleAPICalled:
		s.records.Console.Append(consoleRecordFromChrome(e, now))
	case LogEntryAdded:
		s.records.Console.Append(consoleRecordFromLogEntry(e, now))
	case ExceptionThrown:
		s.records.Console.Append(consoleRecordFromException(e, now))
	case FirefoxConsoleCall:
		s.records.Console.Append(consoleRecordFromFirefox(e, now))
	case FirefoxPageError:
		s.records.Console.Append(consoleRecordFromPageError(e, now))
	case RequestWillBeSent:
		s.records.Network.Append(networkRecordFromRequest(e, now))
	case ResponseReceived:
		found := s.records.Network.Update(
			func(r NetworkRecord) bool { return r.RequestID == e.RequestID },
			func(r *NetworkRecord) { completeNetworkRecord(r, e, now) },
		)
		if !found {
			s.logger.Debugf("dropping response for unknown request %s", e.RequestID)
		}
	case Unrecognized:
	}
}

func consoleRecordFromChrome(e ConsoleAPICalled, now int64) ConsoleRecord {
	parts := make([]string, 0, len(e.Args))
	args := make([]json.RawMessage, 0, len(e.Args))
	for _, arg := range e.Args {
		parts = append(parts, renderRemoteObject(arg))
		if raw, err := json.Marshal(arg); err == nil {
			args = append(args, raw)
		}
	}

	record := ConsoleRecord{
		Severity:  ParseSeverity(e.Type),
		Origin:    OriginConsoleAPI,
		Text:      strings.Join(parts, " "),
		Timestamp: now,
		Args:      args,
	}
	if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
		top := e.StackTrace.CallFrames[0]
		record.Location = &Location{URL: top.URL, Line: top.LineNumber, Column: top.ColumnNumber}
		record.StackTrace = formatStackTrace(e.StackTrace)
	}
	return record
}

func consoleRecordFromLogEntry(e LogEntryAdded, now int64) ConsoleRecord {
	record := ConsoleRecord{
		Severity:   ParseSeverity(e.Entry.Level),
		Origin:     OriginBrowserLog,
		Text:       e.Entry.Text,
		Timestamp:  now,
		StackTrace: formatStackTrace(e.Entry.StackTrace),
	}
	if e.Entry.URL != "" || e.Entry.LineNumber != 0 {
		record.Location = &Location{URL: e.Entry.URL, Line: e.Entry.LineNumber}
	}
	return record
}

func consoleRecordFromException(e ExceptionThrown, now int64) ConsoleRecord {
	details := e.ExceptionDetails

	text := ""
	if details.Exception != nil {
		text = details.Exception.Description
	}
	if text == "" {
		text = details.Text
	}
	if text == "" {
		text = uncaughtExceptionText
	}

	record := ConsoleRecord{
		Severity:   SeverityError,
		Origin:     OriginJavaScriptException,
		Text:       text,
		Timestamp:  now,
		StackTrace: formatStackTrace(details.StackTrace),
	}
	if details.URL != "" || details.LineNumber != 0 {
		record.Location = &Location{URL: details.URL, Line: details.LineNumber, Column: details.ColumnNumber}
	}
	return record
}

func consoleRecordFromFirefox(e FirefoxConsoleCall, now int64) ConsoleRecord {
	parts := make([]string, 0, len(e.Arguments))
	for _, arg := range e.Arguments {
		parts = append(parts, renderJSONValue(arg))
	}

	record := ConsoleRecord{
		Severity:  ParseSeverity(e.Level),
		Origin:    OriginFirefoxConsole,
		Text:      strings.Join(parts, " "),
		Timestamp: now,
		Args:      e.Arguments,
	}
	if e.Filename != "" {
		record.Location = &Location{URL: e.Filename, Line: e.LineNumber, Column: e.ColumnNumber}
	}
	return record
}

func consoleRecordFromPageError(e FirefoxPageError, now int64) ConsoleRecord {
	text := e.ErrorMessage
	if text == "" {
		text = uncaughtExceptionText
	}

	record := ConsoleRecord{
		Severity:  SeverityError,
		Origin:    OriginFirefoxError,
		Text:      text,
		Timestamp: now,
	}
	if e.SourceName != "" {
		record.Location = &Location{URL: e.SourceName, Line: e.LineNumber, Column: e.ColumnNumber}
	}
	if len(e.Stacktrace) > 0 {
		var b strings.Builder
		for _, f := range e.Stacktrace {
			writeFrame(&b, f.FunctionName, f.Filename, f.LineNumber, f.ColumnNumber)
		}
		record.StackTrace = strings.TrimRight(b.String(), "\n")
	}
	return record
}

func networkRecordFromRequest(e RequestWillBeSent, now int64) NetworkRecord {
	return NetworkRecord{
		RequestID:      e.RequestID,
		Method:         e.Request.Method,
		URL:            e.Request.URL,
		ResourceType:   e.Type,
		Timestamp:      now,
		RequestHeaders: flattenHeaders(e.Request.Headers),
		RequestBody:    e.Request.PostData,
	}
}

// completeNetworkRecord fills the response phase of r.
func completeNetworkRecord(r *NetworkRecord, e ResponseReceived, now int64) {
	if e.Type != "" && r.ResourceType == "" {
		r.ResourceType = e.Type
	}
	r.Response = &NetworkResponse{
		Status:       e.Response.Status,
		MimeType:     e.Response.MimeType,
		Headers:      flattenHeaders(e.Response.Headers),
		RequestTime:  r.Timestamp,
		ResponseTime: now,
		Duration:     now - r.Timestamp,
	}
}

// renderRemoteObject renders a console argument. Primitives render as their
// literal value and compound values as their JSON encoding.
func renderRemoteObject(obj remoteObject) string {
	if len(obj.Value) > 0 {
		return renderJSONValue(obj.Value)
	}
	if obj.UnserializableValue != "" {
		return obj.UnserializableValue
	}
	if obj.Description != "" {
		return obj.Description
	}
	return obj.Type
}

// gripTypes are the values Firefox encodes as a lone {"type": ...} grip.
var gripTypes = map[string]bool{
	"undefined": true,
	"null":      true,
	"NaN":       true,
	"Infinity":  true,
	"-Infinity": true,
	"-0":        true,
}

// renderJSONValue renders a raw JSON value, unquoting strings.
func renderJSONValue(raw json.RawMessage) string {
	value := gjson.ParseBytes(raw)
	switch value.Type {
	case gjson.String:
		return value.Str
	case gjson.JSON:
		if value.IsObject() && len(value.Map()) == 1 {
			if t := value.Get("type"); gripTypes[t.String()] {
				return t.String()
			}
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err == nil {
			return compact.String()
		}
		return value.Raw
	default:
		return value.Raw
	}
}

func formatStackTrace(st *stackTrace) string {
	if st == nil || len(st.CallFrames) == 0 {
		return ""
	}
	var b strings.Builder
	for _, f := range st.CallFrames {
		writeFrame(&b, f.FunctionName, f.URL, f.LineNumber, f.ColumnNumber)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeFrame(b *strings.Builder, function, url string, line, column int) {
	if function == "" {
		function = "<anonymous>"
	}
	fmt.Fprintf(b, "    at %s (%s:%d:%d)\n", function, url, line, column)
}

func flattenHeaders(headers map[string]interface{}) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}
