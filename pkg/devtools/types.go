package devtools

import (
	"encoding/json"
	"fmt"
	"time"
)

// Dialect identifies the family of debug protocol messages spoken by a browser.
type Dialect string

const (
	// DialectChrome is the request/response Chrome DevTools Protocol.
	DialectChrome Dialect = "chrome"

	// DialectFirefox is the actor-addressed Firefox remote debugging protocol.
	// Commands are one-way and never carry a return value.
	DialectFirefox Dialect = "firefox"
)

// ParseDialect converts a user supplied dialect name into a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(name) {
	case DialectChrome:
		return DialectChrome, nil
	case DialectFirefox:
		return DialectFirefox, nil
	case "":
		return DialectChrome, nil
	default:
		return "", fmt.Errorf("unknown dialect %q (must be 'chrome' or 'firefox')", name)
	}
}

// Severity is the level of a console record.
type Severity string

const (
	SeverityLog     Severity = "log"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeverityDebug   Severity = "debug"
)

// ParseSeverity maps a protocol level name onto one of the five severities.
// Unknown names map to SeverityLog so records always carry a valid severity.
func ParseSeverity(level string) Severity {
	switch level {
	case "error", "assert":
		return SeverityError
	case "warning", "warn":
		return SeverityWarning
	case "info":
		return SeverityInfo
	case "debug", "trace", "verbose":
		return SeverityDebug
	default:
		return SeverityLog
	}
}

// Origin tags which protocol event produced a console record.
const (
	OriginConsoleAPI          = "console-api"
	OriginFirefoxConsole      = "firefox-console"
	OriginBrowserLog          = "browser-log"
	OriginJavaScriptException = "javascript-exception"
	OriginFirefoxError        = "firefox-error"
)

// uncaughtExceptionText is used when an exception event has no description.
const uncaughtExceptionText = "uncaught exception"

// Location is a source position attached to a console record.
type Location struct {
	URL    string `json:"url,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// ConsoleRecord is one observed console message, log entry or exception.
// Records are immutable once stored.
type ConsoleRecord struct {
	Severity   Severity          `json:"severity"`
	Origin     string            `json:"origin"`
	Text       string            `json:"text"`
	Timestamp  int64             `json:"timestamp"` // milliseconds since the epoch
	Location   *Location         `json:"location,omitempty"`
	StackTrace string            `json:"stack_trace,omitempty"`
	Args       []json.RawMessage `json:"args,omitempty"`
}

// Time returns the capture time of the record.
func (r ConsoleRecord) Time() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// NetworkRecord is one observed HTTP exchange. Response fields stay empty
// until a matching response event arrives, which may never happen.
type NetworkRecord struct {
	RequestID      string            `json:"request_id"`
	Method         string            `json:"method"`
	URL            string            `json:"url"`
	ResourceType   string            `json:"resource_type,omitempty"`
	Timestamp      int64             `json:"timestamp"`
	RequestHeaders map[string]string `json:"request_headers,omitempty"`
	RequestBody    string            `json:"request_body,omitempty"`

	Response *NetworkResponse `json:"response,omitempty"`
}

// NetworkResponse holds the fields populated by the response phase.
type NetworkResponse struct {
	Status       int               `json:"status"`
	MimeType     string            `json:"mime_type,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	RequestTime  int64             `json:"request_time"`
	ResponseTime int64             `json:"response_time"`
	Duration     int64             `json:"duration"` // ResponseTime - RequestTime, milliseconds
}

// Complete reports whether the response phase has been observed.
func (r NetworkRecord) Complete() bool {
	return r.Response != nil
}

// Target is one inspectable browser context exposed by the discovery endpoint.
type Target struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Type    string `json:"type,omitempty"`
	Address string `json:"address"` // duplex channel URI
	Actor   string `json:"actor,omitempty"`
}

// Default values
const (
	DefaultHost     = "localhost"
	DefaultPort     = 9222
	DefaultCapacity = 1000
)
