package devtools

import (
	"encoding/json"

	"github.com/tidwall/gjson"
)

// Event is one classified inbound notification. The set of implementations
// is closed; frames of any other shape parse as Unrecognized.
type Event interface {
	isEvent()
}

// remoteObject is a Chrome Runtime.RemoteObject.
type remoteObject struct {
	Type                string          `json:"type"`
	Subtype             string          `json:"subtype,omitempty"`
	Value               json.RawMessage `json:"value,omitempty"`
	UnserializableValue string          `json:"unserializableValue,omitempty"`
	Description         string          `json:"description,omitempty"`
}

type callFrame struct {
	FunctionName string `json:"functionName"`
	URL          string `json:"url"`
	LineNumber   int    `json:"lineNumber"`
	ColumnNumber int    `json:"columnNumber"`
}

type stackTrace struct {
	CallFrames []callFrame `json:"callFrames"`
}

// ConsoleAPICalled is Runtime.consoleAPICalled.
type ConsoleAPICalled struct {
	Type       string         `json:"type"`
	Args       []remoteObject `json:"args"`
	StackTrace *stackTrace    `json:"stackTrace,omitempty"`
}

// LogEntryAdded is Log.entryAdded.
type LogEntryAdded struct {
	Entry struct {
		Source     string      `json:"source"`
		Level      string      `json:"level"`
		Text       string      `json:"text"`
		URL        string      `json:"url,omitempty"`
		LineNumber int         `json:"lineNumber,omitempty"`
		StackTrace *stackTrace `json:"stackTrace,omitempty"`
	} `json:"entry"`
}

// ExceptionThrown is Runtime.exceptionThrown.
type ExceptionThrown struct {
	ExceptionDetails exceptionDetails `json:"exceptionDetails"`
}

type exceptionDetails struct {
	Text         string        `json:"text"`
	URL          string        `json:"url,omitempty"`
	LineNumber   int           `json:"lineNumber"`
	ColumnNumber int           `json:"columnNumber"`
	StackTrace   *stackTrace   `json:"stackTrace,omitempty"`
	Exception    *remoteObject `json:"exception,omitempty"`
}

// RequestWillBeSent is Network.requestWillBeSent.
type RequestWillBeSent struct {
	RequestID string `json:"requestId"`
	Type      string `json:"type"`
	Request   struct {
		URL      string                 `json:"url"`
		Method   string                 `json:"method"`
		Headers  map[string]interface{} `json:"headers"`
		PostData string                 `json:"postData,omitempty"`
	} `json:"request"`
}

// ResponseReceived is Network.responseReceived.
type ResponseReceived struct {
	RequestID string `json:"requestId"`
	Type      string `json:"type"`
	Response  struct {
		URL      string                 `json:"url"`
		Status   int                    `json:"status"`
		MimeType string                 `json:"mimeType"`
		Headers  map[string]interface{} `json:"headers"`
	} `json:"response"`
}

// FirefoxConsoleCall is a consoleAPICall packet.
type FirefoxConsoleCall struct {
	Level        string            `json:"level"`
	Arguments    []json.RawMessage `json:"arguments"`
	Filename     string            `json:"filename,omitempty"`
	LineNumber   int               `json:"lineNumber,omitempty"`
	ColumnNumber int               `json:"columnNumber,omitempty"`
}

// FirefoxPageError is a pageError packet.
type FirefoxPageError struct {
	ErrorMessage string `json:"errorMessage"`
	SourceName   string `json:"sourceName,omitempty"`
	LineNumber   int    `json:"lineNumber,omitempty"`
	ColumnNumber int    `json:"columnNumber,omitempty"`
	Stacktrace   []struct {
		FunctionName string `json:"functionName"`
		Filename     string `json:"filename"`
		LineNumber   int    `json:"lineNumber"`
		ColumnNumber int    `json:"columnNumber"`
	} `json:"stacktrace,omitempty"`
}

// Unrecognized is any frame that is not a known notification, including
// command responses.
type Unrecognized struct {
	Name string
}

func (ConsoleAPICalled) isEvent()   {}
func (LogEntryAdded) isEvent()      {}
func (ExceptionThrown) isEvent()    {}
func (RequestWillBeSent) isEvent()  {}
func (ResponseReceived) isEvent()   {}
func (FirefoxConsoleCall) isEvent() {}
func (FirefoxPageError) isEvent()   {}
func (Unrecognized) isEvent()       {}

// ParseEvent classifies a decoded frame for dialect. Frames carrying a
// command correlation id, or matching no known shape, parse as
// Unrecognized. A frame whose payload does not fit the expected shape is
// returned as an error.
func ParseEvent(dialect Dialect, frame []byte) (Event, error) {
	if dialect == DialectFirefox {
		return parseFirefoxEvent(frame)
	}
	return parseChromeEvent(frame)
}

func parseChromeEvent(frame []byte) (Event, error) {
	header := gjson.GetManyBytes(frame, "id", "method", "params")
	if header[0].Exists() {
		return Unrecognized{Name: "response"}, nil
	}
	method := header[1].String()
	params := []byte(header[2].Raw)

	var ev Event
	var err error
	switch method {
	case "Runtime.consoleAPICalled":
		var e ConsoleAPICalled
		err = decodeParams(params, &e)
		ev = e
	case "Log.entryAdded":
		var e LogEntryAdded
		err = decodeParams(params, &e)
		ev = e
	case "Runtime.exceptionThrown":
		var e ExceptionThrown
		err = decodeParams(params, &e)
		ev = e
	case "Network.requestWillBeSent":
		var e RequestWillBeSent
		err = decodeParams(params, &e)
		ev = e
	case "Network.responseReceived":
		var e ResponseReceived
		err = decodeParams(params, &e)
		ev = e
	default:
		return Unrecognized{Name: method}, nil
	}
	if err != nil {
		return nil, &DecodeError{Frame: frame, Err: err}
	}
	return ev, nil
}

func parseFirefoxEvent(frame []byte) (Event, error) {
	header := gjson.GetManyBytes(frame, "type", "message", "pageError")
	packetType := header[0].String()

	switch packetType {
	case "consoleAPICall":
		var e FirefoxConsoleCall
		if err := decodeParams([]byte(header[1].Raw), &e); err != nil {
			return nil, &DecodeError{Frame: frame, Err: err}
		}
		return e, nil
	case "pageError":
		var e FirefoxPageError
		if err := decodeParams([]byte(header[2].Raw), &e); err != nil {
			return nil, &DecodeError{Frame: frame, Err: err}
		}
		return e, nil
	default:
		return Unrecognized{Name: packetType}, nil
	}
}

// decodeParams decodes a params object. Absent params decode to the zero value.
func decodeParams(raw []byte, v interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
