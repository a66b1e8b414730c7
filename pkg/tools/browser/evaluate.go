package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/tools"
)

// EvaluateTool executes JavaScript in the connected target.
type EvaluateTool struct {
	session *devtools.Session
}

// NewEvaluateTool creates a new evaluate tool.
func NewEvaluateTool(session *devtools.Session) *EvaluateTool {
	return &EvaluateTool{session: session}
}

// Name returns the tool name.
func (t *EvaluateTool) Name() string {
	return "devtools_evaluate"
}

// Description returns the tool description.
func (t *EvaluateTool) Description() string {
	return "Evaluate a JavaScript expression once in the connected page and return its value as JSON. Top-level await and let/const redeclaration are allowed. A thrown exception is reported with its location. Requires the chrome dialect."
}

// Schema returns the tool's JSON schema.
func (t *EvaluateTool) Schema() map[string]interface{} {
	return tools.BaseToolSchema(
		map[string]interface{}{
			"code": map[string]interface{}{
				"type":        "string",
				"description": "JavaScript to evaluate. The value of the last expression is returned.",
			},
			"await_promise": map[string]interface{}{
				"type":        "boolean",
				"description": "Wait for a returned promise to settle and return its value. Default: false",
			},
			"context_id": map[string]interface{}{
				"type":        "integer",
				"description": "Execution context to evaluate in (e.g. an iframe). Default: the page's main context",
			},
			"timeout": map[string]interface{}{
				"type":        "number",
				"description": "Seconds to wait for the result. Default: the configured command timeout",
			},
		},
		[]string{"code"},
	)
}

// EvaluateInput defines the input parameters.
type EvaluateInput struct {
	XMLName      xml.Name `xml:"arguments"`
	Code         string   `xml:"code"`
	AwaitPromise bool     `xml:"await_promise"`
	ContextID    int      `xml:"context_id"`
	Timeout      *float64 `xml:"timeout"`
}

// Execute evaluates the code.
func (t *EvaluateTool) Execute(ctx context.Context, argsXML []byte) (string, map[string]interface{}, error) {
	var input EvaluateInput
	if err := tools.UnmarshalXMLWithFallback(argsXML, &input); err != nil {
		return "", nil, fmt.Errorf("failed to parse arguments: %w", err)
	}

	if input.Code == "" {
		return "", nil, fmt.Errorf("JavaScript code is required")
	}
	if input.ContextID < 0 {
		return "", nil, fmt.Errorf("context_id cannot be negative")
	}

	if input.Timeout != nil {
		if *input.Timeout <= 0 {
			return "", nil, fmt.Errorf("timeout must be positive")
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*input.Timeout*float64(time.Second)))
		defer cancel()
	}

	result, err := t.session.Evaluate(ctx, input.Code, devtools.EvalOptions{
		ContextID:    input.ContextID,
		AwaitPromise: input.AwaitPromise,
	})
	if err != nil {
		return "", nil, fmt.Errorf("JavaScript evaluation failed: %w", err)
	}

	if ex := result.Exception; ex != nil {
		location := ""
		if ex.URL != "" {
			location = fmt.Sprintf(" at %s:%d:%d", ex.URL, ex.Line, ex.Column)
		}
		output := fmt.Sprintf("JavaScript threw an exception%s\n\n%s", location, ex.Error())
		return output, map[string]interface{}{"exception": true}, nil
	}

	rendered := renderValue(result)
	output := fmt.Sprintf("Result (%s):\n%s", result.Type, rendered)

	return output, map[string]interface{}{
		"exception": false,
		"type":      result.Type,
		"json":      len(result.Value) > 0,
	}, nil
}

// renderValue pretty-prints a by-value result. Values that cannot be
// serialized (undefined, NaN, functions) fall back to their description.
func renderValue(result *devtools.EvalResult) string {
	if len(result.Value) > 0 {
		var buf bytes.Buffer
		if err := json.Indent(&buf, result.Value, "", "  "); err == nil {
			return buf.String()
		}
		return string(result.Value)
	}
	if result.Description != "" {
		return result.Description
	}
	return result.Type
}

// IsLoopBreaking returns whether this tool breaks the agent loop.
func (t *EvaluateTool) IsLoopBreaking() bool {
	return false
}
