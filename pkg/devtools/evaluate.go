package devtools

import (
	"context"
	"encoding/json"
	"fmt"
)

// EvalOptions configures Evaluate.
type EvalOptions struct {
	// ContextID selects the execution context. Zero uses the page's
	// default context.
	ContextID int

	// AwaitPromise waits for a returned promise to settle.
	AwaitPromise bool
}

// EvalResult is the outcome of evaluating code in the browser.
type EvalResult struct {
	// Raw is the unmodified Runtime.evaluate result.
	Raw json.RawMessage

	Type        string
	Value       json.RawMessage
	Description string

	// Exception is set when the code threw.
	Exception *EvalException
}

// EvalException describes an exception raised by evaluated code.
type EvalException struct {
	Text        string `json:"text"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Line        int    `json:"line"`
	Column      int    `json:"column"`
}

func (e *EvalException) Error() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Text
}

type evaluateParams struct {
	Expression    string `json:"expression"`
	ContextID     int    `json:"contextId,omitempty"`
	ReturnByValue bool   `json:"returnByValue"`
	AwaitPromise  bool   `json:"awaitPromise,omitempty"`
	ReplMode      bool   `json:"replMode,omitempty"`
}

type evaluateReply struct {
	Result           remoteObject      `json:"result"`
	ExceptionDetails *exceptionDetails `json:"exceptionDetails,omitempty"`
}

// Evaluate runs code once in the target's JavaScript context. A thrown
// exception is reported through EvalResult.Exception, not as an error.
func (s *Session) Evaluate(ctx context.Context, code string, opts EvalOptions) (*EvalResult, error) {
	c, err := s.connected()
	if err != nil {
		return nil, err
	}
	if c.dialect != DialectChrome {
		return nil, fmt.Errorf("%w: evaluation requires the chrome dialect", ErrUnsupportedDialect)
	}

	raw, err := s.call(ctx, c, "Runtime.evaluate", evaluateParams{
		Expression:    code,
		ContextID:     opts.ContextID,
		ReturnByValue: true,
		AwaitPromise:  opts.AwaitPromise,
		ReplMode:      true,
	}, nil)
	if err != nil {
		return nil, err
	}

	var reply evaluateReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("decoding Runtime.evaluate result: %w", err)
	}

	result := &EvalResult{
		Raw:         raw,
		Type:        reply.Result.Type,
		Value:       reply.Result.Value,
		Description: reply.Result.Description,
	}
	if d := reply.ExceptionDetails; d != nil {
		result.Exception = &EvalException{
			Text:   d.Text,
			URL:    d.URL,
			Line:   d.LineNumber,
			Column: d.ColumnNumber,
		}
		if d.Exception != nil {
			result.Exception.Description = d.Exception.Description
		}
	}
	return result, nil
}

// BrowserInfo returns the browser's version information.
func (s *Session) BrowserInfo(ctx context.Context) (json.RawMessage, error) {
	c, err := s.connected()
	if err != nil {
		return nil, err
	}
	if c.dialect != DialectChrome {
		return nil, fmt.Errorf("%w: browser info requires the chrome dialect", ErrUnsupportedDialect)
	}
	return s.call(ctx, c, "Browser.getVersion", nil, nil)
}
