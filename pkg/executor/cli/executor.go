// Package cli provides a line-oriented executor for browser debugging tools.
//
// The executor reads tool calls from its input, one <tool> element at a
// time, runs them against a registry and writes the results. It is the
// stdio surface of devbridge: an agent (or a person) pipes calls in and
// reads results out.
//
// Example usage:
//
//	session := devtools.New(devtools.Options{Logger: logger})
//	registry := browser.NewToolRegistry(session, launcher.New())
//
//	executor := cli.NewExecutor(registry,
//	    cli.WithStyled(term.IsTerminal(int(os.Stdout.Fd()))),
//	)
//
//	if err := executor.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/entrhq/devbridge/pkg/logging"
	"github.com/entrhq/devbridge/pkg/tools"
)

// Registry resolves tool names. *browser.ToolRegistry implements it.
type Registry interface {
	Lookup(name string) (tools.Tool, bool)
	Names() []string
}

// Executor reads tool calls from an input stream and writes their results.
type Executor struct {
	registry Registry
	reader   *bufio.Reader
	writer   io.Writer
	logger   *logging.Logger

	// Display options
	styled bool
	prompt bool
}

// ExecutorOption is a function that configures an Executor.
type ExecutorOption func(*Executor)

// WithReader sets a custom input reader (default is os.Stdin).
func WithReader(r io.Reader) ExecutorOption {
	return func(e *Executor) {
		e.reader = bufio.NewReader(r)
	}
}

// WithWriter sets a custom output writer (default is os.Stdout).
func WithWriter(w io.Writer) ExecutorOption {
	return func(e *Executor) {
		e.writer = w
	}
}

// WithStyled enables colored output and JSON highlighting.
func WithStyled(styled bool) ExecutorOption {
	return func(e *Executor) {
		e.styled = styled
	}
}

// WithPrompt enables the interactive "> " prompt and welcome banner.
func WithPrompt(prompt bool) ExecutorOption {
	return func(e *Executor) {
		e.prompt = prompt
	}
}

// WithLogger sets the logger used for tool execution records.
func WithLogger(logger *logging.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates a new executor for the given registry.
func NewExecutor(registry Registry, opts ...ExecutorOption) *Executor {
	e := &Executor{
		registry: registry,
		reader:   bufio.NewReader(os.Stdin),
		writer:   os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewWriterLogger("cli", io.Discard)
	}

	return e
}

// Run reads and executes tool calls until the input ends, the user types
// exit or quit, a loop-breaking tool completes, or ctx is canceled.
func (e *Executor) Run(ctx context.Context) error {
	if e.prompt {
		fmt.Fprintln(e.writer, headerStyle.Render("devbridge"))
		fmt.Fprintln(e.writer, e.tips("Enter a <tool> call. Type 'help' to list tools, 'exit' or 'quit' to end."))
		fmt.Fprintln(e.writer)
	}

	var pending strings.Builder
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if e.prompt && pending.Len() == 0 {
			fmt.Fprint(e.writer, e.promptText())
		}

		line, err := e.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read input: %w", err)
		}
		eof := errors.Is(err, io.EOF)

		if pending.Len() == 0 {
			switch strings.TrimSpace(line) {
			case "exit", "quit":
				return nil
			case "help":
				e.printHelp()
				continue
			case "":
				if eof {
					return nil
				}
				continue
			}
		}

		pending.WriteString(line)
		text := pending.String()
		if !tools.HasToolCall(text) {
			if eof {
				if strings.TrimSpace(text) != "" {
					e.printError(fmt.Errorf("incomplete tool call at end of input"))
				}
				return nil
			}
			continue
		}
		pending.Reset()

		if stop := e.dispatch(ctx, text); stop {
			return nil
		}
		if eof {
			return nil
		}
	}
}

// dispatch executes the tool call in text and reports whether the loop
// should stop.
func (e *Executor) dispatch(ctx context.Context, text string) bool {
	call, _, err := tools.ParseToolCall(text)
	if err != nil {
		e.printError(err)
		return false
	}

	tool, ok := e.registry.Lookup(call.ToolName)
	if !ok {
		e.printError(fmt.Errorf("unknown tool %q (available: %s)", call.ToolName, strings.Join(e.registry.Names(), ", ")))
		return false
	}

	e.logger.Debugf("Executing tool %s", call.ToolName)
	output, metadata, err := tool.Execute(ctx, call.GetArgumentsXML())
	if err != nil {
		e.logger.Warnf("Tool %s failed: %v", call.ToolName, err)
		e.printToolHeader(call.ToolName)
		e.printError(err)
		return false
	}
	e.logger.Debugf("Tool %s completed", call.ToolName)

	e.printToolHeader(call.ToolName)
	e.printResult(output, metadata)
	return tool.IsLoopBreaking()
}

func (e *Executor) printToolHeader(name string) {
	if e.styled {
		fmt.Fprintln(e.writer, toolStyle.Render("● "+name))
		return
	}
	fmt.Fprintf(e.writer, "== %s ==\n", name)
}

func (e *Executor) printResult(output string, metadata map[string]interface{}) {
	if e.styled {
		if isJSON, _ := metadata["json"].(bool); isJSON {
			output = highlightJSON(output)
		} else {
			output = toolResultStyle.Render(output)
		}
	}
	fmt.Fprintln(e.writer, output)
	fmt.Fprintln(e.writer)
}

func (e *Executor) printError(err error) {
	msg := "Error: " + err.Error()
	if e.styled {
		msg = errorStyle.Render(msg)
	}
	fmt.Fprintln(e.writer, msg)
	fmt.Fprintln(e.writer)
}

func (e *Executor) printHelp() {
	fmt.Fprintln(e.writer, "Available tools:")
	for _, name := range e.registry.Names() {
		tool, _ := e.registry.Lookup(name)
		fmt.Fprintf(e.writer, "  %s\n", name)
		fmt.Fprintf(e.writer, "    %s\n", e.tips(tool.Description()))
	}
	fmt.Fprintln(e.writer)
	fmt.Fprintln(e.writer, "Call format:")
	fmt.Fprintln(e.writer, "  <tool><tool_name>devtools_console</tool_name><arguments><severity>error</severity></arguments></tool>")
	fmt.Fprintln(e.writer)
}

func (e *Executor) promptText() string {
	if e.styled {
		return promptStyle.Render("> ")
	}
	return "> "
}

func (e *Executor) tips(text string) string {
	if e.styled {
		return tipsStyle.Render(text)
	}
	return text
}

// highlightJSON colors the JSON body that follows the first line of an
// evaluation result. The text is returned unchanged if highlighting fails.
func highlightJSON(output string) string {
	head, body, found := strings.Cut(output, "\n")
	if !found {
		return output
	}

	var buf bytes.Buffer
	if err := quick.Highlight(&buf, body, "json", "terminal256", "monokai"); err != nil {
		return output
	}
	return toolResultStyle.Render(head) + "\n" + strings.TrimRight(buf.String(), "\n")
}
