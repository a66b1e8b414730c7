package devtools

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const timestampLayout = "15:04:05.000"

// FormatConsole renders console records one per line, oldest first.
func FormatConsole(records []ConsoleRecord) string {
	if len(records) == 0 {
		return "No console messages captured."
	}

	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s] %-7s %s", r.Time().Format(timestampLayout), strings.ToUpper(string(r.Severity)), r.Text)
		if r.Location != nil && r.Location.URL != "" {
			fmt.Fprintf(&b, "\n    at %s:%d", r.Location.URL, r.Location.Line)
			if r.Location.Column > 0 {
				fmt.Fprintf(&b, ":%d", r.Location.Column)
			}
		}
		if r.StackTrace != "" && r.Severity == SeverityError {
			b.WriteByte('\n')
			b.WriteString(r.StackTrace)
		}
	}
	return b.String()
}

// FormatNetwork renders network records one per line, oldest first.
// Headers are included when verbose is set.
func FormatNetwork(records []NetworkRecord, verbose bool) string {
	if len(records) == 0 {
		return "No network requests captured."
	}

	var b strings.Builder
	for i, r := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		status := "pending"
		if r.Response != nil {
			status = fmt.Sprintf("%d %s (%dms)", r.Response.Status, r.Response.MimeType, r.Response.Duration)
		}
		fmt.Fprintf(&b, "[%s] %s %s -> %s", time.UnixMilli(r.Timestamp).Format(timestampLayout), r.Method, r.URL, status)
		if r.ResourceType != "" {
			fmt.Fprintf(&b, " [%s]", r.ResourceType)
		}
		if verbose {
			writeHeaders(&b, "Request headers", r.RequestHeaders)
			if r.RequestBody != "" {
				fmt.Fprintf(&b, "\n  Request body: %s", truncate(r.RequestBody, 500))
			}
			if r.Response != nil {
				writeHeaders(&b, "Response headers", r.Response.Headers)
			}
		}
	}
	return b.String()
}

// FormatTargets renders a numbered target list.
func FormatTargets(targets []Target) string {
	if len(targets) == 0 {
		return "No targets available."
	}

	var b strings.Builder
	for i, t := range targets {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := t.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(&b, "%d. %s\n   %s", i, title, t.URL)
		if t.Type != "" && t.Type != "page" {
			fmt.Fprintf(&b, " [%s]", t.Type)
		}
	}
	return b.String()
}

func writeHeaders(b *strings.Builder, label string, headers map[string]string) {
	if len(headers) == 0 {
		return
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintf(b, "\n  %s:", label)
	for _, k := range keys {
		fmt.Fprintf(b, "\n    %s: %s", k, headers[k])
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
