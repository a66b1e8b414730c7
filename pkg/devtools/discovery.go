package devtools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
)

// maxDiscoveryBody bounds the size of an introspection document.
const maxDiscoveryBody = 4 << 20

// chromeTarget is one element of the Chrome /json listing.
type chromeTarget struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	Type                 string `json:"type"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// firefoxTarget is one element of the Firefox /json/list listing.
type firefoxTarget struct {
	Actor string `json:"actor"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// discoveryPath returns the introspection path used by dialect.
func discoveryPath(dialect Dialect) string {
	if dialect == DialectFirefox {
		return "/json/list"
	}
	return "/json"
}

func endpointURL(host string, port int, path string) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port)) + path
}

// Discover fetches the list of inspectable targets from the browser's HTTP
// introspection endpoint.
func Discover(ctx context.Context, client *http.Client, dialect Dialect, host string, port int) ([]Target, error) {
	body, err := fetchEndpoint(ctx, client, host, port, discoveryPath(dialect))
	if err != nil {
		return nil, err
	}

	var targets []Target
	switch dialect {
	case DialectFirefox:
		var listing []firefoxTarget
		if err := json.Unmarshal(body, &listing); err != nil {
			return nil, fmt.Errorf("%w on port %d: invalid target list: %v", ErrEndpointUnreachable, port, err)
		}
		for _, t := range listing {
			targets = append(targets, Target{
				ID:      t.Actor,
				Title:   t.Title,
				URL:     t.URL,
				Actor:   t.Actor,
				Address: "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + t.Actor,
			})
		}
	default:
		var listing []chromeTarget
		if err := json.Unmarshal(body, &listing); err != nil {
			return nil, fmt.Errorf("%w on port %d: invalid target list: %v", ErrEndpointUnreachable, port, err)
		}
		for _, t := range listing {
			targets = append(targets, Target{
				ID:      t.ID,
				Title:   t.Title,
				URL:     t.URL,
				Type:    t.Type,
				Address: t.WebSocketDebuggerURL,
			})
		}
	}

	if len(targets) == 0 {
		return nil, fmt.Errorf("%w on port %d", ErrNoTargetsAvailable, port)
	}
	return targets, nil
}

// SelectTarget returns the target at index.
func SelectTarget(targets []Target, index int) (Target, error) {
	if index < 0 || index >= len(targets) {
		return Target{}, &TargetIndexError{Index: index, Count: len(targets)}
	}
	return targets[index], nil
}

// BrowserVersion reads the Chrome /json/version document.
func BrowserVersion(ctx context.Context, client *http.Client, host string, port int) (json.RawMessage, error) {
	body, err := fetchEndpoint(ctx, client, host, port, "/json/version")
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w on port %d: invalid version document", ErrEndpointUnreachable, port)
	}
	return json.RawMessage(body), nil
}

// fetchEndpoint performs a GET against the introspection endpoint and
// returns the body of a 2xx response.
func fetchEndpoint(ctx context.Context, client *http.Client, host string, port int, path string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL(host, port, path), nil)
	if err != nil {
		return nil, fmt.Errorf("%w on port %d: %v", ErrEndpointUnreachable, port, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w on port %d: is the browser running with remote debugging enabled? (%v)", ErrEndpointUnreachable, port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w on port %d: %s returned %s", ErrEndpointUnreachable, port, path, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDiscoveryBody))
	if err != nil {
		return nil, fmt.Errorf("%w on port %d: reading %s: %v", ErrEndpointUnreachable, port, path, err)
	}
	return body, nil
}
