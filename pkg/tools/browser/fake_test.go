package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/entrhq/devbridge/pkg/devtools"
	"github.com/entrhq/devbridge/pkg/launcher"
)

// fakeConn answers every command from a table of canned results.
// A result starting with "!" is sent as a protocol error instead.
type fakeConn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	replies map[string]string
	methods []string
}

func newFakeConn(replies map[string]string) *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
		replies: replies,
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case frame := <-c.inbound:
		return frame, nil
	case <-c.closed:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}

	header := gjson.GetManyBytes(data, "id", "method", "type")
	c.mu.Lock()
	name := header[1].String()
	if name == "" {
		name = header[2].String()
	}
	c.methods = append(c.methods, name)
	result, ok := c.replies[name]
	c.mu.Unlock()

	if !header[0].Exists() {
		return nil
	}
	if !ok {
		result = "{}"
	}

	id := header[0].Int()
	if strings.HasPrefix(result, "!") {
		c.push(fmt.Sprintf(`{"id":%d,"error":{"code":-32000,"message":%q}}`, id, result[1:]))
	} else {
		c.push(fmt.Sprintf(`{"id":%d,"result":%s}`, id, result))
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(frame string) {
	c.inbound <- []byte(frame)
}

func (c *fakeConn) sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.methods...)
}

// fakeEndpoint serves the discovery documents of a browser with one page.
type fakeEndpoint struct {
	host string
	port int
	conn *fakeConn
}

func newFakeEndpoint(t *testing.T, replies map[string]string) *fakeEndpoint {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `[{"id":"P1","type":"page","title":"Shop","url":"https://shop.example/","webSocketDebuggerUrl":"ws://%s/devtools/page/P1"},
			{"id":"W1","type":"service_worker","title":"sw","url":"https://shop.example/sw.js","webSocketDebuggerUrl":"ws://%s/devtools/page/W1"}]`, r.Host, r.Host)
	})
	mux.HandleFunc("/json/version", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Browser":"Chrome/120.0.6099.71","Protocol-Version":"1.3"}`)
	})
	mux.HandleFunc("/json/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"actor":"/devtools/tab1","title":"Fox","url":"https://fox.example/"}]`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return &fakeEndpoint{host: u.Hostname(), port: port, conn: newFakeConn(replies)}
}

func (e *fakeEndpoint) session(t *testing.T) *devtools.Session {
	t.Helper()
	s := devtools.New(devtools.Options{
		Dialer: func(ctx context.Context, address string) (devtools.Conn, error) {
			return e.conn, nil
		},
	})
	t.Cleanup(func() { s.Disconnect() })
	return s
}

// connectArgs returns devtools_connect arguments for this endpoint.
func (e *fakeEndpoint) connectArgs(extra string) []byte {
	return []byte(fmt.Sprintf(`<arguments><host>%s</host><port>%d</port>%s</arguments>`, e.host, e.port, extra))
}

func connectSession(t *testing.T, e *fakeEndpoint, s *devtools.Session) {
	t.Helper()
	_, _, err := NewConnectTool(s).Execute(context.Background(), e.connectArgs(""))
	require.NoError(t, err)
}

// fakeLauncher pretends to start a browser whose endpoint is already served.
type fakeLauncher struct {
	port      int
	launchErr error
	instance  *launcher.Instance
	launched  []launcher.Options
}

func (l *fakeLauncher) Launch(ctx context.Context, opts launcher.Options) (*launcher.Instance, error) {
	l.launched = append(l.launched, opts)
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	if l.instance != nil {
		return nil, launcher.ErrAlreadyRunning
	}
	target := opts.URL
	if target == "" {
		target = "about:blank"
	}
	l.instance = &launcher.Instance{Port: l.port, Headless: opts.Headless, URL: target, Version: "120.0.6099.71"}
	return l.instance, nil
}

func (l *fakeLauncher) Running() (*launcher.Instance, bool) {
	return l.instance, l.instance != nil
}

func (l *fakeLauncher) Close() error {
	if l.instance == nil {
		return launcher.ErrNotRunning
	}
	l.instance = nil
	return nil
}
