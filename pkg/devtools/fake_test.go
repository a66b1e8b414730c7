package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeConn is an in-memory duplex channel.
type fakeConn struct {
	inbound   chan []byte
	writes    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
	readErr   atomic.Value // error returned once closed, defaults to io.EOF
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 64),
		writes:  make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case frame := <-c.inbound:
		return frame, nil
	case <-c.closed:
		if err, ok := c.readErr.Load().(error); ok {
			return nil, err
		}
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("use of closed connection")
	default:
	}
	c.writes <- append([]byte(nil), data...)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

// fail closes the channel with a transport error.
func (c *fakeConn) fail(err error) {
	c.readErr.Store(err)
	_ = c.Close()
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// push queues an inbound frame.
func (c *fakeConn) push(frame string) {
	c.inbound <- []byte(frame)
}

// command is an outbound frame observed by the fake browser.
type command struct {
	ID      int64           `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	To      string          `json:"to"`
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`
}

// fakeBrowser serves a discovery endpoint and hands out fakeConns.
// Initialization commands are acknowledged automatically unless initError
// is set. Every other command is delivered on commands.
type fakeBrowser struct {
	t         *testing.T
	dialect   Dialect
	server    *httptest.Server
	host      string
	port      int
	dials     atomic.Int32
	initError string

	mu    sync.Mutex
	conns []*fakeConn

	commands chan command
}

var initMethods = map[string]bool{
	"Runtime.enable": true,
	"Log.enable":     true,
	"Network.enable": true,
}

func newFakeBrowser(t *testing.T, dialect Dialect) *fakeBrowser {
	t.Helper()

	b := &fakeBrowser{
		t:        t,
		dialect:  dialect,
		commands: make(chan command, 64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"id":"A1","type":"page","title":"Example","url":"https://example.com/","webSocketDebuggerUrl":"ws://fake/devtools/page/A1"},
			{"id":"B2","type":"page","title":"Second","url":"https://example.org/","webSocketDebuggerUrl":"ws://fake/devtools/page/B2"}
		]`)
	})
	mux.HandleFunc("/json/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"actor":"/devtools/tab1","title":"Firefox Tab","url":"https://mozilla.org/"}]`)
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)

	u, err := url.Parse(b.server.URL)
	require.NoError(t, err)
	b.host = u.Hostname()
	b.port, err = strconv.Atoi(u.Port())
	require.NoError(t, err)

	return b
}

// dial is the Dialer handed to the session under test.
func (b *fakeBrowser) dial(ctx context.Context, address string) (Conn, error) {
	b.dials.Add(1)
	conn := newFakeConn()
	b.mu.Lock()
	b.conns = append(b.conns, conn)
	b.mu.Unlock()
	go b.serve(conn)
	return conn, nil
}

func (b *fakeBrowser) serve(conn *fakeConn) {
	for {
		select {
		case data := <-conn.writes:
			var cmd command
			if err := json.Unmarshal(data, &cmd); err != nil {
				b.t.Errorf("browser received malformed command %q: %v", data, err)
				return
			}
			if initMethods[cmd.Method] {
				if b.initError != "" {
					conn.push(fmt.Sprintf(`{"id":%d,"error":{"code":-32601,"message":%q}}`, cmd.ID, b.initError))
				} else {
					conn.push(fmt.Sprintf(`{"id":%d,"result":{}}`, cmd.ID))
				}
				continue
			}
			b.commands <- cmd
		case <-conn.closed:
			return
		}
	}
}

// conn returns the most recently dialled channel.
func (b *fakeBrowser) conn() *fakeConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(b.t, b.conns, "no channel dialled")
	return b.conns[len(b.conns)-1]
}

// nextCommand waits for the next non-initialization command.
func (b *fakeBrowser) nextCommand() command {
	b.t.Helper()
	select {
	case cmd := <-b.commands:
		return cmd
	case <-time.After(2 * time.Second):
		b.t.Fatal("timed out waiting for command")
		return command{}
	}
}

func (b *fakeBrowser) connectOptions() ConnectOptions {
	return ConnectOptions{Dialect: b.dialect, Host: b.host, Port: b.port}
}

// fakeClock returns a clock advancing one second per call.
func fakeClock() func() time.Time {
	var ticks atomic.Int64
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		return base.Add(time.Duration(ticks.Add(1)) * time.Second)
	}
}

func newTestSession(b *fakeBrowser) *Session {
	return New(Options{
		HTTPClient: b.server.Client(),
		Dialer:     b.dial,
		Now:        fakeClock(),
	})
}

// connectTestSession returns a session connected to b.
func connectTestSession(t *testing.T, b *fakeBrowser) *Session {
	t.Helper()
	s := newTestSession(b)
	_, err := s.Connect(context.Background(), b.connectOptions())
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = s.Disconnect() })
	return s
}
