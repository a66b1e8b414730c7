package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

// Logger is the logging surface used by a Session. *logging.Logger
// satisfies it.
type Logger interface {
	Debugf(format string, v ...interface{})
	Infof(format string, v ...interface{})
	Warnf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

// State is the lifecycle state of a Session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures a Session. The zero value is usable.
type Options struct {
	// HTTPClient is used for target discovery. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Dialer opens the duplex channel. Defaults to DialWebSocket.
	Dialer Dialer

	Logger Logger

	// Capacity bounds each record store. Defaults to DefaultCapacity.
	Capacity int

	// CommandTimeout rejects commands that receive no reply in time with
	// ErrCommandTimeout. Zero waits indefinitely.
	CommandTimeout time.Duration

	// Now is the capture clock for records.
	Now func() time.Time
}

// ConnectOptions selects the browser and target to attach to.
type ConnectOptions struct {
	Dialect     Dialect
	Host        string
	Port        int
	TargetIndex int
}

// connection is one open channel and the read loop serving it.
type connection struct {
	conn    Conn
	dialect Dialect
	target  Target
	done    chan struct{} // closed when the read loop exits
	err     error         // read error, valid after done is closed
}

// closeError describes why the read loop ended.
func (c *connection) closeError() error {
	if c.err == nil || errors.Is(c.err, io.EOF) {
		return fmt.Errorf("%w: channel closed", ErrChannel)
	}
	return fmt.Errorf("%w: %v", ErrChannel, c.err)
}

// Session manages the connection to one browser target and the telemetry
// gathered from it. All methods are safe for concurrent use.
type Session struct {
	httpClient     *http.Client
	dial           Dialer
	logger         Logger
	commandTimeout time.Duration
	now            func() time.Time

	records *Records
	pending *pending
	nextID  atomic.Int64

	mu      sync.Mutex
	state   State
	current *connection
	attempt uint64 // incremented by each transition to Connecting
}

// New creates a disconnected session.
func New(opts Options) *Session {
	s := &Session{
		httpClient:     opts.HTTPClient,
		dial:           opts.Dialer,
		logger:         opts.Logger,
		commandTimeout: opts.CommandTimeout,
		now:            opts.Now,
		records:        NewRecords(opts.Capacity),
		pending:        newPending(),
	}
	if s.httpClient == nil {
		s.httpClient = http.DefaultClient
	}
	if s.dial == nil {
		s.dial = DialWebSocket
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListTargets returns the inspectable targets of a browser.
func (s *Session) ListTargets(ctx context.Context, dialect Dialect, host string, port int) ([]Target, error) {
	return Discover(ctx, s.httpClient, dialect, host, port)
}

// EndpointVersion reads the version document of a chrome-dialect endpoint
// without connecting to it.
func (s *Session) EndpointVersion(ctx context.Context, host string, port int) (json.RawMessage, error) {
	return BrowserVersion(ctx, s.httpClient, host, port)
}

// Connect attaches to a browser target. Connecting while already connected
// succeeds without opening a second channel. Zero options default to the
// chrome dialect on localhost:9222. A failed attempt leaves the
// session disconnected with no residual state.
func (s *Session) Connect(ctx context.Context, opts ConnectOptions) (string, error) {
	if opts.Dialect == "" {
		opts.Dialect = DialectChrome
	}
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Port < 0 || opts.Port > 65535 {
		return "", fmt.Errorf("invalid port %d", opts.Port)
	}

	s.mu.Lock()
	switch s.state {
	case StateConnected:
		c := s.current
		s.mu.Unlock()
		return fmt.Sprintf("Already connected to %q (%s) using the %s dialect", c.target.Title, c.target.URL, c.dialect), nil
	case StateConnecting:
		s.mu.Unlock()
		return "", ErrConnectInProgress
	}
	s.attempt++
	token := s.attempt
	s.state = StateConnecting
	s.mu.Unlock()

	s.logger.Infof("connecting to %s browser at %s:%d (target %d)", opts.Dialect, opts.Host, opts.Port, opts.TargetIndex)

	c, err := s.open(ctx, token, opts)
	if err != nil {
		s.rollback(c, token)
		s.logger.Warnf("connect failed: %v", err)
		return "", err
	}

	s.mu.Lock()
	if s.current != c || s.state != StateConnecting {
		s.mu.Unlock()
		s.rollback(c, token)
		return "", fmt.Errorf("%w: channel closed during initialization", ErrChannel)
	}
	s.state = StateConnected
	s.mu.Unlock()

	s.logger.Infof("connected to %s (%s)", c.target.Title, c.target.Address)
	return fmt.Sprintf("Connected to %q (%s) using the %s dialect", c.target.Title, c.target.URL, c.dialect), nil
}

// open performs discovery, dials the channel and runs the dialect's
// initialization commands. On error the returned connection, if any, must be
// rolled back.
func (s *Session) open(ctx context.Context, token uint64, opts ConnectOptions) (*connection, error) {
	targets, err := Discover(ctx, s.httpClient, opts.Dialect, opts.Host, opts.Port)
	if err != nil {
		return nil, err
	}
	target, err := SelectTarget(targets, opts.TargetIndex)
	if err != nil {
		return nil, err
	}
	if target.Address == "" {
		return nil, fmt.Errorf("%w: target %q exposes no debugger address (is another client attached?)", ErrChannel, target.Title)
	}

	conn, err := s.dial(ctx, target.Address)
	if err != nil {
		if errors.Is(err, ErrChannel) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrChannel, err)
	}

	c := &connection{
		conn:    conn,
		dialect: opts.Dialect,
		target:  target,
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	if s.attempt != token || s.state != StateConnecting {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: channel closed during initialization", ErrChannel)
	}
	s.current = c
	s.mu.Unlock()

	go s.readLoop(c)

	return c, s.initialize(ctx, c)
}

// initialize issues the commands a dialect requires before events flow.
func (s *Session) initialize(ctx context.Context, c *connection) error {
	switch c.dialect {
	case DialectFirefox:
		return s.sendOneWay(c, "startListeners", map[string]interface{}{
			"listeners": []string{"PageError", "ConsoleAPI"},
		})
	default:
		for _, method := range []string{"Runtime.enable", "Log.enable", "Network.enable"} {
			if _, err := s.call(ctx, c, method, nil, c.done); err != nil {
				return fmt.Errorf("initializing session: %w", err)
			}
		}
		return nil
	}
}

// rollback releases c and returns the session to the disconnected state,
// unless a newer attempt or connection has taken over in the meantime.
func (s *Session) rollback(c *connection, token uint64) {
	s.mu.Lock()
	owned := (c != nil && s.current == c) ||
		(s.current == nil && s.state == StateConnecting && s.attempt == token)
	if owned {
		s.current = nil
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if c != nil {
		_ = c.conn.Close()
	}
}

// Disconnect closes the channel. Commands still waiting for a reply are
// left unresolved.
func (s *Session) Disconnect() (string, error) {
	s.mu.Lock()
	c := s.current
	if c == nil {
		s.mu.Unlock()
		return "Not connected to a browser", nil
	}
	s.current = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if err := c.conn.Close(); err != nil {
		s.logger.Debugf("closing channel: %v", err)
	}
	s.logger.Infof("disconnected from %s", c.target.Address)
	return fmt.Sprintf("Disconnected from %q", c.target.Title), nil
}

// readLoop consumes inbound frames until the channel fails or closes.
func (s *Session) readLoop(c *connection) {
	defer close(c.done)
	for {
		frame, err := c.conn.ReadMessage()
		if err != nil {
			c.err = err
			s.handleClose(c, err)
			return
		}
		s.handleFrame(c.dialect, frame)
	}
}

// handleClose moves the session to disconnected if c is still current.
func (s *Session) handleClose(c *connection, err error) {
	s.mu.Lock()
	wasCurrent := s.current == c
	if wasCurrent {
		s.current = nil
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if !wasCurrent {
		return
	}
	_ = c.conn.Close()
	if errors.Is(err, io.EOF) {
		s.logger.Infof("channel to %s closed by browser", c.target.Address)
	} else {
		s.logger.Warnf("channel to %s failed: %v", c.target.Address, err)
	}
}

// handleFrame routes one inbound frame to the correlator or the
// demultiplexer. Malformed frames are logged and dropped.
func (s *Session) handleFrame(dialect Dialect, frame []byte) {
	if !gjson.ValidBytes(frame) {
		s.logger.Warnf("%v", &DecodeError{Frame: frame})
		return
	}

	if dialect == DialectChrome {
		if id := gjson.GetBytes(frame, "id"); id.Exists() {
			var resp response
			if err := json.Unmarshal(frame, &resp); err != nil {
				s.logger.Warnf("%v", &DecodeError{Frame: frame, Err: err})
				return
			}
			if !s.pending.resolve(id.Int(), resp) {
				s.logger.Debugf("dropping reply for unknown command id %d", id.Int())
			}
			return
		}
	}

	ev, err := ParseEvent(dialect, frame)
	if err != nil {
		s.logger.Warnf("%v", err)
		return
	}
	s.apply(ev)
}

// connected returns the live connection or ErrNotConnected.
func (s *Session) connected() (*connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || s.state != StateConnected {
		return nil, ErrNotConnected
	}
	return s.current, nil
}

// Send issues a request/response command and waits for its reply. Replies
// are matched by correlation id, so concurrent commands may complete in any
// order.
func (s *Session) Send(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	c, err := s.connected()
	if err != nil {
		return nil, err
	}
	if c.dialect != DialectChrome {
		return nil, fmt.Errorf("%w: %s commands do not return results", ErrUnsupportedDialect, c.dialect)
	}
	return s.call(ctx, c, method, params, nil)
}

// call writes one command on c and waits for the reply. A non-nil abort
// channel rejects the wait with the channel's close error when it closes.
func (s *Session) call(ctx context.Context, c *connection, method string, params interface{}, abort <-chan struct{}) (json.RawMessage, error) {
	id := s.nextID.Add(1)
	replies := s.pending.register(id)

	data, err := json.Marshal(commandEnvelope{ID: id, Method: method, Params: params})
	if err != nil {
		s.pending.forget(id)
		return nil, fmt.Errorf("encoding %s: %w", method, err)
	}
	if err := c.conn.WriteMessage(data); err != nil {
		s.pending.forget(id)
		select {
		case <-abort:
			return nil, c.closeError()
		default:
		}
		return nil, fmt.Errorf("%w: writing %s: %v", ErrChannel, method, err)
	}
	s.logger.Debugf("sent %s (id %d)", method, id)

	var timeout <-chan time.Time
	if s.commandTimeout > 0 {
		timer := time.NewTimer(s.commandTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case resp := <-replies:
		if resp.Error != nil {
			return nil, &CommandError{Method: method, Code: resp.Error.Code, Message: resp.Error.Message}
		}
		return resp.Result, nil
	case <-abort:
		s.pending.forget(id)
		return nil, c.closeError()
	case <-timeout:
		s.pending.forget(id)
		return nil, fmt.Errorf("%w: %s after %s", ErrCommandTimeout, method, s.commandTimeout)
	case <-ctx.Done():
		s.pending.forget(id)
		return nil, ctx.Err()
	}
}

// sendOneWay writes an actor-addressed command. No reply is awaited.
func (s *Session) sendOneWay(c *connection, packetType string, message interface{}) error {
	data, err := json.Marshal(oneWayEnvelope{To: c.target.Actor, Type: packetType, Message: message})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", packetType, err)
	}
	if err := c.conn.WriteMessage(data); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrChannel, packetType, err)
	}
	s.logger.Debugf("sent %s to %s", packetType, c.target.Actor)
	return nil
}

// Capacity returns the number of records each store holds.
func (s *Session) Capacity() int {
	return s.records.Console.Capacity()
}

// ClearAll empties both record stores.
func (s *Session) ClearAll() {
	s.records.ClearAll()
}

// SessionStatus is a snapshot of a session.
type SessionStatus struct {
	State           State
	Dialect         Dialect
	Target          *Target
	ConsoleRecords  int
	NetworkRecords  int
	PendingCommands int
}

// Status returns a snapshot of the session state.
func (s *Session) Status() SessionStatus {
	s.mu.Lock()
	status := SessionStatus{State: s.state}
	if s.current != nil {
		target := s.current.target
		status.Dialect = s.current.dialect
		status.Target = &target
	}
	s.mu.Unlock()

	status.ConsoleRecords = s.records.Console.Len()
	status.NetworkRecords = s.records.Network.Len()
	status.PendingCommands = s.pending.count()
	return status
}

// IsConnected reports whether the session is connected.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected
}
