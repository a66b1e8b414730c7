package devtools

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/net/websocket"
)

// Conn is a duplex message channel to one debug target. Each message is a
// single JSON document.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens a Conn to a target's channel address.
type Dialer func(ctx context.Context, address string) (Conn, error)

// maxFrameBytes bounds a single inbound frame. Network bodies and large
// evaluation results can exceed the websocket package default.
const maxFrameBytes = 64 << 20

// wsConn adapts a golang.org/x/net/websocket connection to Conn.
type wsConn struct {
	ws *websocket.Conn
	mu sync.Mutex // serializes writers
}

// DialWebSocket is the default Dialer.
func DialWebSocket(ctx context.Context, address string) (Conn, error) {
	location, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid channel address %q: %v", ErrChannel, address, err)
	}

	config, err := websocket.NewConfig(address, "http://"+location.Host)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChannel, err)
	}

	ws, err := config.DialContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", ErrChannel, address, err)
	}
	ws.MaxPayloadBytes = maxFrameBytes

	return &wsConn{ws: ws}, nil
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	var data []byte
	if err := websocket.Message.Receive(c.ws, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *wsConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Protocol servers expect text frames.
	return websocket.Message.Send(c.ws, string(data))
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
