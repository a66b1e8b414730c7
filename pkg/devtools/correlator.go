package devtools

import (
	"encoding/json"
	"sync"
)

// response is the inbound reply to one command.
type response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// pending maps outstanding correlation ids to their waiters. Each waiter
// fires at most once and is removed when it fires.
type pending struct {
	mu      sync.Mutex
	waiters map[int64]chan response
}

func newPending() *pending {
	return &pending{waiters: make(map[int64]chan response)}
}

// register installs a waiter for id. It must be called before the command
// is written so that a fast reply cannot be missed.
func (p *pending) register(id int64) <-chan response {
	ch := make(chan response, 1)
	p.mu.Lock()
	p.waiters[id] = ch
	p.mu.Unlock()
	return ch
}

// resolve delivers resp to the waiter for id and reports whether one existed.
func (p *pending) resolve(id int64, resp response) bool {
	p.mu.Lock()
	ch, ok := p.waiters[id]
	delete(p.waiters, id)
	p.mu.Unlock()

	if !ok {
		return false
	}
	ch <- resp
	return true
}

// forget drops the waiter for id without resolving it.
func (p *pending) forget(id int64) {
	p.mu.Lock()
	delete(p.waiters, id)
	p.mu.Unlock()
}

func (p *pending) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.waiters)
}

// commandEnvelope is the outbound request/response dialect frame.
type commandEnvelope struct {
	ID     int64       `json:"id"`
	Method string      `json:"method"`
	Params interface{} `json:"params,omitempty"`
}

// oneWayEnvelope is the outbound actor-addressed dialect frame.
type oneWayEnvelope struct {
	To      string      `json:"to"`
	Type    string      `json:"type"`
	Message interface{} `json:"message"`
}
