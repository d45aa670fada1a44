package memory

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Transport is an in-memory appstore.Transport that replays scripted
// responses per URL and records every request it receives, for testing
// without a network.
type Transport struct {
	mu        sync.Mutex
	responses map[string][]response
	requests  []Request
}

// Request is a single recorded Send call.
type Request struct {
	URL  string
	Body []byte
}

type response struct {
	statusCode int
	body       []byte
	err        error
}

func NewTransport() *Transport {
	return &Transport{
		responses: make(map[string][]response),
	}
}

// Script queues a response for the given URL. Responses for the same URL are
// consumed in the order they were queued.
func (t *Transport) Script(url string, statusCode int, body []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.responses[url] = append(t.responses[url], response{statusCode: statusCode, body: body})
}

// ScriptError queues a network-level failure for the given URL.
func (t *Transport) ScriptError(url string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.responses[url] = append(t.responses[url], response{err: err})
}

func (t *Transport) Send(ctx context.Context, url string, body []byte) (int, []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.requests = append(t.requests, Request{URL: url, Body: body})

	queued := t.responses[url]
	if len(queued) == 0 {
		return 0, nil, errors.Errorf("no scripted response for %s", url)
	}

	next := queued[0]
	t.responses[url] = queued[1:]

	if next.err != nil {
		return 0, nil, next.err
	}
	return next.statusCode, next.body, nil
}

// Requests returns every recorded request in the order received.
func (t *Transport) Requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()

	return append([]Request(nil), t.requests...)
}
