// Package sse streams annotation and document changes to clients as
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
	"time"
)

// Event types sent to clients.
const (
	// EventAnnotationsChanged carries a committed add, edit or delete.
	EventAnnotationsChanged = "annotations.changed"
	// EventDocumentChanged reports documents the watcher saw change on disk,
	// coalesced per path.
	EventDocumentChanged = "document.changed"
)

// Document actions reported by the watcher.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event is one message for clients. Path scopes it to a document; clients
// subscribed to another document do not receive it.
type Event struct {
	Type string
	Path string
	Data any
}

// DocumentChange is the payload of EventDocumentChanged. Annotations is the
// number of annotations the document holds after the change.
type DocumentChange struct {
	Path        string `json:"path"`
	Action      string `json:"action"`
	Annotations int    `json:"annotations"`
}

type subscription struct {
	ch   chan []byte
	path string
}

// Broker fans events out to subscribers.
//
// A single goroutine owns the subscriber set, the pending document changes
// and the message sequence; public methods talk to it over channels.
type Broker struct {
	coalesce time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	docCh         chan DocumentChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker starts a broker that folds watcher changes to the same document
// within the coalesce window into one EventDocumentChanged.
func NewBroker(coalesce time.Duration) *Broker {
	if coalesce <= 0 {
		coalesce = 2 * time.Second
	}

	b := &Broker{
		coalesce:      coalesce,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		docCh:         make(chan DocumentChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

// mergeAction folds a new watcher action into a pending one. A document
// created and then written is still reported as created.
func mergeAction(pending, next string) string {
	if pending == ActionCreated && next == ActionUpdated {
		return ActionCreated
	}
	return next
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]string)
	pending := make(map[string]DocumentChange)
	var flush *time.Timer
	var flushCh <-chan time.Time
	var seq uint64

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch, path := range clients {
			if path != "" && event.Path != "" && path != event.Path {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			if flush != nil {
				flush.Stop()
			}
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub.path

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.docCh:
			if prev, ok := pending[c.Path]; ok {
				c.Action = mergeAction(prev.Action, c.Action)
			}
			pending[c.Path] = c
			if flush == nil {
				flush = time.NewTimer(b.coalesce)
				flushCh = flush.C
			}

		case <-flushCh:
			flush, flushCh = nil, nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			for _, p := range paths {
				broadcast(Event{
					Type: EventDocumentChanged,
					Path: p,
					Data: pending[p],
				})
			}
			clear(pending)

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close stops the broker and closes every subscriber channel. Pending
// document changes are dropped.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client. A non-empty path limits it to events about that
// document.
func (b *Broker) Subscribe(path string) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- subscription{ch: ch, path: path}:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to the matching clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishAnnotations announces a committed change to the annotations of
// path.
func (b *Broker) PublishAnnotations(path string, change any) {
	b.Publish(Event{Type: EventAnnotationsChanged, Path: path, Data: change})
}

// PublishDocumentEvent queues a watcher-observed change. It reaches clients
// once the coalesce window closes.
func (b *Broker) PublishDocumentEvent(c DocumentChange) {
	if b.closed.Load() {
		return
	}
	select {
	case b.docCh <- c:
	case <-b.stopped:
	}
}

// ServeHTTP streams events (GET /api/events). ?path= limits the stream to
// one document.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(r.URL.Query().Get("path"))
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
