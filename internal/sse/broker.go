// Package sse pushes content change notifications to open browser tabs
// over Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	// ChangeEvent is the event name of every notification.
	ChangeEvent = "content.changed"
	// DefaultKeepAlive is the interval between comment lines on idle streams.
	DefaultKeepAlive = 30 * time.Second

	// retryMillis is the reconnect delay suggested to browsers.
	retryMillis  = 1000
	streamBuffer = 64
)

// Change describes one changed content file.
type Change struct {
	Kind string `json:"kind"` // created, updated or deleted
	Path string `json:"path"`
}

// Broker fans change notifications out to connected streams. One goroutine
// owns the subscriber set; the exported methods send it requests.
type Broker struct {
	keepAlive time.Duration

	join    chan chan []byte
	leave   chan chan []byte
	changes chan Change
	size    chan chan int

	quit    chan struct{}
	done    chan struct{}
	closing atomic.Bool
}

// NewBroker starts a broker. Idle streams get a keepalive comment every
// keepAlive; zero selects DefaultKeepAlive.
func NewBroker(keepAlive time.Duration) *Broker {
	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	b := &Broker{
		keepAlive: keepAlive,
		join:      make(chan chan []byte),
		leave:     make(chan chan []byte),
		changes:   make(chan Change, 256),
		size:      make(chan chan int),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go b.loop()
	return b
}

func (b *Broker) loop() {
	defer close(b.done)

	subs := make(map[chan []byte]struct{})
	var seq uint64

	for {
		select {
		case <-b.quit:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.join:
			subs[ch] = struct{}{}

		case ch := <-b.leave:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case c := <-b.changes:
			seq++
			msg := frame(seq, c)
			for ch := range subs {
				select {
				case ch <- msg:
				default:
					// Slow reader: it misses this one, the next change reloads it anyway.
				}
			}

		case reply := <-b.size:
			reply <- len(subs)
		}
	}
}

// frame encodes c as one SSE message with id.
func frame(id uint64, c Change) []byte {
	data, _ := json.Marshal(c)
	return fmt.Appendf(nil, "id: %d\nevent: %s\ndata: %s\n\n", id, ChangeEvent, data)
}

// Close stops the broker and closes every subscriber stream. It is safe to
// call more than once.
func (b *Broker) Close() {
	if b.closing.CompareAndSwap(false, true) {
		close(b.quit)
	}
	<-b.done
}

// Subscribe registers a stream. The channel is closed on Unsubscribe or Close.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, streamBuffer)
	if b.closing.Load() {
		close(ch)
		return ch
	}
	select {
	case b.join <- ch:
	case <-b.done:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a stream and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closing.Load() {
		return
	}
	select {
	case b.leave <- ch:
	case <-b.done:
	}
}

// Subscribers returns the number of open streams.
func (b *Broker) Subscribers() int {
	if b.closing.Load() {
		return 0
	}
	reply := make(chan int, 1)
	select {
	case b.size <- reply:
	case <-b.done:
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-b.done:
		return 0
	}
}

// PublishChange notifies every open stream that path changed. kind is one
// of "created", "updated", "deleted".
func (b *Broker) PublishChange(kind, path string) {
	if b.closing.Load() {
		return
	}
	select {
	case b.changes <- Change{Kind: kind, Path: path}:
	case <-b.done:
	}
}

// ServeHTTP streams change events until the client goes away or the broker
// is closed.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry: %d\n\n", retryMillis)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ticker := time.NewTicker(b.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
