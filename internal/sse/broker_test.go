package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/mdsite/internal/testutil"
)

func receive(t *testing.T, ch chan []byte) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		if !ok {
			t.Fatal("stream closed")
		}
		return string(msg)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for change")
	}
	return ""
}

func TestPublishChange_ReachesEverySubscriber(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	first, second := b.Subscribe(), b.Subscribe()
	defer b.Unsubscribe(first)
	defer b.Unsubscribe(second)

	b.PublishChange("created", "blog/a.md")

	for _, ch := range []chan []byte{first, second} {
		msg := receive(t, ch)
		if !strings.Contains(msg, "event: content.changed\n") {
			t.Errorf("missing event name in %q", msg)
		}
		if !strings.Contains(msg, `"kind":"created"`) || !strings.Contains(msg, `"path":"blog/a.md"`) {
			t.Errorf("missing change data in %q", msg)
		}
		if !strings.HasSuffix(msg, "\n\n") {
			t.Errorf("message not terminated: %q", msg)
		}
	}
}

func TestPublishChange_IDsIncrease(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishChange("updated", "index.md")
	b.PublishChange("deleted", "old.md")

	if msg := receive(t, ch); !strings.HasPrefix(msg, "id: 1\n") {
		t.Errorf("first message = %q", msg)
	}
	if msg := receive(t, ch); !strings.HasPrefix(msg, "id: 2\n") || !strings.Contains(msg, `"kind":"deleted"`) {
		t.Errorf("second message = %q", msg)
	}
}

func TestSubscribers(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	if n := b.Subscribers(); n != 0 {
		t.Fatalf("subscribers = %d, want 0", n)
	}
	ch := b.Subscribe()
	if n := b.Subscribers(); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}
	b.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Error("unsubscribed stream still open")
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d after unsubscribe", n)
	}
}

func TestPublishChange_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroker(0)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3*streamBuffer; i++ {
			b.PublishChange("updated", "busy.md")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publishing blocked on a full stream")
	}
}

func TestServeHTTP_StreamsChanges(t *testing.T) {
	b := NewBroker(20 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/_events", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return b.Subscribers() == 1
	}, "handler did not subscribe")

	b.PublishChange("updated", "about.md")
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	body := w.Body.String()
	for _, want := range []string{"retry: 1000\n\n", "event: content.changed", `"path":"about.md"`, ": keepalive\n\n"} {
		if !strings.Contains(body, want) {
			t.Errorf("stream missing %q: %q", want, body)
		}
	}

	testutil.Eventually(t, time.Second, 10*time.Millisecond, func() bool {
		return b.Subscribers() == 0
	}, "stream not released after disconnect")
}

func TestClose_EndsStreams(t *testing.T) {
	b := NewBroker(0)
	ch := b.Subscribe()

	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("stream still open after Close")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for stream to close")
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("subscribers = %d after Close", n)
	}

	// No-ops once closed.
	b.PublishChange("updated", "x.md")
	b.Close()
	if _, ok := <-b.Subscribe(); ok {
		t.Error("Subscribe after Close returned an open stream")
	}
}
