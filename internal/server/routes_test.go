package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/attyx/assistant/internal/config"
	"github.com/attyx/assistant/internal/feed"
)

func TestRequireToken_Disabled(t *testing.T) {
	env := newTestEnv(t, defaultAgent, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", w.Code)
	}
}

func TestRequireToken_Enforced(t *testing.T) {
	env := newTestEnv(t, defaultAgent, func(cfg *config.Config) {
		cfg.Server.ClientToken = "client-secret"
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic client-secret", http.StatusUnauthorized},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"correct", "Bearer client-secret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && !strings.Contains(w.Body.String(), "bearer token") {
				t.Errorf("body = %q, want bearer token error", w.Body.String())
			}
		})
	}
}

func TestAppendThenHistory(t *testing.T) {
	env := newTestEnv(t, defaultAgent, nil)

	body := `{"session_id":"s1","message":{"type":"ai","content":"the reply"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("append status = %d, want 200: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/sessions/s1/messages", nil)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("history status = %d, want 200", w.Code)
	}

	var payload struct {
		Messages []feed.Event `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Messages) != 1 {
		t.Fatalf("len(messages) = %d, want 1", len(payload.Messages))
	}
	if payload.Messages[0].Message.Content != "the reply" {
		t.Errorf("content = %q, want %q", payload.Messages[0].Message.Content, "the reply")
	}
}

func TestAppend_Invalid(t *testing.T) {
	env := newTestEnv(t, defaultAgent, nil)

	tests := []struct {
		name string
		body string
	}{
		{"bad json", `{`},
		{"missing session", `{"message":{"type":"ai","content":"x"}}`},
		{"missing type", `{"session_id":"s1","message":{"content":"x"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			env.router.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestSessions_Endpoint(t *testing.T) {
	env := newTestEnv(t, defaultAgent, nil)

	if _, err := env.store.Append("s1", feed.Message{Type: feed.TypeHuman, Content: "first question"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var payload struct {
		Sessions []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(payload.Sessions))
	}
	if payload.Sessions[0].ID != "s1" || payload.Sessions[0].Title != "first question" {
		t.Errorf("session = %+v, want s1 titled from first message", payload.Sessions[0])
	}
}

// sseEvent is one decoded frame off the test stream.
type sseEvent struct {
	name string
	data string
}

// readSSE tails the response body, sending decoded frames until the stream
// drops.
func readSSE(body *bufio.Scanner, out chan<- sseEvent) {
	var name, data string
	for body.Scan() {
		line := body.Text()
		switch {
		case line == "":
			if name != "" {
				out <- sseEvent{name: name, data: data}
			}
			name, data = "", ""
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	close(out)
}

func TestSSE_StreamsSessionInserts(t *testing.T) {
	env := newTestEnv(t, defaultAgent, nil)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/s1/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("content-type = %q, want text/event-stream", ct)
	}

	events := make(chan sseEvent, 8)
	go readSSE(bufio.NewScanner(resp.Body), events)

	// First frame announces the subscription.
	select {
	case evt := <-events:
		if evt.name != "connected" {
			t.Fatalf("first event = %q, want connected", evt.name)
		}
		if !strings.Contains(evt.data, "s1") {
			t.Errorf("connected data = %q, want session id", evt.data)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("connected event never arrived")
	}

	if _, err := env.store.Append("s1", feed.Message{Type: feed.TypeAI, Content: "streamed"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// An insert for a different session must not surface on this stream.
	if _, err := env.store.Append("other", feed.Message{Type: feed.TypeAI, Content: "not here"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case evt := <-events:
		if evt.name != "message" {
			t.Fatalf("event = %q, want message", evt.name)
		}
		var decoded feed.Event
		if err := json.Unmarshal([]byte(evt.data), &decoded); err != nil {
			t.Fatalf("decode event data: %v", err)
		}
		if decoded.SessionID != "s1" || decoded.Message.Content != "streamed" {
			t.Errorf("event = %+v, want the s1 insert", decoded)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("insert never reached the stream")
	}

	// Nothing else pending: the other session's insert was filtered out.
	select {
	case evt, ok := <-events:
		if ok {
			t.Fatalf("unexpected extra event %q: %s", evt.name, evt.data)
		}
	case <-time.After(100 * time.Millisecond):
	}

	cancel()
}

func TestSSE_UnsubscribesOnDisconnect(t *testing.T) {
	env := newTestEnv(t, defaultAgent, nil)

	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/sessions/s1/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	// Wait for the subscription to register, then drop the client.
	deadline := time.Now().Add(3 * time.Second)
	for env.broker.SubscriberCount("s1") == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if env.broker.SubscriberCount("s1") != 1 {
		t.Fatal("subscription never registered")
	}

	cancel()

	deadline = time.Now().Add(3 * time.Second)
	for env.broker.SubscriberCount("s1") != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := env.broker.SubscriberCount("s1"); n != 0 {
		t.Errorf("SubscriberCount = %d after disconnect, want 0", n)
	}
}
