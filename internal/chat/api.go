package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/attyx/assistant/internal/feed"
)

// api is the thin HTTP client for the assistant server. The server injects
// the agent credential; this client only ever carries the client token.
type api struct {
	baseURL string
	token   string
	http    *http.Client
}

// submitRequest is the body of POST /api/assistant.
type submitRequest struct {
	Query       string `json:"query"`
	UserID      string `json:"user_id"`
	RequestID   string `json:"request_id"`
	SessionID   string `json:"session_id"`
	CurrentView string `json:"current_view,omitempty"`
}

// commandEnvelope is the proxy's response when the outbound keyword
// heuristic matched; any other response shape is the agent's raw payload,
// which the client ignores (the authoritative reply arrives on the feed).
type commandEnvelope struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	View   string `json:"view"`
}

func (a *api) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	return req, nil
}

// submit posts a query to the assistant proxy. It returns the command
// envelope when the heuristic fired, nil for a plain chat exchange, and an
// error carrying the server's message on failure.
func (a *api) submit(ctx context.Context, req submitRequest) (*commandEnvelope, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("chat: encode submit: %w", err)
	}
	httpReq, err := a.newRequest(ctx, http.MethodPost, "/api/assistant", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("chat: submit: %w", err)
	}
	resp, err := a.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat: submit: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("chat: submit: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s", errorMessage(respBody))
	}

	var env commandEnvelope
	if err := json.Unmarshal(respBody, &env); err == nil &&
		env.Type == feed.TypeCommand && env.Action == feed.ActionSetView {
		return &env, nil
	}
	return nil, nil
}

// sessions fetches the known session list, most recent first.
func (a *api) sessions(ctx context.Context) ([]Session, error) {
	req, err := a.newRequest(ctx, http.MethodGet, "/api/sessions", nil)
	if err != nil {
		return nil, fmt.Errorf("chat: sessions: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: sessions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat: sessions: %s", errorMessage(body))
	}

	var payload struct {
		Sessions []Session `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("chat: sessions: decode: %w", err)
	}
	return payload.Sessions, nil
}

// history fetches a session's stored messages in insert order.
func (a *api) history(ctx context.Context, sessionID string) ([]feed.Event, error) {
	req, err := a.newRequest(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/messages", nil)
	if err != nil {
		return nil, fmt.Errorf("chat: history: %w", err)
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("chat: history: %s", errorMessage(body))
	}

	var payload struct {
		Messages []feed.Event `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("chat: history: decode: %w", err)
	}
	return payload.Messages, nil
}

// openEvents opens the SSE stream for one session. The caller owns the
// returned body and must close it. The request deliberately bypasses the
// client timeout: the stream lives until cancelled.
func (a *api) openEvents(ctx context.Context, sessionID string) (io.ReadCloser, error) {
	req, err := a.newRequest(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/events", nil)
	if err != nil {
		return nil, fmt.Errorf("chat: open events: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	streaming := &http.Client{Transport: a.http.Transport}
	resp, err := streaming.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat: open events: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("chat: open events: %s", errorMessage(body))
	}
	return resp.Body, nil
}

// errorMessage extracts the server's error field, falling back to the
// generic message when the body has no usable error.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return payload.Error
	}
	return "Internal server error"
}
