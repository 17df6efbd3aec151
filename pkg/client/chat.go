package client

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatReply is the assistant's answer to one message.
type ChatReply struct {
	Response     string `json:"response"`
	Tool         string `json:"tool"`
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
}

// Message is one stored conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo is the metadata surfaced alongside history.
type SessionInfo struct {
	SessionID    string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

// SessionHistory is a session's transcript with metadata.
type SessionHistory struct {
	SessionID string      `json:"session_id"`
	History   []Message   `json:"history"`
	Metadata  SessionInfo `json:"metadata"`
}

// UsageStats summarizes recorded interactions by tool.
type UsageStats struct {
	TotalRequests int64            `json:"total_requests"`
	ByTool        map[string]int64 `json:"by_tool"`
	StartedAt     time.Time        `json:"started_at"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// SessionStats combines session-store and usage counters.
type SessionStats struct {
	ActiveSessions int        `json:"active_sessions"`
	TotalMessages  int        `json:"total_messages"`
	Usage          UsageStats `json:"usage"`
}

// Chat sends one message through the assistant and returns the reply. An
// empty sessionID starts a new conversation.
func (c *Client) Chat(ctx context.Context, message, sessionID string) (*ChatReply, error) {
	var reply ChatReply
	err := c.do(ctx, http.MethodPost, "/api/v1/chat", chatRequest{
		Message:   message,
		SessionID: sessionID,
	}, &reply)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// History returns the stored conversation for a session.
func (c *Client) History(ctx context.Context, sessionID string) (*SessionHistory, error) {
	var history SessionHistory
	err := c.do(ctx, http.MethodGet, "/api/v1/chat/history/"+url.PathEscape(sessionID), nil, &history)
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// DeleteSession removes a session. Deleting an unknown session is not an
// error.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/chat/sessions/"+url.PathEscape(sessionID), nil, nil)
}

// SessionStats returns session-store and usage counters.
func (c *Client) SessionStats(ctx context.Context) (*SessionStats, error) {
	var stats SessionStats
	if err := c.do(ctx, http.MethodGet, "/api/v1/chat/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
