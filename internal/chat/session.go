// Package chat routes conversational messages to the outlet, product and
// calculator tools and keeps per-session history.
package chat

import (
	"context"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mahmoud-Al-Jaziri/convo-sage/internal/observability"
)

// Roles recorded in session history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo is the metadata surfaced alongside history.
type SessionInfo struct {
	ID           string    `json:"session_id"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	LastActive   time.Time `json:"last_active"`
}

// StoreStats summarizes the store for the stats endpoint.
type StoreStats struct {
	ActiveSessions int `json:"active_sessions"`
	TotalMessages  int `json:"total_messages"`
}

type session struct {
	id           string
	messages     []Message
	messageCount int // counts exchanges, not individual messages
	createdAt    time.Time
	lastActive   time.Time
}

// Store keeps conversation sessions in memory. A single mutex serializes all
// access, which also gives each session the per-session mutual exclusion the
// dispatcher relies on.
type Store struct {
	mu           sync.RWMutex
	sessions     map[string]*session
	historyLimit int
	idleTTL      time.Duration
	logger       *observability.Logger
}

// NewStore creates a session store. historyLimit caps the retained messages
// per session; idleTTL controls when the sweeper drops inactive sessions.
func NewStore(historyLimit int, idleTTL time.Duration, logger *observability.Logger) *Store {
	if historyLimit < 1 {
		historyLimit = 50
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Store{
		sessions:     make(map[string]*session),
		historyLimit: historyLimit,
		idleTTL:      idleTTL,
		logger:       logger,
	}
}

// GetOrCreate resolves a session ID, creating the session when the ID is
// empty or unknown. Unknown caller-supplied IDs are honored so clients can
// resume with their own identifiers.
func (s *Store) GetOrCreate(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = newSessionID()
	}

	if _, ok := s.sessions[id]; !ok {
		now := time.Now().UTC()
		s.sessions[id] = &session{
			id:         id,
			createdAt:  now,
			lastActive: now,
		}
	}

	return id
}

// Append records one user/assistant exchange and returns the session's
// exchange count. Missing sessions are created so no exchange is ever lost.
func (s *Store) Append(id, userMessage, reply string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		now := time.Now().UTC()
		sess = &session{id: id, createdAt: now}
		s.sessions[id] = sess
	}

	now := time.Now().UTC()
	sess.messages = append(sess.messages,
		Message{Role: RoleUser, Content: userMessage, Timestamp: now},
		Message{Role: RoleAssistant, Content: reply, Timestamp: now},
	)
	sess.messageCount++
	sess.lastActive = now

	if len(sess.messages) > s.historyLimit {
		trimmed := make([]Message, s.historyLimit)
		copy(trimmed, sess.messages[len(sess.messages)-s.historyLimit:])
		sess.messages = trimmed
	}

	return sess.messageCount
}

// History returns a copy of a session's messages. The second return value
// reports whether the session exists.
func (s *Store) History(id string) ([]Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	out := make([]Message, len(sess.messages))
	copy(out, sess.messages)
	return out, true
}

// Info returns session metadata.
func (s *Store) Info(id string) (SessionInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return sess.info(), true
}

// Clear empties a session's history but keeps the session alive.
func (s *Store) Clear(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return false
	}

	sess.messages = nil
	sess.messageCount = 0
	sess.lastActive = time.Now().UTC()
	return true
}

// Delete removes a session entirely.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Stats reports active session and message totals.
func (s *Store) Stats() StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := StoreStats{ActiveSessions: len(s.sessions)}
	for _, sess := range s.sessions {
		stats.TotalMessages += len(sess.messages)
	}
	return stats
}

// Sessions lists metadata for every active session, most recent first.
func (s *Store) Sessions() []SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.info())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out
}

// StartSweeper evicts idle sessions on an interval until ctx is canceled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.sweep(time.Now().UTC()); removed > 0 {
					s.logger.Debug().
						Int("removed", removed).
						Msg("Swept idle chat sessions")
				}
			}
		}
	}()
}

func (s *Store) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.lastActive) > s.idleTTL {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (sess *session) info() SessionInfo {
	return SessionInfo{
		ID:           sess.id,
		MessageCount: sess.messageCount,
		CreatedAt:    sess.createdAt,
		LastActive:   sess.lastActive,
	}
}

// newSessionID builds IDs like "session_3f8a9b2c1d4e5f60".
func newSessionID() string {
	u := uuid.New()
	return "session_" + hex.EncodeToString(u[:])[:16]
}

// historyText flattens messages for pattern scans over past turns.
func historyText(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return strings.ToLower(b.String())
}
