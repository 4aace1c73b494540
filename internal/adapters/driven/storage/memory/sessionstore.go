package memory

import (
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// Ensure SessionStore implements the interface.
var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore keeps conversation turns per session id for the life of the
// process. Sessions are created lazily and never evicted, so memory grows
// with the number of distinct session ids seen.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	mu    sync.Mutex
	turns []domain.Turn
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
	}
}

// GetOrCreate returns a snapshot of the session's turns.
// The snapshot is not affected by later appends.
func (s *SessionStore) GetOrCreate(id string) domain.Session {
	sess := s.get(id)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	turns := make([]domain.Turn, len(sess.turns))
	copy(turns, sess.turns)
	return domain.Session{ID: id, Turns: turns}
}

// AppendUser appends a user turn.
func (s *SessionStore) AppendUser(id, text string) {
	s.append(id, domain.Turn{Role: domain.RoleUser, Text: text})
}

// AppendAssistant appends an assistant turn.
func (s *SessionStore) AppendAssistant(id, text string) {
	s.append(id, domain.Turn{Role: domain.RoleAssistant, Text: text})
}

// AppendExchange appends a question and its answer under one lock, so
// concurrent turns on the same session never interleave.
func (s *SessionStore) AppendExchange(id, question, answer string) {
	s.append(id,
		domain.Turn{Role: domain.RoleUser, Text: question},
		domain.Turn{Role: domain.RoleAssistant, Text: answer},
	)
}

// Len returns the number of sessions seen.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) append(id string, turns ...domain.Turn) {
	sess := s.get(id)
	sess.mu.Lock()
	sess.turns = append(sess.turns, turns...)
	sess.mu.Unlock()
}

// get returns the session for id, creating it on first reference.
func (s *SessionStore) get(id string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	return sess
}
