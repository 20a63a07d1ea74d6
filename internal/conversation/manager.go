package conversation

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State identifies the step a multi-turn flow is waiting on.
type State string

const (
	StateAddName  State = "add_name"
	StateAddDate  State = "add_date"
	StateDelName  State = "del_name"
	StateDescName State = "desc_name"
	StateAddNote  State = "add_note"
)

var ErrNoSession = errors.New("no active session")

// Session is the per-user cross-turn state of one flow. At most one session
// exists per user; starting a new flow overwrites it.
type Session struct {
	UserID         string
	State          State
	DraftName      string
	StartedAt      time.Time
	LastActivityAt time.Time
}

// Manager owns all active sessions, keyed by user id. Abandoned sessions are
// evicted by the janitor after the inactivity timeout.
type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 10 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Begin creates a session for the user, replacing any active one.
func (m *Manager) Begin(userID string, state State) *Session {
	now := time.Now().UTC()
	s := &Session{
		UserID:         userID,
		State:          state,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = s
	return clone(s)
}

func (m *Manager) Get(userID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return clone(s), nil
}

func (m *Manager) Transition(userID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return ErrNoSession
	}
	s.State = state
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) SetDraft(userID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return ErrNoSession
	}
	s.DraftName = name
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) Touch(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		return ErrNoSession
	}
	s.LastActivityAt = time.Now().UTC()
	return nil
}

// End discards the user's session. Reports whether one existed.
func (m *Manager) End(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[userID]
	delete(m.sessions, userID)
	return ok
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for userID, s := range m.sessions {
		if now.Sub(s.LastActivityAt) < m.inactivityTimeout {
			continue
		}
		expired = append(expired, clone(s))
		delete(m.sessions, userID)
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
