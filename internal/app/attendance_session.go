package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"attendance_poll_bot/internal/domain/attendance"
	"attendance_poll_bot/internal/domain/calendar"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Session errors.
var (
	ErrNotSessionOwner   = errors.New("interaction does not belong to this session's user")
	ErrSessionClosed     = errors.New("session is already finished")
	ErrSessionExpired    = errors.New("session timed out")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNoTimeSelected    = errors.New("select a start or an end time before confirming")
	ErrInvalidTransition = errors.New("action is not allowed in the current session state")
)

// SessionState is a node of the attendance answer flow.
type SessionState string

const (
	StateAwaitingChoice SessionState = "AWAITING_CHOICE"
	StateTimeSelection  SessionState = "TIME_SELECTION"
	StateDone           SessionState = "DONE"
	StateExpired        SessionState = "EXPIRED"
)

// ResponseSaver is the part of the response store a session writes to.
type ResponseSaver interface {
	SaveResponse(ctx context.Context, userID int64, name string, date calendar.Date, canAttend bool, start, end *calendar.Clock) (*attendance.Response, error)
}

// Session is one user's interactive answer to one prompt.
type Session struct {
	id        string
	promptKey string
	userID    int64
	name      string
	date      calendar.Date
	timeout   time.Duration
	now       func() time.Time
	saver     ResponseSaver

	mu           sync.Mutex
	state        SessionState
	start        *calendar.Clock
	end          *calendar.Clock
	lastActivity time.Time
}

// SessionSnapshot is a copy of the session's render state.
type SessionSnapshot struct {
	ID        string
	UserID    int64
	Date      calendar.Date
	State     SessionState
	StartTime *calendar.Clock
	EndTime   *calendar.Clock
}

func (s *Session) ID() string          { return s.id }
func (s *Session) UserID() int64       { return s.userID }
func (s *Session) Date() calendar.Date { return s.date }
func (s *Session) PromptKey() string   { return s.promptKey }

// State reports the current state, switching to Expired first if the
// inactivity timeout has elapsed.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.state
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return SessionSnapshot{
		ID:        s.id,
		UserID:    s.userID,
		Date:      s.date,
		State:     s.state,
		StartTime: copyClock(s.start),
		EndTime:   copyClock(s.end),
	}
}

// CanConfirm is true in TimeSelection once a start or end time is chosen.
func (s *Session) CanConfirm() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.state == StateTimeSelection && (s.start != nil || s.end != nil)
}

// CannotAttend records a negative answer and finishes the session.
func (s *Session) CannotAttend(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked(userID, StateAwaitingChoice, StateTimeSelection); err != nil {
		return err
	}
	if _, err := s.saver.SaveResponse(ctx, s.userID, s.name, s.date, false, nil, nil); err != nil {
		return err
	}
	s.state = StateDone
	return nil
}

// CanAttend moves the session to time selection.
func (s *Session) CanAttend(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked(userID, StateAwaitingChoice, StateTimeSelection); err != nil {
		return err
	}
	s.state = StateTimeSelection
	return nil
}

func (s *Session) SelectStart(userID int64, c calendar.Clock) error {
	return s.selectTime(userID, c, &s.start)
}

func (s *Session) SelectEnd(userID int64, c calendar.Clock) error {
	return s.selectTime(userID, c, &s.end)
}

func (s *Session) selectTime(userID int64, c calendar.Clock, target **calendar.Clock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked(userID, StateTimeSelection); err != nil {
		return err
	}
	if !c.IsHalfHourAligned() {
		return fmt.Errorf("%w: %s", calendar.ErrMisalignedTime, c)
	}
	*target = &c
	return nil
}

// Confirm saves the positive answer with the selected times and finishes the session.
func (s *Session) Confirm(ctx context.Context, userID int64) (*attendance.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked(userID, StateTimeSelection); err != nil {
		return nil, err
	}
	if s.start == nil && s.end == nil {
		return nil, ErrNoTimeSelected
	}
	saved, err := s.saver.SaveResponse(ctx, s.userID, s.name, s.date, true, s.start, s.end)
	if err != nil {
		return nil, err
	}
	s.state = StateDone
	return saved, nil
}

// guardLocked rejects foreign users, finished or expired sessions and states
// outside allowed. On success it refreshes the inactivity timer.
func (s *Session) guardLocked(userID int64, allowed ...SessionState) error {
	if userID != s.userID {
		return ErrNotSessionOwner
	}
	s.expireLocked()
	switch s.state {
	case StateDone:
		return ErrSessionClosed
	case StateExpired:
		return ErrSessionExpired
	}
	for _, st := range allowed {
		if s.state == st {
			s.lastActivity = s.now()
			return nil
		}
	}
	return ErrInvalidTransition
}

func (s *Session) expireLocked() {
	if s.state == StateDone || s.state == StateExpired {
		return
	}
	if s.timeout > 0 && s.now().Sub(s.lastActivity) > s.timeout {
		s.state = StateExpired
	}
}

func (s *Session) finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	return s.state == StateDone || s.state == StateExpired
}

// rename keeps the latest display name seen for the session's user.
func (s *Session) rename(name string) {
	if name == "" {
		return
	}
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func copyClock(c *calendar.Clock) *calendar.Clock {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

type sessionKey struct {
	promptKey string
	userID    int64
}

// SessionManager owns the live sessions, indexed by id and by (prompt, user).
type SessionManager struct {
	saver   ResponseSaver
	timeout time.Duration
	now     func() time.Time
	logger  *logrus.Entry

	mu       sync.Mutex
	byID     map[string]*Session
	byPrompt map[sessionKey]*Session
}

func NewSessionManager(saver ResponseSaver, timeout time.Duration, now func() time.Time, logger *logrus.Entry) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		saver:    saver,
		timeout:  timeout,
		now:      now,
		logger:   logger,
		byID:     make(map[string]*Session),
		byPrompt: make(map[sessionKey]*Session),
	}
}

// Open returns the live session of userID for the prompt, creating a fresh
// one if none exists or the previous one is finished. name is stored with
// the answer for summaries.
func (m *SessionManager) Open(promptKey string, date calendar.Date, userID int64, name string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey{promptKey: promptKey, userID: userID}
	if existing, ok := m.byPrompt[key]; ok {
		if !existing.finished() {
			existing.rename(name)
			return existing
		}
		delete(m.byID, existing.id)
	}

	s := &Session{
		id:           uuid.NewString(),
		promptKey:    promptKey,
		userID:       userID,
		name:         name,
		date:         date,
		timeout:      m.timeout,
		now:          m.now,
		saver:        m.saver,
		state:        StateAwaitingChoice,
		lastActivity: m.now(),
	}
	m.byID[s.id] = s
	m.byPrompt[key] = s
	m.logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"prompt":     promptKey,
		"user_id":    userID,
		"date":       date.String(),
	}).Debug("Attendance session opened")
	return s
}

// Get looks a session up by id. Finished sessions stay retrievable until the
// next Sweep so late clicks get a precise error.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Len is the number of tracked sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Sweep forgets finished and expired sessions and returns how many were dropped.
func (m *SessionManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	dropped := 0
	for id, s := range m.byID {
		if !s.finished() {
			continue
		}
		delete(m.byID, id)
		key := sessionKey{promptKey: s.promptKey, userID: s.userID}
		if m.byPrompt[key] == s {
			delete(m.byPrompt, key)
		}
		dropped++
	}
	if dropped > 0 {
		m.logger.WithField("dropped", dropped).Debug("Swept attendance sessions")
	}
	return dropped
}
