package chat

import (
	"errors"
	"strings"
	"sync"
	"time"

	"tramway-server/internal/domain/timeline"
)

// SessionState is the observable state of one in-flight send. Modeling this
// explicitly (rather than ad hoc booleans) keeps the "which copy is
// authoritative right now" question answerable at every step.
type SessionState string

const (
	// StateIdle means no session is active on the branch.
	StateIdle SessionState = "idle"
	// StatePersistingUser means the user message write is in flight; it must
	// settle before a reply is requested.
	StatePersistingUser SessionState = "user_message_persisting"
	// StateStreaming means assistant tokens are accumulating in the
	// transient buffer.
	StateStreaming SessionState = "streaming_assistant_reply"
	// StateErrored means the stream failed; the buffer holds a user-visible
	// error text until the next send on the branch replaces the session.
	StateErrored SessionState = "error"
)

// ErrInvalidTransition is returned on a disallowed session state change.
var ErrInvalidTransition = errors.New("chat: invalid session state transition")

// ValidTransitions defines allowed session state changes. Reconciliation
// removes the session entirely, so there is no transition back to idle.
var ValidTransitions = map[SessionState][]SessionState{
	StatePersistingUser: {StateStreaming, StateErrored},
	StateStreaming:      {StateErrored},
	StateErrored:        {},
}

// CanTransitionTo checks whether the change is allowed.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	for _, t := range ValidTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Session is the transient buffer for one branch's in-flight send. It is
// bound to the branch it was started on; a branch switch starts a different
// session, so a late-finishing stream can never leak into another branch's
// buffer.
type Session struct {
	mu sync.Mutex

	projectID  string
	branchID   string // resolved, never ""
	userNodeID string
	state      SessionState
	buf        strings.Builder
	startedAt  time.Time
	// position the synthetic node claims: one past the persisted user node.
	nextPosition int
}

func newSession(projectID, branchID string) *Session {
	return &Session{
		projectID: projectID,
		branchID:  branchID,
		state:     StatePersistingUser,
		startedAt: time.Now(),
	}
}

// State returns the session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the accumulated transient text.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func (s *Session) transition(target SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.CanTransitionTo(target) {
		return ErrInvalidTransition
	}
	s.state = target
	return nil
}

func (s *Session) bindUserNode(node *timeline.Node) {
	s.mu.Lock()
	s.userNodeID = node.ID
	s.nextPosition = node.Position + 1
	s.mu.Unlock()
}

func (s *Session) appendChunk(chunk string) {
	s.mu.Lock()
	s.buf.WriteString(chunk)
	s.mu.Unlock()
}

// fail replaces the buffer content with a user-visible error string; the
// user's own message is untouched and nothing fabricated is persisted.
func (s *Session) fail(text string) {
	s.mu.Lock()
	s.buf.Reset()
	s.buf.WriteString(text)
	s.state = StateErrored
	s.mu.Unlock()
}

// SyntheticNode materializes the transient buffer as an in-progress
// assistant node for display overlay. Nil until the user node is persisted.
func (s *Session) SyntheticNode() *timeline.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userNodeID == "" {
		return nil
	}
	parentID := s.userNodeID
	return &timeline.Node{
		ID:          "pending_" + s.userNodeID,
		ProjectID:   s.projectID,
		BranchID:    s.branchID,
		ParentID:    &parentID,
		Kind:        timeline.NodeKindAssistantMessage,
		Position:    s.nextPosition,
		Message:     &timeline.MessagePayload{Role: timeline.RoleAssistant, Text: s.buf.String()},
		IsStreaming: s.state == StateStreaming,
		CreatedAt:   s.startedAt,
	}
}
