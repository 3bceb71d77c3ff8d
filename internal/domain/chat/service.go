package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"tramway-server/internal/domain/timeline"
)

// FailureText is shown in place of the assistant reply when the stream
// breaks mid-flight. The conversation stays navigable; nothing is thrown at
// the renderer.
const FailureText = "The assistant encountered an issue while responding. Please try again."

// ErrStreamInProgress rejects a second concurrent send on the same branch.
var ErrStreamInProgress = errors.New("chat: a reply is already streaming on this branch")

// Service drives send-message lifecycles and overlays in-flight replies on
// resolved display paths.
type Service struct {
	timelines *timeline.Service
	repo      timeline.Repository
	provider  Provider
	log       zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session // resolved branch id -> active session
}

// NewService wires dependencies.
func NewService(timelines *timeline.Service, repo timeline.Repository, provider Provider, log zerolog.Logger) *Service {
	return &Service{
		timelines: timelines,
		repo:      repo,
		provider:  provider,
		log:       log.With().Str("component", "chat-service").Logger(),
		sessions:  make(map[string]*Session),
	}
}

// SessionState reports the send state machine for a branch; StateIdle when
// nothing is in flight.
func (s *Service) SessionState(ctx context.Context, projectID, branchID string) SessionState {
	key, err := s.resolveBranchKey(ctx, projectID, branchID)
	if err != nil {
		return StateIdle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[key]; ok {
		return sess.State()
	}
	return StateIdle
}

// DisplayPath resolves the branch's display path and, when a send is in
// flight (or failed and not yet retried), appends the synthetic in-progress
// assistant node. The durable store is never mutated by the overlay.
func (s *Service) DisplayPath(ctx context.Context, projectID, branchID string) ([]*timeline.Node, error) {
	snap, err := s.timelines.Snapshot(ctx, projectID)
	if err != nil {
		return nil, err
	}
	path, err := snap.ResolvePath(branchID)
	if err != nil {
		return nil, err
	}

	key := branchID
	if key == "" {
		key = snap.RootBranchID()
	}
	s.mu.Lock()
	sess := s.sessions[key]
	s.mu.Unlock()

	if sess == nil {
		return path, nil
	}
	synthetic := sess.SyntheticNode()
	if synthetic == nil {
		return path, nil
	}
	out := make([]*timeline.Node, 0, len(path)+1)
	out = append(out, path...)
	out = append(out, synthetic)
	return out, nil
}

// SendMessage persists the user's message, streams the assistant reply into
// a transient per-branch buffer, and reconciles against the durable store on
// completion. Validation and persistence faults are returned synchronously;
// mid-stream provider faults are reported through the observer and as
// overlay error text, never as an error return.
func (s *Service) SendMessage(ctx context.Context, projectID, branchID, text, userID string, obs StreamObserver) error {
	snap, err := s.timelines.Snapshot(ctx, projectID)
	if err != nil {
		return err
	}
	key := branchID
	if key == "" {
		key = snap.RootBranchID()
	}
	if key == "" {
		return fmt.Errorf("%w: project %s has no root branch", timeline.ErrNoParentNode, projectID)
	}

	// The resolved path ends at the newest visible node of the branch; for a
	// fresh branch with no own messages that is the branch-point node in the
	// parent branch, never the synthetic branch_root.
	path, err := snap.ResolvePath(key)
	if err != nil {
		return err
	}
	if len(path) == 0 {
		return fmt.Errorf("%w: branch %s resolves to an empty path", timeline.ErrNoParentNode, key)
	}
	parent := path[len(path)-1]

	sess := newSession(projectID, key)
	s.mu.Lock()
	if active, ok := s.sessions[key]; ok && active.State() != StateErrored {
		s.mu.Unlock()
		return ErrStreamInProgress
	}
	s.sessions[key] = sess
	s.mu.Unlock()

	userNode, err := s.repo.CreateMessageNode(ctx, timeline.CreateMessageParams{
		ProjectID: projectID,
		BranchID:  key,
		ParentID:  parent.ID,
		Role:      timeline.RoleUser,
		Text:      text,
		CreatedBy: userID,
	})
	if err != nil {
		s.removeSession(key, sess)
		return fmt.Errorf("persist user message: %w", err)
	}
	sess.bindUserNode(userNode)
	if _, err := s.timelines.Refresh(ctx, projectID); err != nil {
		s.log.Warn().Err(err).Str("project_id", projectID).Msg("refresh after user message failed")
	}
	if obs != nil {
		obs.OnUserMessage(userNode)
	}

	if err := sess.transition(StateStreaming); err != nil {
		s.removeSession(key, sess)
		return err
	}

	history := historyFromPath(path)
	history = append(history, Message{Role: timeline.RoleUser, Text: text})

	stream, err := s.provider.StreamReply(ctx, history)
	if err != nil {
		s.failSession(sess, obs, fmt.Errorf("open reply stream: %w", err))
		return nil
	}
	defer stream.Close()

	for {
		chunk, recvErr := stream.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				// Abandoned send: the viewer moved on, discard the session
				// so no buffer outlives the request.
				s.removeSession(key, sess)
				return nil
			}
			s.failSession(sess, obs, fmt.Errorf("stream reply: %w", recvErr))
			return nil
		}
		if chunk == "" {
			continue
		}
		sess.appendChunk(chunk)
		if obs != nil {
			obs.OnDelta(chunk)
		}
	}

	return s.reconcile(ctx, sess, obs)
}

// reconcile persists the completed reply and discards the transient buffer;
// the durable record is authoritative from here on.
func (s *Service) reconcile(ctx context.Context, sess *Session, obs StreamObserver) error {
	assistantNode, err := s.repo.CreateMessageNode(ctx, timeline.CreateMessageParams{
		ProjectID: sess.projectID,
		BranchID:  sess.branchID,
		ParentID:  sess.userNodeID,
		Role:      timeline.RoleAssistant,
		Text:      sess.Text(),
	})
	if err != nil {
		s.failSession(sess, obs, fmt.Errorf("persist assistant message: %w", err))
		return nil
	}

	// Drop the overlay before the refreshed snapshot lands so a reader never
	// sees the synthetic node and the persisted one at the same time.
	s.removeSession(sess.branchID, sess)
	if _, err := s.timelines.Refresh(ctx, sess.projectID); err != nil {
		s.log.Warn().Err(err).Str("project_id", sess.projectID).Msg("refresh after reply failed")
	}
	if obs != nil {
		obs.OnCompleted(assistantNode)
	}
	return nil
}

func (s *Service) failSession(sess *Session, obs StreamObserver, cause error) {
	s.log.Error().Err(cause).Str("branch_id", sess.branchID).Msg("streaming session failed")
	sess.fail(FailureText)
	if obs != nil {
		obs.OnError(cause)
	}
}

// removeSession deletes the session only if it is still the one registered
// for the branch, so a retry that replaced it is not clobbered.
func (s *Service) removeSession(key string, sess *Session) {
	s.mu.Lock()
	if s.sessions[key] == sess {
		delete(s.sessions, key)
	}
	s.mu.Unlock()
}

func (s *Service) resolveBranchKey(ctx context.Context, projectID, branchID string) (string, error) {
	if branchID != "" {
		return branchID, nil
	}
	snap, err := s.timelines.Snapshot(ctx, projectID)
	if err != nil {
		return "", err
	}
	return snap.RootBranchID(), nil
}

// historyFromPath projects the message nodes of a resolved path into LLM
// history turns, skipping structural nodes.
func historyFromPath(path []*timeline.Node) []Message {
	history := make([]Message, 0, len(path))
	for _, n := range path {
		if !n.Kind.HasMessage() || n.Message == nil {
			continue
		}
		history = append(history, Message{Role: n.Message.Role, Text: n.Message.Text})
	}
	return history
}
