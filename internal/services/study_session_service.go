package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SAP-F-2025/study-buddy-service/internal/events"
	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
)

type activeSession struct {
	actor      Actor
	session    *models.Session
	controller *timer.Controller
	startedAt  time.Time
}

// endedSession is the last finished session on a device, replayed by a repeated End
type endedSession struct {
	username string
	view     *SessionView
}

type studySessionService struct {
	mu       sync.Mutex
	sessions map[string]*activeSession // keyed by device id
	pending  map[string]struct{}       // devices whose session is still being prepared
	ended    map[string]*endedSession

	presence          PresenceService
	history           HistoryService
	publisher         events.Publisher
	clock             timer.Clock
	heartbeatInterval time.Duration
	logger            *slog.Logger
}

type StudySessionOption func(*studySessionService)

func WithSessionClock(clock timer.Clock) StudySessionOption {
	return func(s *studySessionService) { s.clock = clock }
}

func WithSessionHeartbeatInterval(d time.Duration) StudySessionOption {
	return func(s *studySessionService) { s.heartbeatInterval = d }
}

// NewStudySessionService keeps one timer per device. history may be nil, in which
// case finished sessions are not recorded.
func NewStudySessionService(presence PresenceService, history HistoryService, publisher events.Publisher, logger *slog.Logger, opts ...StudySessionOption) StudySessionService {
	s := &studySessionService{
		sessions:          make(map[string]*activeSession),
		pending:           make(map[string]struct{}),
		ended:             make(map[string]*endedSession),
		presence:          presence,
		history:           history,
		publisher:         publisher,
		clock:             timer.RealClock{},
		heartbeatInterval: timer.DefaultHeartbeatInterval,
		logger:            logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Begin installs a paused timer for session on the actor's device
func (s *studySessionService) Begin(ctx context.Context, actor Actor, session *models.Session) (*SessionView, error) {
	return s.Start(ctx, actor, func(context.Context) (*models.Session, error) {
		return session, nil
	})
}

// Start reserves the actor's device, then runs prepare and installs the session it
// returns. A second Start on the same device fails with ErrSessionActive without
// running prepare, so presence writes made by prepare are never orphaned.
func (s *studySessionService) Start(ctx context.Context, actor Actor, prepare SessionPreparer) (*SessionView, error) {
	s.mu.Lock()
	_, active := s.sessions[actor.DeviceID]
	_, reserved := s.pending[actor.DeviceID]
	if active || reserved {
		s.mu.Unlock()
		return nil, ErrSessionActive
	}
	s.pending[actor.DeviceID] = struct{}{}
	s.mu.Unlock()

	session, err := prepare(ctx)
	if err != nil {
		s.mu.Lock()
		delete(s.pending, actor.DeviceID)
		s.mu.Unlock()
		return nil, err
	}

	return s.install(ctx, actor, session), nil
}

func (s *studySessionService) install(ctx context.Context, actor Actor, session *models.Session) *SessionView {
	active := &activeSession{
		actor:     actor,
		session:   session,
		startedAt: s.clock.Now(),
	}
	active.controller = timer.NewController(session.DurationMinutes, timer.Hooks{
		OnHeartbeat: func(ctx context.Context) {
			s.presence.Heartbeat(ctx, actor.Username, session)
		},
		OnExpire: func(ctx context.Context, snap timer.Snapshot) {
			s.logger.Info("Study session completed",
				"classroom_id", session.Classroom.ID,
				"username", actor.Username,
				"studied_seconds", snap.Studied)
			events.Emit(ctx, s.publisher, s.logger, events.SessionExpired, map[string]interface{}{
				"classroom_id": session.Classroom.ID,
				"username":     actor.Username,
				"duration":     session.DurationMinutes,
			})
		},
	},
		timer.WithClock(s.clock),
		timer.WithHeartbeatInterval(s.heartbeatInterval),
		timer.WithLogger(s.logger),
	)

	s.mu.Lock()
	delete(s.pending, actor.DeviceID)
	delete(s.ended, actor.DeviceID)
	s.sessions[actor.DeviceID] = active
	s.mu.Unlock()

	s.logger.Info("Study session started",
		"classroom_id", session.Classroom.ID,
		"username", actor.Username,
		"buddy", session.BuddyName(),
		"duration", session.DurationMinutes)

	events.Emit(ctx, s.publisher, s.logger, events.SessionStarted, map[string]interface{}{
		"classroom_id": session.Classroom.ID,
		"username":     actor.Username,
		"buddy":        session.BuddyName(),
		"duration":     session.DurationMinutes,
	})

	return active.view(active.controller.Snapshot())
}

func (s *studySessionService) Current(actor Actor) (*SessionView, error) {
	active, err := s.lookup(actor)
	if err != nil {
		return nil, err
	}
	return active.view(active.controller.Snapshot()), nil
}

func (s *studySessionService) Toggle(ctx context.Context, actor Actor) (*SessionView, error) {
	active, err := s.lookup(actor)
	if err != nil {
		return nil, err
	}
	snap, err := active.controller.Toggle(ctx)
	if err != nil {
		return nil, wrapTimerError(err)
	}
	return active.view(snap), nil
}

func (s *studySessionService) Reset(actor Actor) (*SessionView, error) {
	active, err := s.lookup(actor)
	if err != nil {
		return nil, err
	}
	snap, err := active.controller.Reset()
	if err != nil {
		return nil, wrapTimerError(err)
	}
	return active.view(snap), nil
}

// End stops the timer, withdraws the presence record and records the session.
// Storage failures are logged and never block ending. Ending again returns the
// ended view and withdraws the record once more; only a device that never had
// a session gets ErrNoActiveSession.
func (s *studySessionService) End(ctx context.Context, actor Actor) (*SessionView, error) {
	s.mu.Lock()
	active, ok := s.sessions[actor.DeviceID]
	if !ok || active.actor.Username != actor.Username {
		last, found := s.ended[actor.DeviceID]
		s.mu.Unlock()
		if !found || last.username != actor.Username {
			return nil, ErrNoActiveSession
		}
		s.presence.EndSession(ctx, actor.Username, last.view.Session.Classroom.ID)
		view := *last.view
		return &view, nil
	}
	delete(s.sessions, actor.DeviceID)
	s.mu.Unlock()

	view := s.finish(ctx, active)

	s.mu.Lock()
	if _, restarted := s.sessions[actor.DeviceID]; !restarted {
		s.ended[actor.DeviceID] = &endedSession{username: actor.Username, view: view}
	}
	s.mu.Unlock()

	return view, nil
}

// Shutdown ends every session still held
func (s *studySessionService) Shutdown(ctx context.Context) {
	s.mu.Lock()
	remaining := make([]*activeSession, 0, len(s.sessions))
	for id, active := range s.sessions {
		remaining = append(remaining, active)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, active := range remaining {
		s.finish(ctx, active)
	}
	if len(remaining) > 0 {
		s.logger.Info("Ended open study sessions", "count", len(remaining))
	}
}

func (s *studySessionService) finish(ctx context.Context, active *activeSession) *SessionView {
	final := active.controller.End()
	session := active.session
	username := active.actor.Username

	s.presence.EndSession(ctx, username, session.Classroom.ID)

	outcome := models.OutcomeEnded
	if final.Completed {
		outcome = models.OutcomeCompleted
	}

	if s.history != nil {
		log := &models.StudyLog{
			ClassroomID:    session.Classroom.ID,
			Username:       username,
			PlannedMinutes: session.DurationMinutes,
			StudiedSeconds: final.Studied,
			Outcome:        outcome,
			StartedAt:      active.startedAt,
			EndedAt:        s.clock.Now(),
		}
		if buddy := session.BuddyName(); buddy != "" {
			log.Buddy = &buddy
		}
		if err := s.history.Record(ctx, log); err != nil {
			s.logger.WarnContext(ctx, "Failed to record study session", "username", username, "error", err)
		}
	}

	events.Emit(ctx, s.publisher, s.logger, events.SessionEnded, map[string]interface{}{
		"classroom_id":    session.Classroom.ID,
		"username":        username,
		"outcome":         string(outcome),
		"studied_seconds": final.Studied,
	})

	s.logger.Info("Study session ended",
		"classroom_id", session.Classroom.ID,
		"username", username,
		"outcome", outcome)

	view := active.view(final)
	view.State = timer.StateEnded
	view.Running = false
	return view
}

func (s *studySessionService) lookup(actor Actor) (*activeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	active, ok := s.sessions[actor.DeviceID]
	if !ok || active.actor.Username != actor.Username {
		return nil, ErrNoActiveSession
	}
	return active, nil
}

func (a *activeSession) view(snap timer.Snapshot) *SessionView {
	startedAt := a.startedAt
	return &SessionView{
		State:            snap.State,
		RemainingSeconds: snap.Remaining,
		TotalSeconds:     snap.Total,
		Running:          snap.Running,
		Session:          a.session,
		StartedAt:        &startedAt,
	}
}

// wrapTimerError maps countdown state errors onto the conflict category
func wrapTimerError(err error) error {
	return fmt.Errorf("%w: %v", ErrConflict, err)
}
