package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/study-buddy-service/internal/events"
	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/storage"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

// PresenceConfig tunes the presence service
type PresenceConfig struct {
	StaleAfter      time.Duration
	DefaultDuration int // minutes
}

type presenceService struct {
	store     storage.Store
	publisher events.Publisher
	clock     timer.Clock
	config    PresenceConfig
	logger    *slog.Logger
	validator *validator.Validator
}

// NewPresenceService works on the shared partition only; every presence key is shared.
func NewPresenceService(backend storage.Backend, publisher events.Publisher, clock timer.Clock, config PresenceConfig, logger *slog.Logger, validator *validator.Validator) PresenceService {
	if config.StaleAfter <= 0 {
		config.StaleAfter = models.DefaultStaleAfter
	}
	if config.DefaultDuration == 0 {
		config.DefaultDuration = 25
	}
	return &presenceService{
		store:     backend.Shared(),
		publisher: publisher,
		clock:     clock,
		config:    config,
		logger:    logger,
		validator: validator,
	}
}

// FindBuddies lists live classmates, then advertises the caller as looking.
// Only an invalid duration returns an error; storage failures land in the result.
func (s *presenceService) FindBuddies(ctx context.Context, username string, classroom *models.Classroom, selectedDuration int) (*FindResult, error) {
	duration, err := s.duration(selectedDuration)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	candidates, readErr := s.liveCandidates(ctx, classroom.ID, username, now)

	write := s.writeRecord(ctx, classroom.ID, &models.PresenceRecord{
		Username:   username,
		Status:     models.StatusLooking,
		Duration:   duration,
		LastActive: now.UnixMilli(),
	})

	events.Emit(ctx, s.publisher, s.logger, events.PresenceLooking, map[string]interface{}{
		"classroom_id": classroom.ID,
		"username":     username,
		"duration":     duration,
	})

	return &FindResult{Candidates: candidates, ReadErr: readErr, Write: write}, nil
}

// Candidate loads one live presence record
func (s *presenceService) Candidate(ctx context.Context, classroomID, username string) (*models.PresenceRecord, error) {
	entry, err := s.store.Get(ctx, models.PresenceKey(classroomID, username), true)
	if err != nil {
		return nil, fmt.Errorf("failed to load presence record: %w", err)
	}
	if entry == nil {
		return nil, ErrBuddyNotFound
	}
	var rec models.PresenceRecord
	if err := json.Unmarshal([]byte(entry.Value), &rec); err != nil {
		return nil, ErrBuddyNotFound
	}
	if rec.IsStale(s.clock.Now(), s.config.StaleAfter) {
		return nil, ErrBuddyNotFound
	}
	return &rec, nil
}

// StartStudySession pairs the caller with candidate. Only the caller's own key is written.
func (s *presenceService) StartStudySession(ctx context.Context, username string, classroom *models.Classroom, candidate *models.PresenceRecord, selectedDuration int) (*models.Session, storage.Result, error) {
	duration, err := s.duration(selectedDuration)
	if err != nil {
		return nil, storage.Result{}, err
	}
	if candidate == nil {
		return nil, storage.Result{}, fmt.Errorf("%w: buddy is required", ErrValidationFailed)
	}
	if candidate.Username == username {
		return nil, storage.Result{}, ErrSelfMatch
	}
	if candidate.IsStudying() {
		return nil, storage.Result{}, ErrBuddyBusy
	}

	buddy := *candidate
	session := &models.Session{
		Buddy:           &buddy,
		Classroom:       *classroom,
		DurationMinutes: max(candidate.Duration, duration),
	}

	s.logger.Info("Starting study session",
		"classroom_id", classroom.ID,
		"username", username,
		"buddy", candidate.Username,
		"duration", session.DurationMinutes)

	write := s.writeRecord(ctx, classroom.ID, &models.PresenceRecord{
		Username:   username,
		Status:     models.StatusStudying,
		Duration:   session.DurationMinutes,
		LastActive: s.clock.Now().UnixMilli(),
	})
	return session, write, nil
}

// StudyAlone builds a solo session without touching presence
func (s *presenceService) StudyAlone(classroom *models.Classroom, selectedDuration int) (*models.Session, error) {
	duration, err := s.duration(selectedDuration)
	if err != nil {
		return nil, err
	}
	return &models.Session{Classroom: *classroom, DurationMinutes: duration}, nil
}

func (s *presenceService) Heartbeat(ctx context.Context, username string, session *models.Session) storage.Result {
	return s.writeRecord(ctx, session.Classroom.ID, &models.PresenceRecord{
		Username:   username,
		Status:     models.StatusStudying,
		Duration:   session.DurationMinutes,
		LastActive: s.clock.Now().UnixMilli(),
	})
}

// EndSession removes the caller's record. Deleting a missing record succeeds.
func (s *presenceService) EndSession(ctx context.Context, username, classroomID string) storage.Result {
	return storage.SafeDelete(ctx, s.store, s.logger, models.PresenceKey(classroomID, username), true)
}

// liveCandidates returns fresh records other than the caller's, in listing order.
// A failed listing yields an empty list; a record that cannot be read is skipped.
func (s *presenceService) liveCandidates(ctx context.Context, classroomID, username string, now time.Time) ([]*models.PresenceRecord, error) {
	candidates := make([]*models.PresenceRecord, 0)

	keys, err := s.store.List(ctx, models.PresencePrefix(classroomID), true)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to list presence records", "classroom_id", classroomID, "error", err)
		return candidates, err
	}

	for _, key := range keys {
		entry, err := s.store.Get(ctx, key, true)
		if err != nil {
			s.logger.WarnContext(ctx, "Skipping presence record after read failure", "key", key, "error", err)
			continue
		}
		if entry == nil {
			continue
		}

		var rec models.PresenceRecord
		if err := json.Unmarshal([]byte(entry.Value), &rec); err != nil {
			s.logger.DebugContext(ctx, "Skipping unreadable presence record", "key", key)
			continue
		}
		if rec.IsStale(now, s.config.StaleAfter) {
			continue
		}
		if rec.Username == username {
			continue
		}
		candidates = append(candidates, &rec)
	}

	return candidates, nil
}

func (s *presenceService) writeRecord(ctx context.Context, classroomID string, rec *models.PresenceRecord) storage.Result {
	key := models.PresenceKey(classroomID, rec.Username)
	data, err := json.Marshal(rec)
	if err != nil {
		return storage.Result{Op: "set", Key: key, Err: err}
	}
	return storage.SafeSet(ctx, s.store, s.logger, key, string(data), true)
}

// duration applies the default and checks the allowed range
func (s *presenceService) duration(selected int) (int, error) {
	if selected == 0 {
		selected = s.config.DefaultDuration
	}
	if err := s.validator.ValidateStudyDuration(selected); err != nil {
		return 0, wrapValidation(err)
	}
	return selected, nil
}
