package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/SAP-F-2025/study-buddy-service/internal/events"
	"github.com/SAP-F-2025/study-buddy-service/internal/models"
	"github.com/SAP-F-2025/study-buddy-service/internal/storage"
	"github.com/SAP-F-2025/study-buddy-service/internal/timer"
	"github.com/SAP-F-2025/study-buddy-service/internal/validator"
)

const (
	inviteCodeLength  = 8
	inviteCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idSuffixLength    = 9
	idSuffixCharset   = "abcdefghijklmnopqrstuvwxyz0123456789"
)

type classroomService struct {
	backend   storage.Backend
	publisher events.Publisher
	clock     timer.Clock
	logger    *slog.Logger
	validator *validator.Validator
}

func NewClassroomService(backend storage.Backend, publisher events.Publisher, clock timer.Clock, logger *slog.Logger, validator *validator.Validator) ClassroomService {
	return &classroomService{
		backend:   backend,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		validator: validator,
	}
}

func (s *classroomService) Create(ctx context.Context, actor Actor, req *CreateClassroomRequest) (*models.Classroom, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Validate(req); err != nil {
		return nil, wrapValidation(err)
	}

	s.logger.Info("Creating classroom", "owner", actor.Username, "name", req.Name)

	now := s.clock.Now()
	suffix, err := randomString(idSuffixCharset, idSuffixLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate classroom id: %w", err)
	}
	code, err := randomString(inviteCodeCharset, inviteCodeLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	classroom := &models.Classroom{
		ID:         fmt.Sprintf("%d-%s", now.UnixMilli(), suffix),
		Name:       req.Name,
		Owner:      actor.Username,
		InviteCode: code,
		Members:    []string{actor.Username},
		CreatedAt:  now.UnixMilli(),
	}

	store := s.backend.ForDevice(actor.DeviceID)

	list, err := s.loadClassList(ctx, store, actor.Username)
	if err != nil {
		return nil, err
	}
	list = append(list, *classroom)
	if err := s.saveClassList(ctx, store, actor.Username, list); err != nil {
		return nil, err
	}

	if err := s.saveClassroom(ctx, store, classroom); err != nil {
		return nil, err
	}
	if err := store.Set(ctx, models.InviteKey(code), classroom.ID, true); err != nil {
		return nil, fmt.Errorf("failed to save invite code: %w", err)
	}

	events.Emit(ctx, s.publisher, s.logger, events.ClassroomCreated, map[string]interface{}{
		"classroom_id": classroom.ID,
		"owner":        classroom.Owner,
		"name":         classroom.Name,
	})

	s.logger.Info("Classroom created", "classroom_id", classroom.ID, "owner", classroom.Owner)
	return classroom, nil
}

// JoinByCode adds the actor to the classroom behind an invite code.
// Membership writes are last-write-wins; two users joining at once may lose one update.
func (s *classroomService) JoinByCode(ctx context.Context, actor Actor, req *JoinClassroomRequest) (*models.Classroom, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.validator.Validate(req); err != nil {
		return nil, wrapValidation(err)
	}

	store := s.backend.ForDevice(actor.DeviceID)

	entry, err := store.Get(ctx, models.InviteKey(req.Code), true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve invite code: %w", err)
	}
	if entry == nil {
		return nil, ErrInvalidInviteCode
	}

	classroom, err := s.loadClassroom(ctx, store, entry.Value)
	if err != nil {
		return nil, err
	}
	if classroom == nil {
		return nil, ErrClassroomNotFound
	}
	if classroom.HasMember(actor.Username) {
		return nil, ErrAlreadyMember
	}

	classroom.AddMember(actor.Username)
	if err := s.saveClassroom(ctx, store, classroom); err != nil {
		return nil, err
	}

	list, err := s.loadClassList(ctx, store, actor.Username)
	if err != nil {
		return nil, err
	}
	list = upsertClass(list, *classroom)
	if err := s.saveClassList(ctx, store, actor.Username, list); err != nil {
		return nil, err
	}

	events.Emit(ctx, s.publisher, s.logger, events.ClassroomJoined, map[string]interface{}{
		"classroom_id": classroom.ID,
		"username":     actor.Username,
	})

	s.logger.Info("Joined classroom", "classroom_id", classroom.ID, "username", actor.Username)
	return classroom, nil
}

// Remove drops the classroom from the actor's list. Owners delete it for everyone,
// members only leave it.
func (s *classroomService) Remove(ctx context.Context, actor Actor, classroomID string) error {
	store := s.backend.ForDevice(actor.DeviceID)

	list, err := s.loadClassList(ctx, store, actor.Username)
	if err != nil {
		return err
	}
	trimmed := make([]models.Classroom, 0, len(list))
	for _, c := range list {
		if c.ID != classroomID {
			trimmed = append(trimmed, c)
		}
	}
	listed := len(trimmed) != len(list)

	classroom, err := s.loadClassroom(ctx, store, classroomID)
	if err != nil {
		return err
	}
	if classroom == nil && !listed {
		return ErrClassroomNotFound
	}

	if listed {
		if err := s.saveClassList(ctx, store, actor.Username, trimmed); err != nil {
			return err
		}
	}
	if classroom == nil {
		return nil
	}

	if classroom.IsOwner(actor.Username) {
		s.logger.Info("Deleting classroom", "classroom_id", classroomID, "owner", actor.Username)
		if err := store.Delete(ctx, models.ClassroomKey(classroomID), true); err != nil {
			return fmt.Errorf("failed to delete classroom: %w", err)
		}
		if err := store.Delete(ctx, models.InviteKey(classroom.InviteCode), true); err != nil {
			return fmt.Errorf("failed to delete invite code: %w", err)
		}
		events.Emit(ctx, s.publisher, s.logger, events.ClassroomRemoved, map[string]interface{}{
			"classroom_id": classroomID,
			"owner":        actor.Username,
		})
		return nil
	}

	if classroom.HasMember(actor.Username) {
		classroom.RemoveMember(actor.Username)
		if err := s.saveClassroom(ctx, store, classroom); err != nil {
			return err
		}
		s.logger.Info("Left classroom", "classroom_id", classroomID, "username", actor.Username)
	}
	return nil
}

// List returns the actor's classrooms, refreshed from the shared records where possible.
// Read failures degrade to the cached copy or an empty list.
func (s *classroomService) List(ctx context.Context, actor Actor) ([]*models.Classroom, error) {
	store := s.backend.ForDevice(actor.DeviceID)

	list, err := s.loadClassList(ctx, store, actor.Username)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to load classroom list", "username", actor.Username, "error", err)
		return []*models.Classroom{}, nil
	}

	result := make([]*models.Classroom, 0, len(list))
	for i := range list {
		cached := list[i]
		fresh, err := s.loadClassroom(ctx, store, cached.ID)
		if err != nil || fresh == nil {
			result = append(result, &cached)
			continue
		}
		result = append(result, fresh)
	}
	return result, nil
}

func (s *classroomService) Get(ctx context.Context, actor Actor, classroomID string) (*models.Classroom, error) {
	classroom, err := s.loadClassroom(ctx, s.backend.ForDevice(actor.DeviceID), classroomID)
	if err != nil {
		return nil, err
	}
	if classroom == nil {
		return nil, ErrClassroomNotFound
	}
	if !classroom.HasMember(actor.Username) {
		return nil, NewPermissionError(actor.Username, classroomID, "classroom", "read", "not a member")
	}
	return classroom, nil
}

func (s *classroomService) InviteCode(ctx context.Context, actor Actor, classroomID string) (string, error) {
	classroom, err := s.Get(ctx, actor, classroomID)
	if err != nil {
		return "", err
	}
	return classroom.InviteCode, nil
}

// ===== STORAGE HELPERS =====

func (s *classroomService) loadClassroom(ctx context.Context, store storage.Store, classroomID string) (*models.Classroom, error) {
	if strings.TrimSpace(classroomID) == "" {
		return nil, nil
	}
	entry, err := store.Get(ctx, models.ClassroomKey(classroomID), true)
	if err != nil {
		return nil, fmt.Errorf("failed to load classroom: %w", err)
	}
	if entry == nil {
		return nil, nil
	}
	var classroom models.Classroom
	if err := json.Unmarshal([]byte(entry.Value), &classroom); err != nil {
		return nil, fmt.Errorf("failed to decode classroom %s: %w", classroomID, err)
	}
	return &classroom, nil
}

func (s *classroomService) saveClassroom(ctx context.Context, store storage.Store, classroom *models.Classroom) error {
	data, err := json.Marshal(classroom)
	if err != nil {
		return fmt.Errorf("failed to marshal classroom: %w", err)
	}
	if err := store.Set(ctx, models.ClassroomKey(classroom.ID), string(data), true); err != nil {
		return fmt.Errorf("failed to save classroom: %w", err)
	}
	return nil
}

func (s *classroomService) loadClassList(ctx context.Context, store storage.Store, username string) ([]models.Classroom, error) {
	entry, err := store.Get(ctx, models.ClassesKey(username), false)
	if err != nil {
		return nil, fmt.Errorf("failed to load classroom list: %w", err)
	}
	if entry == nil {
		return []models.Classroom{}, nil
	}
	var list []models.Classroom
	if err := json.Unmarshal([]byte(entry.Value), &list); err != nil {
		return nil, fmt.Errorf("failed to decode classroom list: %w", err)
	}
	return list, nil
}

func (s *classroomService) saveClassList(ctx context.Context, store storage.Store, username string, list []models.Classroom) error {
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal classroom list: %w", err)
	}
	if err := store.Set(ctx, models.ClassesKey(username), string(data), false); err != nil {
		return fmt.Errorf("failed to save classroom list: %w", err)
	}
	return nil
}

func upsertClass(list []models.Classroom, classroom models.Classroom) []models.Classroom {
	for i := range list {
		if list[i].ID == classroom.ID {
			list[i] = classroom
			return list
		}
	}
	return append(list, classroom)
}

func randomString(charset string, n int) (string, error) {
	max := big.NewInt(int64(len(charset)))
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(charset[idx.Int64()])
	}
	return b.String(), nil
}
