package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"quarters/portal/internal/gateway"
	"quarters/portal/internal/localstore"
	"quarters/portal/internal/models"
	"quarters/portal/internal/notify"
	"quarters/portal/internal/session"
)

// UserService manages the administrative user list.
type UserService struct {
	gw       gateway.UserGateway
	local    localstore.Store
	sessions *session.Store
	notifier notify.Notifier
	domain   string
	log      zerolog.Logger
	now      func() time.Time

	mu sync.Mutex
}

func NewUserService(
	gw gateway.UserGateway,
	local localstore.Store,
	sessions *session.Store,
	notifier notify.Notifier,
	domain string,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		gw:       gw,
		local:    local,
		sessions: sessions,
		notifier: notifier,
		domain:   domain,
		log:      log,
		now:      time.Now,
	}
}

type NewUser struct {
	Name       string
	Email      string
	Role       models.UserRole
	Department string
}

type UserUpdate struct {
	Name       *string
	Role       *models.UserRole
	Department *string
}

// List returns users matching search over name, email, role and
// department. An unreachable backend falls back to the local list.
func (s *UserService) List(ctx context.Context, search string) ([]models.ManagedUser, error) {
	users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return users, nil
	}
	out := make([]models.ManagedUser, 0, len(users))
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), search) ||
			strings.Contains(strings.ToLower(u.Email), search) ||
			strings.Contains(string(u.Role), search) ||
			strings.Contains(strings.ToLower(u.Department), search) {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *UserService) load(ctx context.Context) ([]models.ManagedUser, error) {
	if !s.sessions.Remote() {
		return s.loadLocal(ctx)
	}

	records, err := s.gw.ListUsers(ctx)
	if err != nil {
		if !errors.Is(err, gateway.ErrUnreachable) {
			return nil, err
		}
		s.log.Warn().Err(err).Msg("list users unreachable, using local list")
		s.notify(ctx, notify.LevelWarning, "Failed to fetch users from database, using demo data")
		return s.loadLocal(ctx)
	}

	users := make([]models.ManagedUser, 0, len(records))
	for _, r := range records {
		users = append(users, managedFromRecord(r))
	}
	return users, nil
}

func (s *UserService) loadLocal(ctx context.Context) ([]models.ManagedUser, error) {
	var users []models.ManagedUser
	err := localstore.GetJSON(ctx, s.local, localstore.KeyUsers, &users)
	switch {
	case errors.Is(err, localstore.ErrNotFound):
		return seedUsers(s.domain), nil
	case errors.Is(err, localstore.ErrCorrupt):
		s.log.Warn().Err(err).Msg("stored users unreadable, using demo users")
		return seedUsers(s.domain), nil
	case err != nil:
		return nil, fmt.Errorf("load local users: %w", err)
	}
	return users, nil
}

func (s *UserService) saveLocal(ctx context.Context, users []models.ManagedUser) {
	if err := localstore.SetJSON(ctx, s.local, localstore.KeyUsers, users); err != nil {
		s.log.Error().Err(err).Msg("write local users failed")
	}
}

func (s *UserService) Add(ctx context.Context, in NewUser) (models.ManagedUser, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Department = strings.TrimSpace(in.Department)
	if in.Name == "" || in.Email == "" || !in.Role.Valid() {
		return models.ManagedUser{}, ErrInvalidInput
	}
	if !strings.HasSuffix(in.Email, s.domain) || len(in.Email) == len(s.domain) {
		return models.ManagedUser{}, ErrInvalidDomain
	}
	if in.Role == models.UserRoleDepartment && in.Department == "" {
		return models.ManagedUser{}, ErrInvalidInput
	}
	if in.Role != models.UserRoleDepartment {
		in.Department = ""
	}

	user := models.ManagedUser{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Email:      in.Email,
		Role:       in.Role,
		Department: in.Department,
		CreatedAt:  s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions.Remote() {
		err := s.gw.InsertUser(ctx, gateway.UserRecord{
			ID:         user.ID,
			Name:       user.Name,
			Email:      user.Email,
			Role:       user.Role,
			Department: user.Department,
			CreatedAt:  user.CreatedAt,
		})
		if gateway.Code(err) == gateway.CodeUniqueViolation {
			err = fmt.Errorf("%w: %w", ErrDuplicateEmail, err)
		}
		if err != nil {
			s.notify(ctx, notify.LevelError, "Failed to add user")
			return models.ManagedUser{}, err
		}
		s.notify(ctx, notify.LevelSuccess, "User added successfully")
		return user, nil
	}

	users, err := s.loadLocal(ctx)
	if err != nil {
		return models.ManagedUser{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, user.Email) {
			return models.ManagedUser{}, ErrDuplicateEmail
		}
	}
	users = append([]models.ManagedUser{user}, users...)
	s.saveLocal(ctx, users)
	s.notify(ctx, notify.LevelSuccess, "User added successfully")
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, in UserUpdate) (models.ManagedUser, error) {
	if in.Role != nil && !in.Role.Valid() {
		return models.ManagedUser{}, ErrInvalidInput
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return models.ManagedUser{}, ErrInvalidInput
		}
		in.Name = &name
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.load(ctx)
	if err != nil {
		return models.ManagedUser{}, err
	}
	idx := -1
	for i := range users {
		if users[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.ManagedUser{}, ErrUserNotFound
	}

	updated := users[idx]
	if in.Name != nil {
		updated.Name = *in.Name
	}
	if in.Role != nil {
		updated.Role = *in.Role
	}
	if in.Department != nil {
		updated.Department = strings.TrimSpace(*in.Department)
	}
	if updated.Role != models.UserRoleDepartment {
		updated.Department = ""
	} else if updated.Department == "" {
		return models.ManagedUser{}, ErrInvalidInput
	}

	if s.sessions.Remote() {
		role := updated.Role
		dept := updated.Department
		err := s.gw.UpdateUser(ctx, id, gateway.UserPatch{Name: in.Name, Role: &role, Department: &dept})
		if errors.Is(err, gateway.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		if err != nil {
			s.notify(ctx, notify.LevelError, "Failed to update user")
			return models.ManagedUser{}, err
		}
	} else {
		users[idx] = updated
		s.saveLocal(ctx, users)
	}

	s.notify(ctx, notify.LevelSuccess, "User updated successfully")
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sessions.Remote() {
		err := s.gw.DeleteUser(ctx, id)
		if errors.Is(err, gateway.ErrNotFound) {
			err = fmt.Errorf("%w: %w", ErrUserNotFound, err)
		}
		if err != nil {
			s.notify(ctx, notify.LevelError, "Failed to delete user")
			return err
		}
		s.notify(ctx, notify.LevelSuccess, "User deleted successfully")
		return nil
	}

	users, err := s.loadLocal(ctx)
	if err != nil {
		return err
	}
	kept := users[:0]
	for _, u := range users {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return ErrUserNotFound
	}
	s.saveLocal(ctx, kept)
	s.notify(ctx, notify.LevelSuccess, "User deleted successfully")
	return nil
}

func (s *UserService) notify(ctx context.Context, level notify.Level, msg string) {
	if s.notifier == nil {
		return
	}
	n := notify.Notification{Level: level, Message: msg, At: s.now()}
	if user, _, ok := s.sessions.Current(); ok {
		n.UserID = user.ID
	}
	s.notifier.Notify(ctx, n)
}

func managedFromRecord(r gateway.UserRecord) models.ManagedUser {
	name := r.Name
	if name == "" {
		name = nameFromEmail(r.Email)
	}
	return models.ManagedUser{
		ID:         r.ID,
		Name:       name,
		Email:      r.Email,
		Role:       r.Role,
		Department: r.Department,
		CreatedAt:  r.CreatedAt,
	}
}

// nameFromEmail turns "john.doe@x" into "John Doe".
func nameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	words := strings.FieldsFunc(local, func(r rune) bool { return !unicode.IsLetter(r) })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
