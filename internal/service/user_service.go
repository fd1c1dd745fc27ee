package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/course-marketplace/internal/apperr"
	"github.com/iliyamo/course-marketplace/internal/model"
	"github.com/iliyamo/course-marketplace/internal/repository"
)

var genders = map[string]bool{"male": true, "female": true, "other": true}

// ProfileInput is a self-service profile edit; nil fields are unchanged.
type ProfileInput struct {
	Name        *string
	Gender      *string
	DateOfBirth *time.Time
	Bio         *string
	AvatarURL   *string
}

// UserService serves profiles and the admin user directory.
type UserService struct {
	users    UserStore
	sessions SessionStore
}

func NewUserService(users UserStore, sessions SessionStore) *UserService {
	return &UserService{users: users, sessions: sessions}
}

// Get returns the public view of a user.
func (s *UserService) Get(ctx context.Context, id string) (*model.PublicUser, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	pub := u.Public()
	return &pub, nil
}

// UpdateProfile applies in to user id and returns the result.
func (s *UserService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*model.PublicUser, error) {
	if in.Name != nil {
		n := strings.TrimSpace(*in.Name)
		if n == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		in.Name = &n
	}
	if in.Gender != nil {
		g := strings.ToLower(strings.TrimSpace(*in.Gender))
		if !genders[g] {
			return nil, apperr.Validation("gender must be male, female or other")
		}
		in.Gender = &g
	}
	if in.DateOfBirth != nil && in.DateOfBirth.After(time.Now()) {
		return nil, apperr.Validation("date of birth is in the future")
	}
	err := s.users.UpdateProfile(ctx, id, repository.ProfileUpdate{
		Name:        in.Name,
		Gender:      in.Gender,
		DateOfBirth: in.DateOfBirth,
		Bio:         in.Bio,
		AvatarURL:   in.AvatarURL,
	})
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	return s.Get(ctx, id)
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, p model.Page) ([]model.PublicUser, model.Pagination, error) {
	p = pageOf(p)
	out, total, err := s.users.List(ctx, p)
	if err != nil {
		return nil, model.Pagination{}, apperr.Internal("list users", err)
	}
	return out, model.NewPagination(total, p), nil
}

// Delete removes a user.  An admin cannot delete their own account.
func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperr.Validation("you cannot delete your own account")
	}
	return storeErr(s.users.Delete(ctx, id), "user not found")
}

// ToggleStatus flips a user between active and inactive.  Deactivation
// ends every session of the user.
func (s *UserService) ToggleStatus(ctx context.Context, actorID, id string) (*model.PublicUser, error) {
	if actorID == id {
		return nil, apperr.Validation("you cannot change your own status")
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	next := model.StatusInactive
	if !u.IsActive() {
		next = model.StatusActive
	}
	if err := s.users.SetStatus(ctx, id, next); err != nil {
		return nil, storeErr(err, "user not found")
	}
	if next == model.StatusInactive {
		if _, err := s.sessions.DeleteAllForUser(ctx, id); err != nil {
			return nil, apperr.Internal("end sessions", err)
		}
	}
	u.StatusAccount = next
	pub := u.Public()
	return &pub, nil
}
