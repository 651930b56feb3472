package service

import (
	"context"
	"fmt"

	"github.com/tumme/course-system/internal/core/domain"
	"github.com/tumme/course-system/internal/core/ports"
)

// ProfileService loads the role profile belonging to a session user.
type ProfileService struct {
	users ports.UserRepository
}

var _ ports.ProfileService = (*ProfileService)(nil)

func NewProfileService(users ports.UserRepository) *ProfileService {
	return &ProfileService{users: users}
}

func (s *ProfileService) CurrentProfile(ctx context.Context, user *domain.User) (*domain.Account, error) {
	if user == nil {
		return nil, domain.ErrNoSession
	}

	acct := &domain.Account{User: user}
	switch user.Role {
	case domain.RoleStudent:
		st, err := s.users.FindStudentByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("load student profile: %w", err)
		}
		acct.Student = st
	case domain.RoleTeacher:
		tc, err := s.users.FindTeacherByUserID(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("load teacher profile: %w", err)
		}
		acct.Teacher = tc
	default:
		return nil, fmt.Errorf("load profile: unknown role %q", user.Role)
	}
	return acct, nil
}
