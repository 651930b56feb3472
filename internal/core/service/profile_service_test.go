package service

import (
	"context"
	"errors"
	"testing"

	"github.com/tumme/course-system/internal/core/domain"
)

func TestProfileService_CurrentProfile(t *testing.T) {
	users := newStubUserRepo()
	svc := NewProfileService(users)
	ctx := context.Background()

	student, err := users.CreateAccount(ctx, &domain.Account{
		User:    &domain.User{Email: "ana@example.com", Role: domain.RoleStudent},
		Student: &domain.Student{FirstName: "Ana", LastName: "Lopez", Level: domain.LevelA1},
	})
	if err != nil {
		t.Fatalf("seed student: %v", err)
	}
	teacher, err := users.CreateAccount(ctx, &domain.Account{
		User:    &domain.User{Email: "tom@example.com", Role: domain.RoleTeacher},
		Teacher: &domain.Teacher{FirstName: "Tom", LastName: "Diaz"},
	})
	if err != nil {
		t.Fatalf("seed teacher: %v", err)
	}

	got, err := svc.CurrentProfile(ctx, student.User)
	if err != nil {
		t.Fatalf("student profile: %v", err)
	}
	if got.Student == nil || got.Student.FirstName != "Ana" || got.Teacher != nil {
		t.Fatalf("unexpected student account %+v", got)
	}

	got, err = svc.CurrentProfile(ctx, teacher.User)
	if err != nil {
		t.Fatalf("teacher profile: %v", err)
	}
	if got.Teacher == nil || got.Teacher.LastName != "Diaz" || got.Student != nil {
		t.Fatalf("unexpected teacher account %+v", got)
	}
}

func TestProfileService_CurrentProfile_Errors(t *testing.T) {
	svc := NewProfileService(newStubUserRepo())
	ctx := context.Background()

	if _, err := svc.CurrentProfile(ctx, nil); !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("nil user: expected ErrNoSession, got %v", err)
	}
	orphan := &domain.User{ID: "user-9", Role: domain.RoleStudent}
	if _, err := svc.CurrentProfile(ctx, orphan); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	odd := &domain.User{ID: "user-10", Role: "ADMIN"}
	if _, err := svc.CurrentProfile(ctx, odd); err == nil {
		t.Fatal("expected error for unknown role")
	}
}
