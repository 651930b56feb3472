package domain

import (
	"strings"
	"time"
)

// Role is the immutable kind of account a User holds.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher
}

// Gender of a student profile.
type Gender string

const (
	GenderMale    Gender = "M"
	GenderFemale  Gender = "F"
	GenderNeutral Gender = "N"
)

// Level is a study level shared by students and courses.
type Level string

const (
	LevelP1  Level = "P1"
	LevelP2  Level = "P2"
	LevelP3  Level = "P3"
	LevelB1  Level = "B1"
	LevelB2  Level = "B2"
	LevelB3  Level = "B3"
	LevelA1  Level = "A1"
	LevelA2  Level = "A2"
	LevelA3  Level = "A3"
	LevelMS  Level = "MS"
	LevelPhD Level = "PhD"
)

// Levels lists every study level in curriculum order.
var Levels = []Level{
	LevelP1, LevelP2, LevelP3,
	LevelB1, LevelB2, LevelB3,
	LevelA1, LevelA2, LevelA3,
	LevelMS, LevelPhD,
}

// Valid reports whether l is a known study level.
func (l Level) Valid() bool {
	for _, known := range Levels {
		if l == known {
			return true
		}
	}
	return false
}

// User models an authenticated account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Student is the role-specific profile of a STUDENT user.
type Student struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth time.Time `json:"date_of_birth"`
	Gender      Gender    `json:"gender"`
	Level       Level     `json:"level"`
}

// Teacher is the role-specific profile of a TEACHER user.
type Teacher struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Account groups a user with the profile created alongside it.
// Exactly one of Student or Teacher is set, matching User.Role.
type Account struct {
	User    *User    `json:"user"`
	Student *Student `json:"student,omitempty"`
	Teacher *Teacher `json:"teacher,omitempty"`
}

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
