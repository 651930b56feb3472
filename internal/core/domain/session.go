package domain

import "time"

// Session is the locally persisted record of the authenticated user.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	LastActivity time.Time `json:"last_activity"`
}

// Expired reports whether the session has been idle for longer than timeout.
// A session without recorded activity is always expired.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	if s == nil || s.UserID == "" || s.LastActivity.IsZero() {
		return true
	}
	return now.Sub(s.LastActivity) > timeout
}

// AuthStatus is the tag of an AuthState.
type AuthStatus string

const (
	AuthLoading   AuthStatus = "loading"
	AuthLoggedIn  AuthStatus = "logged_in"
	AuthLoggedOut AuthStatus = "logged_out"
	AuthError     AuthStatus = "error"
)

// AuthState is the current authentication state of the client.
// User and Role are set only for AuthLoggedIn, Message only for AuthError.
type AuthState struct {
	Status  AuthStatus `json:"status"`
	User    *User      `json:"user,omitempty"`
	Role    Role       `json:"role,omitempty"`
	Message string     `json:"message,omitempty"`
}

func LoadingState() AuthState { return AuthState{Status: AuthLoading} }

func LoggedOutState() AuthState { return AuthState{Status: AuthLoggedOut} }

func LoggedInState(u *User) AuthState {
	return AuthState{Status: AuthLoggedIn, User: u, Role: u.Role}
}

func ErrorState(msg string) AuthState {
	return AuthState{Status: AuthError, Message: msg}
}

// IsLoggedInAs reports whether the state is LoggedIn for the given user id.
func (s AuthState) IsLoggedInAs(userID string) bool {
	return s.Status == AuthLoggedIn && s.User != nil && s.User.ID == userID
}
