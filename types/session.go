package types

// Session identifies the account on whose behalf an operation runs.
// It is passed explicitly to every service call that needs an actor.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// SessionFor builds the session of a logged in user.
func SessionFor(user User) Session {
	return Session{UserID: user.ID, Username: user.Username, Role: user.Role}
}
