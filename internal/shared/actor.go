package shared

import "strconv"

// Role names stored on the users table.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// Actor identifies the authenticated principal performing an operation.
type Actor struct {
	ID   int64
	Role string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ActorFromSession extracts the actor from a session, if authenticated.
func ActorFromSession(sess *Session) (Actor, bool) {
	if sess == nil || sess.User() == "" {
		return Actor{}, false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		return Actor{}, false
	}
	return Actor{ID: id, Role: sess.Get("role")}, true
}
