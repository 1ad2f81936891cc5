package domain

import "fmt"

// Access levels recognised by the core. Regular data entry requires a signed-in
// identity; destructive administrative overrides require AccessAdmin.
const (
	AccessStaff = 1
	AccessAdmin = 5
)

// Session is the explicit identity context passed into every core operation.
// It replaces ambient who-is-logged-in state: operations are functions of
// (store state, input, session).
type Session struct {
	PersonID string
	FullName string
	Access   int
}

// ErrAccessDenied reports an operation attempted below the required access level.
type ErrAccessDenied struct {
	Required int
	Actual   int
}

func (e ErrAccessDenied) Error() string {
	return fmt.Sprintf("access level %d required, have %d", e.Required, e.Actual)
}

// RequireAccess enforces that the session is signed in and meets min.
func (s Session) RequireAccess(min int) error {
	if s.PersonID == "" {
		return ErrAccessDenied{Required: min, Actual: 0}
	}
	if s.Access < min {
		return ErrAccessDenied{Required: min, Actual: s.Access}
	}
	return nil
}
