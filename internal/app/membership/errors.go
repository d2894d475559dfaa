// internal/app/membership/errors.go
package membership

import "errors"

// Sentinel errors. Operations wrap them with context; match with errors.Is.
var (
	ErrUnauthenticated    = errors.New("sign in required")
	ErrForbidden          = errors.New("not allowed")
	ErrNotFound           = errors.New("not found")
	ErrInvalid            = errors.New("invalid input")
	ErrJoinRequestDecided = errors.New("join request has already been decided")
	ErrDuplicateRequest   = errors.New("a pending join request already exists")
	ErrAlreadyMember      = errors.New("already a member of this team")
	ErrHeadCoach          = errors.New("the head coach cannot be changed this way")
	ErrUserNotFound       = errors.New("user account not found")
	ErrRateLimited        = errors.New("too many requests")
)
