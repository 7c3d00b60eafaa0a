package status

import (
	"errors"

	"printqueue/internal/store"
)

var (
	ErrInvalidInput   = errors.New("queue: name and student id are required")
	ErrInvalidDesk    = errors.New("queue: unknown desk")
	ErrNothingWaiting = errors.New("queue: no one in queue")
	ErrNothingServing = errors.New("queue: no one is currently being served")
	ErrClaimConflict  = errors.New("queue: could not claim a waiting entry")
	ErrLockTimeout    = errors.New("desk lock: timed out waiting for lock")

	ErrInvalidRange = errors.New("analytics: invalid date range")

	ErrUserExists   = errors.New("user: an account with this email already exists")
	ErrInvalidEmail = errors.New("user: invalid email address")
	ErrInvalidRole  = errors.New("user: unknown role")
)

// Store errors, re-exported so callers above the services need only this
// package.
var (
	ErrNotFound = store.ErrNotFound
	ErrConflict = store.ErrConflict
)
