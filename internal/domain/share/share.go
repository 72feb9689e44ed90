package share

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	ReasonInactive      = "This link has been deactivated."
	ReasonExpired       = "This link has expired."
	ReasonNotAuthorized = "You are not authorized to access this link."
)

var (
	ErrTargetRequired  = errors.New("share must target a file or a folder")
	ErrTargetAmbiguous = errors.New("share cannot target both a file and a folder")
)

type Share struct {
	ID           uuid.UUID
	OwnerID      uuid.UUID
	FileID       *uuid.UUID
	FolderID     *uuid.UUID
	ExpiresAt    *time.Time
	PasswordHash string
	AllowedUsers []uuid.UUID
	AccessCount  int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Share) HasPassword() bool {
	return s.PasswordHash != ""
}

func (s *Share) Target() Target {
	return Target{FileID: s.FileID, FolderID: s.FolderID}
}

// Target names the single file or folder a share grants access to.
type Target struct {
	FileID   *uuid.UUID
	FolderID *uuid.UUID
}

func FileTarget(id uuid.UUID) Target {
	return Target{FileID: &id}
}

func FolderTarget(id uuid.UUID) Target {
	return Target{FolderID: &id}
}

func (t Target) Validate() error {
	switch {
	case t.FileID == nil && t.FolderID == nil:
		return ErrTargetRequired
	case t.FileID != nil && t.FolderID != nil:
		return ErrTargetAmbiguous
	}
	return nil
}

func (t Target) IsFile() bool {
	return t.FileID != nil
}

type CreateShareInput struct {
	OwnerID uuid.UUID
	Target  Target
}

// Caller is who is asking to open a share. UserID is nil for anonymous
// visitors. PasswordVerified reports whether the visitor's session holds a
// valid verification for the share's current password.
type Caller struct {
	UserID           *uuid.UUID
	SessionID        string
	PasswordVerified bool
}

type State int

const (
	StateGranted State = iota
	StateInactive
	StateExpired
	StatePasswordRequired
	StateNotAuthorized
)

func (s State) String() string {
	switch s {
	case StateGranted:
		return "granted"
	case StateInactive:
		return "inactive"
	case StateExpired:
		return "expired"
	case StatePasswordRequired:
		return "password_required"
	case StateNotAuthorized:
		return "not_authorized"
	default:
		return "unknown"
	}
}

type Decision struct {
	State  State
	Reason string
}

func (d Decision) Granted() bool {
	return d.State == StateGranted
}

// Evaluate applies the access checks in order: active, expiry, password,
// allow-list. The first failing check decides.
func Evaluate(s *Share, caller Caller, now time.Time) Decision {
	if !s.IsActive {
		return Decision{State: StateInactive, Reason: ReasonInactive}
	}

	if s.ExpiresAt != nil && now.After(*s.ExpiresAt) {
		return Decision{State: StateExpired, Reason: ReasonExpired}
	}

	if s.HasPassword() && !caller.PasswordVerified {
		return Decision{State: StatePasswordRequired}
	}

	if len(s.AllowedUsers) > 0 && !s.allows(caller.UserID) {
		return Decision{State: StateNotAuthorized, Reason: ReasonNotAuthorized}
	}

	return Decision{State: StateGranted}
}

func (s *Share) allows(userID *uuid.UUID) bool {
	if userID == nil {
		return false
	}
	for _, id := range s.AllowedUsers {
		if id == *userID {
			return true
		}
	}
	return false
}
