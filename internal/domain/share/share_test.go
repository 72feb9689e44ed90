package share

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestTargetValidate(t *testing.T) {
	fileID := uuid.New()
	folderID := uuid.New()

	assert.ErrorIs(t, Target{}.Validate(), ErrTargetRequired)
	assert.ErrorIs(t, Target{FileID: &fileID, FolderID: &folderID}.Validate(), ErrTargetAmbiguous)
	assert.NoError(t, FileTarget(fileID).Validate())
	assert.NoError(t, FolderTarget(folderID).Validate())
	assert.True(t, FileTarget(fileID).IsFile())
	assert.False(t, FolderTarget(folderID).IsFile())
}

func TestEvaluatePrecedence(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	member := uuid.New()
	stranger := uuid.New()

	tests := []struct {
		name   string
		share  Share
		caller Caller
		want   State
		reason string
	}{
		{
			name:   "inactive wins over everything",
			share:  Share{IsActive: false, ExpiresAt: &past, PasswordHash: "h", AllowedUsers: []uuid.UUID{member}},
			want:   StateInactive,
			reason: ReasonInactive,
		},
		{
			name:   "expired wins over password",
			share:  Share{IsActive: true, ExpiresAt: &past, PasswordHash: "h"},
			want:   StateExpired,
			reason: ReasonExpired,
		},
		{
			name:  "password prompt before allow-list",
			share: Share{IsActive: true, ExpiresAt: &future, PasswordHash: "h", AllowedUsers: []uuid.UUID{member}},
			want:  StatePasswordRequired,
		},
		{
			name:   "verified password then allow-list denies stranger",
			share:  Share{IsActive: true, PasswordHash: "h", AllowedUsers: []uuid.UUID{member}},
			caller: Caller{UserID: &stranger, PasswordVerified: true},
			want:   StateNotAuthorized,
			reason: ReasonNotAuthorized,
		},
		{
			name:   "allow-list denies anonymous",
			share:  Share{IsActive: true, AllowedUsers: []uuid.UUID{member}},
			want:   StateNotAuthorized,
			reason: ReasonNotAuthorized,
		},
		{
			name:   "allow-list admits member",
			share:  Share{IsActive: true, AllowedUsers: []uuid.UUID{member}},
			caller: Caller{UserID: &member},
			want:   StateGranted,
		},
		{
			name:  "open link",
			share: Share{IsActive: true},
			want:  StateGranted,
		},
		{
			name:   "verified password grants",
			share:  Share{IsActive: true, ExpiresAt: &future, PasswordHash: "h"},
			caller: Caller{PasswordVerified: true},
			want:   StateGranted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(&tt.share, tt.caller, now)
			assert.Equal(t, tt.want, d.State)
			assert.Equal(t, tt.reason, d.Reason)
			assert.Equal(t, tt.want == StateGranted, d.Granted())
		})
	}
}

func TestEvaluateExpiryBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := &Share{IsActive: true, ExpiresAt: &now}

	assert.Equal(t, StateGranted, Evaluate(s, Caller{}, now).State)
	assert.Equal(t, StateExpired, Evaluate(s, Caller{}, now.Add(time.Nanosecond)).State)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "expired", StateExpired.String())
	assert.Equal(t, "password_required", StatePasswordRequired.String())
	assert.Equal(t, "unknown", State(99).String())
}
