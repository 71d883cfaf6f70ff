package flows

import "time"

// AccountRecord is the flow-local account model. The engine converts
// between this and its public account type at the boundary.
type AccountRecord struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	Status       uint8

	FailedAttempts    int
	LockUntil         *time.Time
	OTPSecret         string
	ResetToken        string
	ResetTokenExpires *time.Time
	LastLogin         *time.Time
}

// RefreshRecord is the flow-local refresh-token record.
type RefreshRecord struct {
	ID        string
	AccountID string
	TokenHash [32]byte
	ExpiresAt time.Time
	CreatedAt time.Time
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Account      *AccountRecord
	OTPRequired  bool
	OTPCode      string
	AccessToken  string
	RefreshToken string
}
