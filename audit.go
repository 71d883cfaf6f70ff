package authcore

// Audit event types emitted by the engine.
const (
	EventLogin            = "login"
	EventLockoutTriggered = "lockout_triggered"
	EventLockoutRejected  = "lockout_rejected"
	EventOTPSent          = "otp_sent"
	EventOTPVerified      = "otp_verified"
	EventTokensIssued     = "tokens_issued"
	EventTokenRefresh     = "token_refresh"
	EventTokenReuse       = "token_reuse_detected"
	EventRevoke           = "revoke"
	EventResetRequested   = "reset_requested"
	EventResetCompleted   = "reset_completed"
	EventDeliveryFailure  = "delivery_failure"
	EventPasswordUpgraded = "password_upgraded"
)
