package notify

import "errors"

// Sentinel errors for notification delivery.
var (
	ErrEncode    = errors.New("notification encode failed")
	ErrPublish   = errors.New("notification publish failed")
	ErrNoUserID  = errors.New("user id is required")
	ErrHubClosed = errors.New("hub is closed")
)
