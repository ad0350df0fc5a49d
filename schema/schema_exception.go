package schema

import "time"

// ExceptionApproval is the result of looking up a gate exception ticket.
type ExceptionApproval struct {
	Key       string    `json:"key"`
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}
