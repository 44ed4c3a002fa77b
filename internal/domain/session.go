package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session anchors one login instance. It is the unit of revocation: deleting
// it invalidates every token derived from it.
type Session struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	AccountID uuid.UUID `json:"account_id" db:"account_id"`
	IPAddress *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string   `json:"user_agent,omitempty" db:"user_agent"`
	DeviceID  *string   `json:"device_id,omitempty" db:"device_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ClientInfo carries the network and device characteristics of a request.
// Every field is optional; absent fields are never compared during binding
// checks.
type ClientInfo struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	DeviceID  string `json:"device_id,omitempty"`
}

// Audience builds the allowed-audience set for token verification from the
// fields present. At issuance the token's aud claim is set from one of these
// values, so any present value is acceptable on verification.
func (c ClientInfo) Audience() []string {
	var aud []string
	if c.DeviceID != "" {
		aud = append(aud, c.DeviceID)
	}
	if c.UserAgent != "" {
		aud = append(aud, c.UserAgent)
	}
	if c.IPAddress != "" {
		aud = append(aud, c.IPAddress)
	}
	return aud
}

// PreferredAudience picks the single aud value stamped into a new access
// token: device id first, then ip address, then user agent.
func (c ClientInfo) PreferredAudience() string {
	if c.DeviceID != "" {
		return c.DeviceID
	}
	if c.IPAddress != "" {
		return c.IPAddress
	}
	return c.UserAgent
}
