package notify

import "time"

// Device is one registered push target for a user. A user registers one row
// per installed device; the token is rotated in place on re-registration.
type Device struct {
	UserID     string    `db:"user_id"`
	DeviceID   string    `db:"device_id"`
	Token      string    `db:"fcm_token"`
	Platform   string    `db:"platform"` // web, ios, android
	UserAgent  string    `db:"user_agent"`
	AppVersion string    `db:"app_version"`
	CreatedAt  time.Time `db:"created_at"`
	LastSeen   time.Time `db:"last_seen"`
}
