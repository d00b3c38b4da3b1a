package call

import "time"

// Media distinguishes audio-only from video calls.
type Media string

const (
	MediaAudio Media = "audio"
	MediaVideo Media = "video"
)

// Valid reports whether m is a known media kind.
func (m Media) Valid() bool { return m == MediaAudio || m == MediaVideo }

// Status is the signaling state of one call attempt.
type Status string

const (
	StatusRinging  Status = "ringing"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusEnded    Status = "ended"
	StatusMissed   Status = "missed"
)

// Terminal reports whether no further transitions are allowed out of s.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusEnded || s == StatusMissed
}

// Record is the archived form of a finished call attempt.
type Record struct {
	ID             string     `db:"id"`
	ConversationID string     `db:"conversation_id"`
	CallerID       string     `db:"caller_id"`
	CalleeID       string     `db:"callee_id"`
	Media          Media      `db:"media"`
	Status         Status     `db:"status"`
	StartedAt      *time.Time `db:"started_at"`
	EndedAt        *time.Time `db:"ended_at"`
	Duration       int        `db:"duration"` // seconds; 0 if never accepted
	Reason         *string    `db:"reason"`
	CreatedAt      time.Time  `db:"created_at"`
}
