package storage

import "time"

// Session correlates an uploaded image with a client across requests.
type Session struct {
	ID         string    `json:"session_id"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Mode       string    `json:"mode"`
	LastActive time.Time `json:"last_active"`
	// TempFiles are owned by the session and removed when it expires.
	TempFiles []string `json:"-"`
}

type SessionStore interface {
	Create(width, height int, mode string) Session
	Get(sessionID string) (Session, error)
	AddTempFile(sessionID, path string) error
	Sweep() int
	Len() int
}
