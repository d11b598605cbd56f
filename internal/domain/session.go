package domain

import "time"

// CheckSession is one point-in-time snapshot batch for a project.
// Sessions of a project are ordered by CreatedAt; the latest has the max CreatedAt.
type CheckSession struct {
	ID           string    `json:"id"            db:"id"`
	ProjectID    string    `json:"project_id"    db:"project_id"`
	Name         *string   `json:"name"          db:"name"`
	Source       string    `json:"source"        db:"source"` // upload, fetch, schedule, inbox
	KeywordCount int       `json:"keyword_count" db:"keyword_count"`
	AIOCount     int       `json:"aio_count"     db:"aio_count"`
	CreatedAt    time.Time `json:"created_at"    db:"created_at"`
}

// Session source constants.
const (
	SessionSourceUpload   = "upload"
	SessionSourceFetch    = "fetch"
	SessionSourceSchedule = "schedule"
	SessionSourceInbox    = "inbox"
)
