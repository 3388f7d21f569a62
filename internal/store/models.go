package store

import "time"

// User is created on first contact and never deleted. LastGenTS is
// unix seconds of the last successful generation, 0 before the first.
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Username  string    `gorm:"type:varchar(64)" json:"username"`
	LastGenTS int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (User) TableName() string { return "users" }

// Ban presence alone marks a user as banned.
type Ban struct {
	UserID    int64     `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

func (Ban) TableName() string { return "bans" }

type Setting struct {
	Key   string `gorm:"primaryKey;type:varchar(64)"`
	Value string `gorm:"type:text;not null"`
}

func (Setting) TableName() string { return "settings" }

// LogEntry is append-only; Images holds the asset URLs comma-joined,
// matching what gets sent back to the requester.
type LogEntry struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID   int64  `gorm:"index;not null" json:"user_id"`
	Username string `gorm:"type:varchar(64)" json:"username"`
	Prompt   string `gorm:"type:text;not null" json:"prompt"`
	Style    string `gorm:"type:varchar(64);index" json:"style"`
	Images   string `gorm:"type:text" json:"images"`
	TS       int64  `gorm:"index;not null" json:"ts"`
}

func (LogEntry) TableName() string { return "logs" }

// GroupCount is one row of a grouped top-N query.
type GroupCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}
