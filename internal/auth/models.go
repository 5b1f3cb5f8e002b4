package auth

import "time"

// Session and User rows are written by the account service; this subsystem
// only reads them to authenticate operators and to resolve notification
// recipient addresses.
type Session struct {
	SessionID string    `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"not null;unique" json:"-"`
	ExpiresAt time.Time `gorm:"not null"`
}

type User struct {
	UserID string `gorm:"primaryKey" json:"user_id"`
	Email  string `gorm:"uniqueIndex" json:"email"`
	Role   string `gorm:"default:'user'" json:"role"`
}

func (Session) TableName() string { return "app_auth.sessions" }
func (User) TableName() string    { return "app_auth.users" }
