package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one immutable conversation turn. A nil WorkspaceID places
// the message in the global scope.
type ChatMessage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Role        string    `gorm:"size:16;not null" json:"role"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	Timestamp   time.Time `gorm:"not null;index" json:"timestamp"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	WorkspaceID *uint     `gorm:"index" json:"workspace_id"`
}
