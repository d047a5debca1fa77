package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleAnnotator Role = "annotator"
)

func (v Role) Valid() bool {
	switch v {
	case RoleAdmin, RoleAnnotator:
		return true
	default:
		return false
	}
}

type Workspace struct {
	bun.BaseModel `bun:"table:workspace"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// db
type User struct {
	bun.BaseModel `bun:"table:user"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ClerkID       string    `bun:"clerk_id,notnull" json:"-"`
	Email         string    `bun:"email" json:"email"`
	Name          string    `bun:"name" json:"name"`
	Role          Role      `bun:"role,notnull" json:"role"`
	WorkspaceID   int64     `bun:"workspace_id,notnull" json:"workspace_id"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Identity only use in middleware
type Identity struct {
	ExternalID string `json:"external_id"`
	SessionID  string `json:"session_id"`
}
