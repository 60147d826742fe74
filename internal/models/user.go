package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

type User struct {
	ID             uint64         `gorm:"primarykey" json:"id"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash   string         `gorm:"type:varchar(255);not null" json:"-"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Role           Role           `gorm:"type:varchar(20);not null;default:'employee'" json:"role"`
	Avatar         string         `gorm:"type:varchar(512)" json:"avatar"`
	IsActive       bool           `gorm:"not null;default:true" json:"isActive"`
	LastLogin      *time.Time     `json:"lastLogin"`
	CompletionRate int            `gorm:"not null;default:0" json:"completionRate"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedTasks []Task           `gorm:"foreignKey:CreatedByID" json:"-"`
	Assignments  []TaskAssignment `gorm:"foreignKey:UserID" json:"-"`
}
