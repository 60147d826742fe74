package dto

import (
	"time"

	"github.com/yukikurage/teamtask-api/internal/models"
)

// UserDTO represents the authenticated user or a user listing entry
type UserDTO struct {
	ID             uint64      `json:"id"`
	Email          string      `json:"email"`
	Name           string      `json:"name"`
	Role           models.Role `json:"role"`
	Avatar         string      `json:"avatar"`
	IsActive       bool        `json:"isActive"`
	LastLogin      *time.Time  `json:"lastLogin"`
	CompletionRate int         `json:"completionRate"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// UserSummaryDTO is how other users appear inside a task
type UserSummaryDTO struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		Avatar:         user.Avatar,
		IsActive:       user.IsActive,
		LastLogin:      user.LastLogin,
		CompletionRate: user.CompletionRate,
		CreatedAt:      user.CreatedAt,
	}
}

// ToUserDTOs converts a slice of users
func ToUserDTOs(users []models.User) []UserDTO {
	result := make([]UserDTO, len(users))
	for i, user := range users {
		result[i] = ToUserDTO(user)
	}
	return result
}

// ToUserSummaryDTO converts a User model to its task-embedded summary
func ToUserSummaryDTO(user models.User) UserSummaryDTO {
	return UserSummaryDTO{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Avatar: user.Avatar,
	}
}
