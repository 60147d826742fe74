package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID                   uint64         `gorm:"primarykey" json:"id"`
	Title                string         `gorm:"not null" json:"title"`
	Description          string         `gorm:"type:text" json:"description"`
	Priority             Priority       `gorm:"type:varchar(20);not null;default:'Low'" json:"priority"`
	Status               TaskStatus     `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	DueDate              time.Time      `gorm:"not null" json:"dueDate"`
	StartDate            time.Time      `gorm:"not null" json:"startDate"`
	CreatedByID          uint64         `gorm:"not null" json:"createdById"`
	CompletionPercentage int            `gorm:"not null;default:0" json:"completionPercentage"`
	Tags                 []string       `gorm:"type:text;serializer:json" json:"tags"`
	EstimatedHours       *float64       `json:"estimatedHours"`
	ActualHours          *float64       `json:"actualHours"`
	Version              uint64         `gorm:"not null;default:1" json:"version"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
	DeletedAt            gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedBy   User             `gorm:"foreignKey:CreatedByID" json:"-"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"-"`
	TodoItems   []TodoItem       `gorm:"foreignKey:TaskID" json:"-"`
	Attachments []Attachment     `gorm:"foreignKey:TaskID" json:"-"`
	Comments    []TaskComment    `gorm:"foreignKey:TaskID" json:"-"`
}

// AssigneeIDs returns the ids of the users the task is assigned to.
func (t *Task) AssigneeIDs() []uint64 {
	ids := make([]uint64, 0, len(t.Assignments))
	for _, a := range t.Assignments {
		ids = append(ids, a.UserID)
	}
	return ids
}

// IsAssignedTo reports whether userID is one of the task's assignees.
func (t *Task) IsAssignedTo(userID uint64) bool {
	for _, a := range t.Assignments {
		if a.UserID == userID {
			return true
		}
	}
	return false
}
