package models

import "time"

// TaskAssignment links a task to one assignee. The pair is unique, which is
// what makes assignedTo a set.
type TaskAssignment struct {
	TaskID    uint64    `gorm:"primarykey" json:"taskId"`
	UserID    uint64    `gorm:"primarykey" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`

	// Relations
	Task Task `gorm:"foreignKey:TaskID" json:"-"`
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
