package models

import "time"

// TodoItem is one line of a task checklist. Position keeps the checklist order
// stable across writes.
type TodoItem struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	TaskID      uint64     `gorm:"not null;index" json:"-"`
	Position    int        `gorm:"not null" json:"-"`
	Text        string     `gorm:"type:text;not null" json:"text"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}
