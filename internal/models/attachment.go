package models

type AttachmentKind string

const (
	AttachmentLink AttachmentKind = "link"
	AttachmentFile AttachmentKind = "file"
)

type Attachment struct {
	ID       uint64         `gorm:"primarykey" json:"id"`
	TaskID   uint64         `gorm:"not null;index" json:"-"`
	Position int            `gorm:"not null" json:"-"`
	Name     string         `gorm:"type:varchar(512);not null" json:"name"`
	Kind     AttachmentKind `gorm:"type:varchar(10);not null" json:"type"`
	URL      string         `gorm:"type:text;not null" json:"url"`
	FileSize *int64         `json:"fileSize,omitempty"`
	MimeType string         `gorm:"type:varchar(255)" json:"mimeType,omitempty"`
}
