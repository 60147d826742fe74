package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/yukikurage/teamtask-api/internal/models"
)

var (
	ErrTodoTextEmpty     = fmt.Errorf("%w: checklist item text cannot be empty", ErrValidation)
	ErrLinkValueEmpty    = fmt.Errorf("%w: link attachment requires a value", ErrValidation)
	ErrFileURLMissing    = fmt.Errorf("%w: file attachment requires a resolved url", ErrValidation)
	ErrUnknownAttachment = fmt.Errorf("%w: attachment type must be link or file", ErrValidation)
)

var schemePattern = regexp.MustCompile(`(?i)^https?://`)

// CompletionPercentage returns the share of completed items, rounded half up.
// An empty checklist is 0%.
func CompletionPercentage(items []models.TodoItem) int {
	completed := 0
	for _, item := range items {
		if item.Completed {
			completed++
		}
	}
	return percentOf(int64(completed), int64(len(items)))
}

// DeriveStatus maps a completion percentage onto a task status.
func DeriveStatus(percentage int) models.TaskStatus {
	switch {
	case percentage <= 0:
		return models.TaskStatusPending
	case percentage >= 100:
		return models.TaskStatusCompleted
	default:
		return models.TaskStatusInProgress
	}
}

// ApplyChecklistMutation replaces the task checklist with items and returns the
// resulting task with completionPercentage and status recomputed. The input
// task is not modified.
//
// completedAt is carried over for items whose completion did not change. An
// item is matched to its previous version by id when it has one, otherwise by
// position when the text is unchanged. Items that become completed are stamped
// with now; items that become incomplete lose their timestamp.
func ApplyChecklistMutation(task models.Task, items []models.TodoItem, now time.Time) (models.Task, error) {
	byID := make(map[uint64]models.TodoItem, len(task.TodoItems))
	for _, prev := range task.TodoItems {
		if prev.ID != 0 {
			byID[prev.ID] = prev
		}
	}

	next := make([]models.TodoItem, len(items))
	for i, item := range items {
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			return task, ErrTodoTextEmpty
		}

		prev, found := byID[item.ID]
		if item.ID == 0 || !found {
			found = false
			if i < len(task.TodoItems) && task.TodoItems[i].Text == item.Text {
				prev, found = task.TodoItems[i], true
			}
		}

		switch {
		case !item.Completed:
			item.CompletedAt = nil
		case found && prev.Completed && prev.CompletedAt != nil:
			item.CompletedAt = prev.CompletedAt
		default:
			stamp := now
			item.CompletedAt = &stamp
		}

		next[i] = item
	}

	task.TodoItems = next
	task.CompletionPercentage = CompletionPercentage(next)
	task.Status = DeriveStatus(task.CompletionPercentage)
	return task, nil
}

// NormalizeAttachment validates an attachment and fills in its derived fields.
// Link urls without an http or https scheme get http:// prepended.
func NormalizeAttachment(a models.Attachment) (models.Attachment, error) {
	a.URL = strings.TrimSpace(a.URL)
	a.Name = strings.TrimSpace(a.Name)

	switch a.Kind {
	case models.AttachmentLink:
		if a.URL == "" {
			return a, ErrLinkValueEmpty
		}
		if a.Name == "" {
			a.Name = a.URL
		}
		if !schemePattern.MatchString(a.URL) {
			a.URL = "http://" + a.URL
		}
		a.FileSize = nil
		a.MimeType = ""
	case models.AttachmentFile:
		if a.URL == "" {
			return a, ErrFileURLMissing
		}
		if a.Name == "" {
			a.Name = "Unnamed File"
		}
	default:
		return a, ErrUnknownAttachment
	}

	return a, nil
}

// percentOf returns round(100*part/total) with halves rounded up, or 0 when
// total is 0.
func percentOf(part, total int64) int {
	if total <= 0 {
		return 0
	}
	return int((200*part + total) / (2 * total))
}
