package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// AddIndexes adds the lookup indexes the task queries rely on. It goes through
// the gorm migrator so the same code runs on mysql, postgres and sqlite.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task indexes for scoping and sorting
		{"tasks", "idx_tasks_created_by_id", "created_by_id"},
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"tasks", "idx_tasks_created_at", "created_at"},

		// Assignment lookups by assignee drive both employee listing and completion rates
		{"task_assignments", "idx_task_assignments_user_id", "user_id"},

		// Ordered children
		{"todo_items", "idx_todo_items_task_position", "task_id, position"},
		{"attachments", "idx_attachments_task_position", "task_id, position"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}
