package constants

// Session and context keys
const (
	SessionCookieName   = "task_session"
	ContextKeyUserID    = "user_id"
	ContextKeyRole      = "role"
	ContextKeyTaskID    = "task_id"
	ContextKeyRequestID = "request_id"
	HeaderRequestID     = "X-Request-ID"
)

// Validation limits
const (
	MinPasswordLength   = 6
	MaxAIGeneratedTasks = 20
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DefaultAvatarURL is assigned to users that sign up without an avatar.
const DefaultAvatarURL = "https://images.unsplash.com/photo-1472099645785-5658abf4ff4e?w=60&h=60&fit=crop&crop=face"
