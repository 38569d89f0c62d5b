package events

import (
	"time"

	"github.com/spec-kit/defect-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDefectCreated EventType = "defect_created"
	EventDefectUpdated EventType = "defect_updated"
	EventDefectDeleted EventType = "defect_deleted"
	EventCommentAdded  EventType = "comment_added"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	DefectID  string      `json:"defect_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// DefectCreatedPayload payload.
type DefectCreatedPayload struct {
	ProjectID string                `json:"project_id"`
	Title     string                `json:"title"`
	Priority  domain.DefectPriority `json:"priority"`
	StatusID  int                   `json:"status_id"`
}

// FieldChange describes one audited field mutation.
type FieldChange struct {
	Field    string  `json:"field"`
	OldValue *string `json:"old_value"`
	NewValue *string `json:"new_value"`
}

// DefectUpdatedPayload payload.
type DefectUpdatedPayload struct {
	Changes []FieldChange `json:"changes"`
}

// DefectDeletedPayload payload.
type DefectDeletedPayload struct {
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}

// CommentAddedPayload payload.
type CommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	BodyPreview string `json:"body_preview"`
}
