package events

import (
	"time"

	"github.com/formlab/builder-service/internal/models"
)

// EventType represents the draft lifecycle events the builder emits.
type EventType string

const (
	EventDraftOpened     EventType = "draft.opened"
	EventDraftSaved      EventType = "draft.saved"
	EventDraftSaveFailed EventType = "draft.save_failed"
	EventDraftClosed     EventType = "draft.closed"
)

// DraftEvent is the envelope every published event shares.
type DraftEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

// DraftSavedEvent is emitted after a successful autosave or force save.
type DraftSavedEvent struct {
	ProjectID     string             `json:"project_id"`
	Kind          models.BuilderKind `json:"kind"`
	QuestionCount int                `json:"question_count"`
	SavedAt       time.Time          `json:"saved_at"`
}

// DraftSaveFailedEvent is emitted when the document store rejected a write.
// The local collection is unaffected; downstream consumers may alert on it.
type DraftSaveFailedEvent struct {
	ProjectID string             `json:"project_id"`
	Kind      models.BuilderKind `json:"kind"`
	Reason    string             `json:"reason"`
	FailedAt  time.Time          `json:"failed_at"`
}

// DraftSessionEvent is emitted on builder session open/close.
type DraftSessionEvent struct {
	ProjectID     string             `json:"project_id"`
	Kind          models.BuilderKind `json:"kind"`
	QuestionCount int                `json:"question_count"`
	At            time.Time          `json:"at"`
}
