package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// BuilderKind distinguishes the two independent builders that can exist for
// one project. They never share a draft row, a session or timers.
type BuilderKind string

const (
	KindSurvey    BuilderKind = "survey"
	KindScreening BuilderKind = "screening"
)

// Draft is the persisted snapshot of one builder's ordered question list,
// keyed by an opaque project identifier. The stored shape is exactly the
// serialized Question array; no framing or schema tag is added.
type Draft struct {
	ProjectID string         `json:"project_id" gorm:"primaryKey;size:64"`
	Kind      BuilderKind    `json:"kind" gorm:"primaryKey;size:16"`
	Questions datatypes.JSON `json:"questions" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Draft) TableName() string {
	return "drafts"
}

// DecodeQuestions unmarshals the snapshot. A nil or empty payload yields an
// empty list rather than an error.
func (d *Draft) DecodeQuestions() ([]Question, error) {
	if len(d.Questions) == 0 {
		return []Question{}, nil
	}
	var out []Question
	if err := json.Unmarshal(d.Questions, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Question{}
	}
	return out, nil
}

// EncodeQuestions replaces the snapshot payload.
func (d *Draft) EncodeQuestions(questions []Question) error {
	if questions == nil {
		questions = []Question{}
	}
	raw, err := json.Marshal(questions)
	if err != nil {
		return err
	}
	d.Questions = raw
	return nil
}
