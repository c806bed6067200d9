// Package builder implements the form builder engine: question creation
// defaults, the authoritative ordered question collection, editing buffers,
// drag/drop reconciliation, conditional logic evaluation and autosave.
package builder

import (
	"github.com/google/uuid"

	"github.com/formlab/builder-service/internal/models"
)

// NewQuestion produces a fully populated question for the given type: fresh
// id, empty title, required on, two blank options for the choice family, and
// type-specific config from the defaults registry. Apart from id minting it
// is pure and deterministic; unknown type tags get an empty config and are
// rendered as a neutral placeholder downstream rather than rejected.
// newQuestionID mints a process-unique opaque identifier. Fresh ids are
// minted on every creation and duplication; ids are never reused.
func newQuestionID() string {
	return uuid.NewString()
}

func NewQuestion(t models.QuestionType) models.Question {
	q := models.Question{
		ID:       newQuestionID(),
		Type:     t,
		Title:    "",
		Required: true,
		Config:   defaultConfig(t),
	}
	if t.ChoiceFamily() {
		q.Options = []string{"", ""}
	}
	return q
}

// defaultConfig is the pure lookup table keyed on type.
func defaultConfig(t models.QuestionType) models.QuestionConfig {
	switch t {
	case models.Number:
		return models.QuestionConfig{Number: &models.NumberConfig{AllowDecimals: false}}
	case models.LinearScale:
		return models.QuestionConfig{Scale: &models.ScaleConfig{
			RangeMin: 1,
			RangeMax: 10,
			MinLabel: "Not Satisfied",
			MaxLabel: "Very Satisfied",
		}}
	case models.Rating:
		return models.QuestionConfig{Rating: &models.RatingConfig{Icon: "star", Count: 5}}
	case models.Matrix:
		return models.QuestionConfig{Matrix: &models.MatrixConfig{
			Rows:    []string{"Row 1", "Row 2"},
			Columns: []string{"Column 1", "Column 2"},
		}}
	case models.Ranking:
		return models.QuestionConfig{Ranking: &models.RankingConfig{
			Items: []string{"Item 1", "Item 2"},
		}}
	case models.FileUpload:
		return models.QuestionConfig{FileUpload: &models.FileUploadConfig{
			AllowedFileTypes: []string{".jpg", ".png", ".pdf"},
			MaxFileSizeMB:    10,
		}}
	case models.EmbedImage:
		return models.QuestionConfig{Image: &models.ImageConfig{}}
	default:
		return models.QuestionConfig{}
	}
}

// NewQuestionFromTemplate creates a question of the given type and then
// overlays a prefilled template patch (title, options, config). Used by the
// prefilled-template creation path; the minted id and type immutability are
// the same as plain creation.
func NewQuestionFromTemplate(t models.QuestionType, prefill models.QuestionPatch) models.Question {
	q := NewQuestion(t)
	prefill.Apply(&q)
	return q
}
