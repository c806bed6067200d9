package services

import (
	"log/slog"

	"github.com/formlab/builder-service/internal/builder"
	"github.com/formlab/builder-service/internal/models"
)

// FallbackTargetLabel is what editors render for a rule whose referenced
// question no longer exists. Dangling references are not corruption.
const FallbackTargetLabel = "selected question"

// QuestionEvaluation pairs one question with its rule-evaluation outcome.
type QuestionEvaluation struct {
	QuestionID string `json:"question_id"`
	Visible    bool   `json:"visible"`
	JumpTarget string `json:"jump_target_id,omitempty"`
}

// RuleDescription is the editor-facing rendering of one rule: resolved
// question titles, with the fallback label for dangling references, and the
// candidate answers a choice-type source exposes.
type RuleDescription struct {
	Index            int      `json:"index"`
	SourceLabel      string   `json:"source_label"`
	Answer           string   `json:"answer,omitempty"`
	Expression       string   `json:"expression,omitempty"`
	Action           string   `json:"action"`
	TargetLabel      string   `json:"target_label,omitempty"`
	CandidateAnswers []string `json:"candidate_answers,omitempty"`
}

// PreviewService is the evaluation contract the preview/runtime renderer
// consumes: given the finished question list and a live answers map, decide
// visibility and branching per question. Rendering stays external.
type PreviewService interface {
	Evaluate(questions []models.Question, answers map[string]string) []QuestionEvaluation
	DescribeRules(questions []models.Question, questionID string) []RuleDescription
}

type previewService struct {
	logger *slog.Logger
}

func NewPreviewService(logger *slog.Logger) PreviewService {
	if logger == nil {
		logger = slog.Default()
	}
	return &previewService{logger: logger}
}

// Evaluate runs every question's rules against the answers map. The logic
// engine here is detached from any collection: evaluation is a pure read
// over the supplied snapshot.
func (p *previewService) Evaluate(questions []models.Question, answers map[string]string) []QuestionEvaluation {
	engine := builder.NewLogicEngine(builder.NewCollection(p.logger), p.logger)
	out := make([]QuestionEvaluation, 0, len(questions))
	for _, q := range questions {
		result := engine.Evaluate(q, answers)
		out = append(out, QuestionEvaluation{
			QuestionID: q.ID,
			Visible:    result.Visible,
			JumpTarget: result.JumpTargetID,
		})
	}
	return out
}

// DescribeRules renders a question's rules for the logic panel. Unknown ids
// resolve to the generic fallback label.
func (p *previewService) DescribeRules(questions []models.Question, questionID string) []RuleDescription {
	byID := make(map[string]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	owner, ok := byID[questionID]
	if !ok {
		return nil
	}

	out := make([]RuleDescription, 0, len(owner.Logic))
	for i, rule := range owner.Logic {
		desc := RuleDescription{
			Index:      i,
			Answer:     rule.Condition.Answer,
			Expression: rule.Condition.Expression,
			Action:     string(rule.Action),
		}
		desc.SourceLabel = labelFor(byID, rule.Condition.QuestionID)
		if source, ok := byID[rule.Condition.QuestionID]; ok && source.Type.ChoiceFamily() {
			desc.CandidateAnswers = append([]string(nil), source.Options...)
		}
		if rule.Action == models.ActionJump {
			desc.TargetLabel = labelFor(byID, rule.TargetID)
		}
		out = append(out, desc)
	}
	return out
}

func labelFor(byID map[string]models.Question, id string) string {
	if q, ok := byID[id]; ok {
		if q.Title != "" {
			return q.Title
		}
		return "Untitled question"
	}
	return FallbackTargetLabel
}
