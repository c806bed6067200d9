package builder

import (
	"errors"
	"log/slog"

	"github.com/expr-lang/expr"

	"github.com/formlab/builder-service/internal/models"
)

var (
	// ErrSelfReferentialRule rejects rules whose condition or jump target
	// points at the rule's own question. They are meaningless for show and
	// cyclic for jump, so they are refused at creation time.
	ErrSelfReferentialRule = errors.New("logic rule may not reference its own question")
	// ErrRuleIndexOutOfRange rejects removal at a position the question's
	// rule list does not have.
	ErrRuleIndexOutOfRange = errors.New("logic rule index out of range")
	// ErrMissingJumpTarget rejects jump rules without a destination.
	ErrMissingJumpTarget = errors.New("jump rule requires a target question")
)

// Evaluation is the outcome of running a question's rules against a live
// answers map.
type Evaluation struct {
	Visible      bool   `json:"visible"`
	JumpTargetID string `json:"jumpTargetId,omitempty"`
}

// LogicEngine attaches, removes and evaluates per-question branching rules.
// It does not own a rule list: rules live on the questions inside the
// collection, and every mutation goes through Collection.Mutate.
type LogicEngine struct {
	collection *Collection
	logger     *slog.Logger
}

func NewLogicEngine(collection *Collection, logger *slog.Logger) *LogicEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogicEngine{collection: collection, logger: logger}
}

// AddRule appends the rule to the question's logic list. Self-referential
// rules and jump rules without a target are rejected; a vanished question id
// follows the collection's logged no-op convention.
func (e *LogicEngine) AddRule(questionID string, rule models.LogicRule) error {
	if err := ValidateRule(questionID, rule); err != nil {
		return err
	}
	return e.collection.Mutate(questionID, func(q *models.Question) error {
		q.Logic = append(q.Logic, rule)
		return nil
	})
}

// RemoveRule removes the rule at the given position.
func (e *LogicEngine) RemoveRule(questionID string, index int) error {
	return e.collection.Mutate(questionID, func(q *models.Question) error {
		if index < 0 || index >= len(q.Logic) {
			return ErrRuleIndexOutOfRange
		}
		q.Logic = append(q.Logic[:index], q.Logic[index+1:]...)
		return nil
	})
}

// ValidateRule checks a rule against its owning question id.
func ValidateRule(ownerID string, rule models.LogicRule) error {
	if rule.Condition.QuestionID == ownerID {
		return ErrSelfReferentialRule
	}
	if rule.Action == models.ActionJump {
		if rule.TargetID == "" {
			return ErrMissingJumpTarget
		}
		if rule.TargetID == ownerID {
			return ErrSelfReferentialRule
		}
	}
	return nil
}

// Evaluate runs the question's rules, in order, against the answers map.
// Default visibility with no matching rule is visible; the first matching
// rule wins. A show match keeps the question visible; a jump match yields
// the jump target instead of normal next-question advancement. Rules whose
// condition references a deleted question simply never match.
func (e *LogicEngine) Evaluate(q models.Question, answers map[string]string) Evaluation {
	result := Evaluation{Visible: true}
	for _, rule := range q.Logic {
		if !e.conditionMatches(rule.Condition, answers) {
			continue
		}
		switch rule.Action {
		case models.ActionShow:
			result.Visible = true
		case models.ActionJump:
			result.JumpTargetID = rule.TargetID
		}
		return result
	}
	return result
}

// conditionMatches tests one condition. An expression, when present, takes
// precedence over the literal answer match and is evaluated over the answers
// map; an expression that fails to compile, fails at runtime or yields a
// non-boolean counts as not satisfied rather than an error.
func (e *LogicEngine) conditionMatches(cond models.RuleCondition, answers map[string]string) bool {
	if cond.Expression != "" {
		env := make(map[string]any, len(answers))
		for k, v := range answers {
			env[k] = v
		}
		program, err := expr.Compile(cond.Expression, expr.Env(env), expr.AsBool())
		if err != nil {
			e.logger.Warn("logic expression failed to compile", "expression", cond.Expression, "error", err)
			return false
		}
		out, err := expr.Run(program, env)
		if err != nil {
			e.logger.Warn("logic expression failed to run", "expression", cond.Expression, "error", err)
			return false
		}
		matched, ok := out.(bool)
		return ok && matched
	}
	answer, ok := answers[cond.QuestionID]
	return ok && answer == cond.Answer
}
