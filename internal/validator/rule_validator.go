package validator

import (
	"fmt"

	"github.com/formlab/builder-service/internal/models"
)

// RuleValidator handles logic-rule validation beyond struct tags.
type RuleValidator struct{}

func NewRuleValidator() *RuleValidator {
	return &RuleValidator{}
}

// ValidateRule checks a rule against its owning question. Self-referential
// rules are rejected at creation time: a rule conditioned on, or jumping to,
// its own question is meaningless (and cyclic for jump).
func (v *RuleValidator) ValidateRule(ownerID string, rule models.LogicRule) error {
	if rule.Condition.QuestionID == "" {
		return fmt.Errorf("rule condition requires a source question")
	}
	if rule.Condition.QuestionID == ownerID {
		return fmt.Errorf("rule condition may not reference its own question")
	}
	switch rule.Action {
	case models.ActionShow:
		// TargetID is unused for show.
	case models.ActionJump:
		if rule.TargetID == "" {
			return fmt.Errorf("jump rule requires a target question")
		}
		if rule.TargetID == ownerID {
			return fmt.Errorf("jump rule may not target its own question")
		}
	default:
		return fmt.Errorf("unknown rule action: %q", rule.Action)
	}
	return nil
}

// ConditionSource describes where an editor reads candidate answers for a
// rule's condition: choice-type source questions expose their own options as
// the literal candidates, everything else is free text.
func (v *RuleValidator) ConditionSource(source models.Question) []string {
	if source.Type.ChoiceFamily() {
		return append([]string(nil), source.Options...)
	}
	return nil
}
