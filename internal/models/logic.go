package models

// LogicAction is what a matched rule does to its owning question.
type LogicAction string

const (
	// ActionShow reveals the owning question when the condition matches.
	ActionShow LogicAction = "show"
	// ActionJump skips navigation directly to TargetID when the condition matches.
	ActionJump LogicAction = "jump"
)

// RuleCondition tests another question's answer. Either Answer (literal
// equality against the answers map) or Expression (an expr-lang boolean
// program evaluated over the answers map) is set; Expression wins when both
// are present.
type RuleCondition struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer,omitempty"`
	Expression string `json:"expression,omitempty"`
}

// LogicRule is a conditional show/jump directive owned by exactly one
// question. Rule order within a question's Logic slice is evaluation order;
// the first matching rule wins.
//
// Condition.QuestionID and TargetID may reference questions deleted since the
// rule was written. Dangling references are tolerated: evaluation treats them
// as non-matches and editors render a generic fallback label.
type LogicRule struct {
	Condition RuleCondition `json:"condition"`
	Action    LogicAction   `json:"action"`
	TargetID  string        `json:"targetId,omitempty"`
}
