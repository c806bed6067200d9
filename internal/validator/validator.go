package validator

import (
	"github.com/go-playground/validator/v10"

	"github.com/formlab/builder-service/internal/models"
)

// Validator combines struct-tag validation with the rule validator.
type Validator struct {
	structValidator *validator.Validate
	ruleValidator   *RuleValidator
}

// New creates a new centralized validator instance.
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
		ruleValidator:   NewRuleValidator(),
	}
}

// ValidateStruct validates struct tags only.
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Rule returns the logic-rule validator.
func (v *Validator) Rule() *RuleValidator {
	return v.ruleValidator
}

// registerCustomValidators registers all custom validation functions.
func registerCustomValidators(validate *validator.Validate) {
	_ = validate.RegisterValidation("question_type", validateQuestionType)
	_ = validate.RegisterValidation("logic_action", validateLogicAction)
	_ = validate.RegisterValidation("builder_kind", validateBuilderKind)
	_ = validate.RegisterValidation("drag_source", validateDragSource)
	_ = validate.RegisterValidation("drop_kind", validateDropKind)
}

// validateQuestionType accepts only known type tags in requests. Unknown
// tags loaded from stored drafts are still tolerated; this only gates new
// creations arriving over the API.
func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).IsKnown()
}

func validateLogicAction(fl validator.FieldLevel) bool {
	switch models.LogicAction(fl.Field().String()) {
	case models.ActionShow, models.ActionJump:
		return true
	}
	return false
}

func validateBuilderKind(fl validator.FieldLevel) bool {
	switch models.BuilderKind(fl.Field().String()) {
	case models.KindSurvey, models.KindScreening:
		return true
	}
	return false
}

func validateDragSource(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "toolbox", "canvas":
		return true
	}
	return false
}

func validateDropKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "question", "canvas", "toolbox", "none":
		return true
	}
	return false
}
