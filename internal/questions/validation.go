package questions

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mock-test/backend/internal/models"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(approvalRequestRule, models.ApprovalRequest{})
	return v
}

// approvalRequestRule requires difficulty_id unless the whole topic is being
// approved from staging, and a valid marker on every edited question.
func approvalRequestRule(sl validator.StructLevel) {
	req := sl.Current().Interface().(models.ApprovalRequest)

	if req.DifficultyID == 0 && (!req.ApproveAllDifficulties || len(req.Questions) > 0) {
		sl.ReportError(req.DifficultyID, "difficulty_id", "DifficultyID", "required_without_all", "")
	}
	for i, q := range req.Questions {
		if _, ok := q.CorrectIndex(); !ok {
			sl.ReportError(q.CorrectOption, fmt.Sprintf("questions[%d].correct_option", i), "CorrectOption", "oneof", "A B C D")
		}
	}
}

// validationMessage flattens validator errors into one client-facing line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "required_without_all":
			msgs = append(msgs, field+" is required unless approve_all_difficulties is set")
		case "min", "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, minParam(fe)))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func minParam(fe validator.FieldError) string {
	if fe.Tag() == "gt" {
		return "1"
	}
	return fe.Param()
}
