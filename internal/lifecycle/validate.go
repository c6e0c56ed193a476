package lifecycle

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"
)

var evaluationFields = []string{
	"academicBackground", "communication", "discipline", "motivation", "overallScore", "recommendation",
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkRequest maps the first failing field to MISSING_FIELD.
func checkRequest(v *validator.Validate, req interface{}) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewInvalidFieldError("request", err.Error())
	}
	fe := verrs[0]
	field := fieldPath(fe)
	if strings.HasPrefix(fe.Tag(), "required") {
		return apperrors.NewMissingFieldError(field)
	}
	return apperrors.NewInvalidFieldError(field, describe(fe))
}

// checkEvaluation rejects partial evaluations, naming every bad field.
func checkEvaluation(v *validator.Validate, ev *models.Evaluation) error {
	if ev == nil {
		return apperrors.NewIncompleteEvaluationError(evaluationFields)
	}
	err := v.Struct(ev)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return apperrors.NewIncompleteEvaluationError([]string{err.Error()})
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldPath(fe))
	}
	return apperrors.NewIncompleteEvaluationError(fields)
}

// fieldPath drops the root struct name: "Evaluation.discipline.score" -> "discipline.score".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fmt.Sprintf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

func requireRemarks(remarks string) (string, error) {
	r := strings.TrimSpace(remarks)
	if r == "" {
		return "", apperrors.NewMissingFieldError("remarks")
	}
	return r, nil
}
