package flow

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(validateExamRange, ExamPlanInput{})
	return v
}

// validateExamRange rejects plans longer than MaxPlanDays. Unparseable
// dates are left to the datetime tag.
func validateExamRange(sl validator.StructLevel) {
	in := sl.Current().Interface().(ExamPlanInput)
	exam, err := ParseDate(in.ExamDate)
	if err != nil {
		return
	}
	current, err := ParseDate(in.CurrentDate)
	if err != nil {
		return
	}
	if PlanDays(exam, current) > MaxPlanDays {
		sl.ReportError(in.ExamDate, "examDate", "ExamDate", "plan_days", strconv.Itoa(MaxPlanDays))
	}
}

// describeInvalid turns validator field errors into one readable line.
func describeInvalid(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, describeField(fe))
	}
	return strings.Join(parts, "; ")
}

func describeField(fe validator.FieldError) string {
	field := strings.SplitN(fe.Namespace(), ".", 2)
	name := fe.Field()
	if len(field) == 2 {
		name = field[1]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted %s", name, fe.Param())
	case "plan_days":
		return fmt.Sprintf("%s must be at most %s days after currentDate, counting today", name, fe.Param())
	}
	return fmt.Sprintf("%s failed %q", name, fe.Tag())
}

// ValidateInput checks v against its validate tags. A failure is an
// InvalidInput *Error attributed to flowName.
func ValidateInput(flowName string, v any) error {
	if err := validate.Struct(v); err != nil {
		return &Error{Kind: KindInvalidInput, Flow: flowName, Message: describeInvalid(err), Err: err}
	}
	return nil
}
