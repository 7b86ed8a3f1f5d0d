package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"basegraph.app/intake/internal/model"
)

var (
	emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@.]+(\.[^\s@.]+)+$`)
	phoneChars = regexp.MustCompile(`^[0-9\s+\-()]+$`)
)

// Errors is the accumulated list of field-level problems for one submission.
type Errors struct {
	Messages []string
}

func (e *Errors) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

// submissionInput is the trimmed view of a record that struct tags run against.
type submissionInput struct {
	Name          string `label:"Name" validate:"required"`
	Email         string `label:"Email" validate:"required,email_shape"`
	Phone         string `label:"Phone" validate:"omitempty,phone_chars"`
	ContactMethod string `label:"Preferred contact method" validate:"required"`
	ReportType    string `label:"Report type" validate:"required"`
	Priority      string `label:"Priority" validate:"required"`
	ImpactScope   string `label:"Impact scope" validate:"required"`
	Title         string `label:"Title" validate:"required,title_len"`
	Description   string `label:"Description" validate:"required"`
	VideoURL      string `label:"Video link" validate:"omitempty,web_url"`
	DocumentURL   string `label:"Document link" validate:"omitempty,web_url"`
}

type Validator struct {
	v              *validator.Validate
	maxTitleLength int
}

// New builds a Validator enforcing a title of at most maxTitleLength characters.
func New(maxTitleLength int) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("email_shape", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone_chars", func(fl validator.FieldLevel) bool {
		return phoneChars.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("web_url", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
	})
	_ = v.RegisterValidation("title_len", func(fl validator.FieldLevel) bool {
		return utf8.RuneCountInString(fl.Field().String()) <= maxTitleLength
	})

	return &Validator{v: v, maxTitleLength: maxTitleLength}
}

// Validate runs every check and returns *Errors listing all problems, or nil.
func (val *Validator) Validate(rec *model.SubmissionRecord) error {
	in := submissionInput{
		Name:          strings.TrimSpace(rec.Name),
		Email:         strings.TrimSpace(rec.Email),
		Phone:         strings.TrimSpace(rec.Phone),
		ContactMethod: strings.TrimSpace(rec.ContactMethod.Label),
		ReportType:    strings.TrimSpace(rec.ReportType.Label),
		Priority:      strings.TrimSpace(rec.Priority.Label),
		ImpactScope:   strings.TrimSpace(rec.ImpactScope.Label),
		Title:         strings.TrimSpace(rec.Title),
		Description:   strings.TrimSpace(rec.Description),
		VideoURL:      strings.TrimSpace(rec.VideoURL),
		DocumentURL:   strings.TrimSpace(rec.DocumentURL),
	}

	err := val.v.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating submission: %w", err)
	}

	out := &Errors{}
	for _, fe := range fieldErrs {
		out.Messages = append(out.Messages, val.message(fe))
	}
	return out
}

func (val *Validator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email_shape":
		return fmt.Sprintf("%s is not a valid email address", fe.Field())
	case "phone_chars":
		return fmt.Sprintf("%s may only contain digits, spaces and +-()", fe.Field())
	case "web_url":
		return fmt.Sprintf("%s must start with http:// or https://", fe.Field())
	case "title_len":
		return fmt.Sprintf("%s must be at most %d characters", fe.Field(), val.maxTitleLength)
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
