package middleware

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"issuetracker/internal/model"
)

// RegisterValidators adds the enum tags used by request bodies to gin's
// validator and makes field errors carry the JSON key the client sent.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	v.RegisterTagNameFunc(jsonName)
	return registerEnums(v)
}

// jsonName falls back to the Go field name when there is no json tag.
func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	}
	return name
}

func registerEnums(v *validator.Validate) error {
	enums := map[string]func(string) bool{
		"issue_status": func(s string) bool {
			_, ok := model.ParseIssueStatus(s)
			return ok
		},
		"issue_type": func(s string) bool {
			_, ok := model.ParseIssueType(s)
			return ok
		},
		"priority": func(s string) bool {
			_, ok := model.ParsePriority(s)
			return ok
		},
		"project_status": func(s string) bool {
			_, ok := model.ParseProjectStatus(s)
			return ok
		},
	}
	for tag, valid := range enums {
		valid := valid
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
		if err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}
