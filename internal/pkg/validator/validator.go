package validator

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

var ethAddressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	// Wire-level claim types, stable strings
	validate.RegisterValidation("claim_type", func(fl validator.FieldLevel) bool {
		ct := fl.Field().String()
		validTypes := []string{"welcome", "playgame", "uploadgame", "daily_checkin", "claim_pending"}
		for _, t := range validTypes {
			if ct == t {
				return true
			}
		}
		return false
	})

	// Age groups used for daily payout tiers
	validate.RegisterValidation("age_group", func(fl validator.FieldLevel) bool {
		group := fl.Field().String()
		validGroups := []string{"3-6", "7-12", "13-16", "17+", ""}
		for _, g := range validGroups {
			if group == g {
				return true
			}
		}
		return false
	})

	// 0x-prefixed 20-byte hex address
	validate.RegisterValidation("eth_address", func(fl validator.FieldLevel) bool {
		return ethAddressRe.MatchString(fl.Field().String())
	})
}

// Validate validates a struct and returns a field -> message map on failure
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = messageForTag(fe)
	}
	return details
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "claim_type":
		return "must be one of: welcome, playgame, uploadgame, daily_checkin, claim_pending"
	case "age_group":
		return "must be one of: 3-6, 7-12, 13-16, 17+"
	case "eth_address":
		return "must be a 0x-prefixed hex address"
	case "gt":
		return "must be greater than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}
