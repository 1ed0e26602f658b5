package session

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Input limits
const (
	RoomCodeLength   = 6
	MaxMessageLength = 500
)

type createInput struct {
	Nickname string `validate:"required,min=2,max=50"`
	Password string `validate:"required,min=4"`
}

type joinInput struct {
	Code     string `validate:"required,len=6,alphanum"`
	Password string `validate:"required"`
	Nickname string `validate:"required,min=2,max=50"`
}

var validate = validator.New()

// validateInput checks the input struct and turns the first failure into the
// error shown to the user
func validateInput(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	// Missing fields take priority over everything else
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			return ErrMissingFields
		}
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Nickname":
		if fe.Tag() == "max" {
			return ErrNicknameTooLong
		}
		return ErrNicknameTooShort
	case "Password":
		return ErrPasswordTooShort
	case "Code":
		return ErrInvalidCode
	}
	return err
}

// NormalizeCode trims and upper-cases a room code typed by a user
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
