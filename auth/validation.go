package auth

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-session-auth/users"
)

const passwordPolicyTag = "password_policy"

// registration is the submitted registration form.
type registration struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,password_policy"`
	Confirm  string `validate:"eqfield=Password"`
}

func newValidator(policy users.Policy) *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation(passwordPolicyTag, func(fl validator.FieldLevel) bool {
		return policy.CheckPassword(fl.Field().String()) == nil
	})
	return validate
}

// registrationMessage returns the first failing rule's message, or "" when the form
// is valid. Rules are reported in a fixed order regardless of field order.
func (e *Engine) registrationMessage(form registration) string {
	err := e.validate.Struct(form)
	if err == nil {
		return ""
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return MsgFieldsRequired
	}
	failed := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		failed[fe.Tag()] = fe.Field()
	}

	switch {
	case failed["required"] != "":
		return MsgFieldsRequired
	case failed["eqfield"] != "":
		return MsgPasswordMismatch
	case failed[passwordPolicyTag] != "":
		if len(form.Password) > users.MaxPasswordBytes {
			return msgPasswordTooLong(users.MaxPasswordBytes)
		}
		return msgPasswordTooShort(e.policy.MinPasswordLength)
	case failed["max"] != "":
		return msgUsernameTooLong(users.MaxUsernameLength)
	}
	return MsgFieldsRequired
}
