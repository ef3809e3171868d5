package registration

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/qazmun/mun/core"
)

// Registration is a committee-less sign-up to a conference known only by its name.
type Registration struct {
	ID         string    `json:"id"`
	Conference string    `json:"conference"`
	FullName   string    `json:"full_name"`
	School     string    `json:"school"`
	Email      string    `json:"email"`
	Grade      int       `json:"grade"`
	Motivation string    `json:"motivation,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// NewRegistration contains information needed to register.
type NewRegistration struct {
	Conference string `json:"conference" validate:"required,max=500"`
	FullName   string `json:"full_name" validate:"required,max=255"`
	School     string `json:"school" validate:"required,max=500"`
	Email      string `json:"email" validate:"required,email"`
	Grade      int    `json:"grade" validate:"required,grade"`
	Motivation string `json:"motivation" validate:"max=5000"`
}

func (nr *NewRegistration) Validate(validate *validator.Validate) error {
	nr.Conference = core.CleanString(nr.Conference)
	nr.FullName = core.CleanString(nr.FullName)
	nr.School = core.CleanString(nr.School)
	nr.Email = core.CleanString(nr.Email, true /* lower */)
	nr.Motivation = core.CleanString(nr.Motivation)
	return validate.Struct(nr)
}
