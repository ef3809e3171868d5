package user

import (
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/qazmun/mun/core"
)

// User is an authenticated identity.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Profile holds the public information and the role of a User. One per User.
type Profile struct {
	UserID        string        `json:"user_id"`
	Email         string        `json:"email"`
	FullName      string        `json:"full_name"`
	Phone         string        `json:"phone"`
	Bio           string        `json:"bio"`
	PhotoURL      string        `json:"photo_url"`
	Role          Role          `json:"role"`
	SchoolID      int           `json:"school_id,omitempty"`
	SecretaryType SecretaryType `json:"secretary_type,omitempty"`
	CreatedAt     time.Time     `json:"created_at"` // UTC
	UpdatedAt     time.Time     `json:"updated_at"` // UTC
}

// PublicProfile is what anybody may see of a Profile.
type PublicProfile struct {
	UserID        string        `json:"user_id"`
	FullName      string        `json:"full_name"`
	Bio           string        `json:"bio"`
	PhotoURL      string        `json:"photo_url"`
	Role          Role          `json:"role"`
	SchoolID      int           `json:"school_id,omitempty"`
	SecretaryType SecretaryType `json:"secretary_type,omitempty"`
}

func (p Profile) Public() PublicProfile {
	return PublicProfile{
		UserID:        p.UserID,
		FullName:      p.FullName,
		Bio:           p.Bio,
		PhotoURL:      p.PhotoURL,
		Role:          p.Role,
		SchoolID:      p.SchoolID,
		SecretaryType: p.SecretaryType,
	}
}

// defaultFullName is the local part of the email, used when a profile is created lazily.
func defaultFullName(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return "User"
}

// NewUser contains information needed to sign up.
type NewUser struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required"`
	FullName         string `json:"full_name" validate:"required"`
	Phone            string `json:"phone" validate:"omitempty,phone_kz"`
	Role             Role   `json:"role" validate:"omitempty,userrole"`
	VerificationCode string `json:"verification_code"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FullName = core.CleanString(nu.FullName)
	nu.Phone = core.CleanPhone(nu.Phone)
	nu.VerificationCode = core.CleanString(nu.VerificationCode)
	if nu.Role == "" {
		nu.Role = RoleParticipant
	}
	return validate.Struct(nu)
}

// UpdateProfile defines what a user may change on their own Profile. nil fields are left untouched.
type UpdateProfile struct {
	FullName *string `json:"full_name" validate:"omitempty,min=1"`
	Phone    *string `json:"phone" validate:"omitempty,phone_kz"`
	Bio      *string `json:"bio" validate:"omitempty,max=2000"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	if up.FullName != nil {
		name := core.CleanString(*up.FullName)
		up.FullName = &name
		if name == "" {
			return core.NewFieldError("full_name", "this field is required")
		}
	}
	if up.Phone != nil {
		phone := core.CleanPhone(*up.Phone)
		up.Phone = &phone
	}
	if up.Bio != nil {
		bio := core.CleanString(*up.Bio)
		up.Bio = &bio
	}
	return validate.Struct(up)
}

// PhotoUpload is a profile photo sent by the user.
type PhotoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of Profile.FullName, Profile.Email or Profile.Phone.
	Search   string `query:"search"`
	Roles    []Role `query:"role"`
	SchoolID int    `query:"school_id"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.SchoolID == 0
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
