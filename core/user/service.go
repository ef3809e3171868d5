package user

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
)

const MaxPhotoSize = 5 << 20 // 5MiB

var (
	// errors
	ErrNotFound             = fmt.Errorf("user %w", core.ErrNotFound)
	ErrProfileNotFound      = fmt.Errorf("profile %w", core.ErrNotFound)
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccountDeactivated   = errors.New("account deactivated")

	errNoPermsToSetRole = "not enough rights to set this role"
)

type (
	Repository interface {
		EmailExists(ctx context.Context, email string) (bool, error)
		// CreateUser stores the User and its Profile together.
		CreateUser(ctx context.Context, usr User, prof Profile) (User, Profile, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)

		CreateProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfile(ctx context.Context, userID string) (Profile, error)
		UpdateProfile(ctx context.Context, prof Profile) (Profile, error)
		// QueryProfiles applies AND operation on available QueryFilter fields.
		QueryProfiles(ctx context.Context, filter QueryFilter, orderings []core.DBOrdering) ([]Profile, error)
	}

	Service struct {
		repo     Repository
		blobs    core.BlobStore
		validate *validator.Validate
		conf     *core.Config
		logger   core.Logger
	}
)

func NewService(repo Repository, blobs core.BlobStore, validate *validator.Validate, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		validate: validate,
		conf:     conf,
		logger:   logger,
	}
}

func (svc *Service) isFounderEmail(email string) bool {
	return svc.conf.FounderEmail != "" && email == svc.conf.FounderEmail
}

// SignUp creates a User and its Profile.
// Elevated roles require a verification code matching the selected role; the founder email is always founder.
func (svc *Service) SignUp(ctx context.Context, nu NewUser) (User, Profile, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return User{}, Profile{}, err
	}

	exists, err := svc.repo.EmailExists(ctx, nu.Email)
	if err != nil {
		return User{}, Profile{}, errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return User{}, Profile{}, core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
	}

	now := core.Now()
	prof := Profile{
		Email:     nu.Email,
		FullName:  nu.FullName,
		Phone:     nu.Phone,
		Role:      RoleParticipant,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch {
	case svc.isFounderEmail(nu.Email):
		prof.Role = RoleFounder
	case nu.Role != RoleParticipant:
		v, err := VerifyCode(nu.VerificationCode, nu.Role)
		if err != nil {
			return User{}, Profile{}, core.NewValidationError(err, core.FieldError{Field: "verification_code", Error: err.Error()})
		}
		prof.Role = v.Role
		prof.SchoolID = v.SchoolID
		prof.SecretaryType = v.SecretaryType
	}

	usr := User{
		ID:        uuid.NewString(),
		Email:     nu.Email,
		IsActive:  true,
		CreatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, Profile{}, errors.Wrap(err, "setting password")
	}
	prof.UserID = usr.ID

	usr, prof, err = svc.repo.CreateUser(ctx, usr, prof)
	return usr, prof, errors.Wrap(err, "creating user")
}

// CreateUser creates a User with the given role, skipping verification codes. Used by operators.
func (svc *Service) CreateUser(ctx context.Context, email, fullName, pwd string, role Role, schoolID int) (User, Profile, error) {
	email = core.CleanString(email, true /* lower */)
	if !core.IsValidEmail(email) {
		return User{}, Profile{}, core.NewFieldError("email", "invalid email address")
	}
	if !role.IsValid() {
		return User{}, Profile{}, core.NewFieldError("role", userRoleText)
	}
	if err := ValidatePassword(pwd, fullName, email); err != nil {
		return User{}, Profile{}, err
	}
	exists, err := svc.repo.EmailExists(ctx, email)
	if err != nil {
		return User{}, Profile{}, errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return User{}, Profile{}, core.NewFieldError("email", ErrEmailExists.Error())
	}

	now := core.Now()
	usr := User{ID: uuid.NewString(), Email: email, IsActive: true, CreatedAt: now}
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, Profile{}, errors.Wrap(err, "setting password")
	}
	fullName = core.CleanString(fullName)
	if fullName == "" {
		fullName = defaultFullName(email)
	}
	prof := Profile{
		UserID:        usr.ID,
		Email:         email,
		FullName:      fullName,
		Role:          role,
		SchoolID:      schoolID,
		SecretaryType: secretaryTypeOf(role),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	usr, prof, err = svc.repo.CreateUser(ctx, usr, prof)
	return usr, prof, errors.Wrap(err, "creating user")
}

func secretaryTypeOf(role Role) SecretaryType {
	switch role {
	case RoleGeneralSecretary:
		return SecretaryGeneral
	case RoleDeputy:
		return SecretaryDeputy
	default:
		return ""
	}
}

// Authenticate checks the credentials and records the login.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrAuthenticationFailed
		}
		return User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrAuthenticationFailed
	}
	if !usr.IsActive {
		return User{}, ErrAccountDeactivated
	}
	usr.LastLogin = core.Now()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting lastLogin")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) GetProfile(ctx context.Context, userID string) (Profile, error) {
	return svc.repo.GetProfile(ctx, userID)
}

// GetOrCreateProfile returns the Profile of usr, creating a participant one if it does not exist yet.
func (svc *Service) GetOrCreateProfile(ctx context.Context, usr User) (Profile, error) {
	prof, err := svc.repo.GetProfile(ctx, usr.ID)
	if err == nil {
		return prof, nil
	}
	if !errors.Is(err, ErrProfileNotFound) {
		return Profile{}, errors.Wrap(err, "getting profile")
	}

	now := core.Now()
	prof = Profile{
		UserID:    usr.ID,
		Email:     usr.Email,
		FullName:  defaultFullName(usr.Email),
		Role:      RoleParticipant,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if svc.isFounderEmail(usr.Email) {
		prof.Role = RoleFounder
	}
	prof, err = svc.repo.CreateProfile(ctx, prof)
	return prof, errors.Wrap(err, "creating profile")
}

func (svc *Service) UpdateProfile(ctx context.Context, actor Profile, up UpdateProfile) (Profile, error) {
	if err := up.Validate(svc.validate); err != nil {
		return Profile{}, err
	}
	prof := actor
	if up.FullName != nil {
		prof.FullName = *up.FullName
	}
	if up.Phone != nil {
		prof.Phone = *up.Phone
	}
	if up.Bio != nil {
		prof.Bio = *up.Bio
	}
	prof.UpdatedAt = core.Now()
	prof, err := svc.repo.UpdateProfile(ctx, prof)
	return prof, errors.Wrap(err, "updating profile")
}

// SetPhoto uploads a new profile photo for actor and removes the previous one.
func (svc *Service) SetPhoto(ctx context.Context, actor Profile, upload PhotoUpload) (Profile, error) {
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return Profile{}, core.NewFieldError("photo", "only image files are allowed")
	}
	if upload.Size > MaxPhotoSize {
		return Profile{}, core.NewFieldError("photo", "file size must not exceed 5MB")
	}

	name := fmt.Sprintf("profile-%s-%d%s", actor.UserID, time.Now().Unix(), photoExt(upload))
	url, err := svc.blobs.Put(ctx, name, upload.ContentType, upload.Content, upload.Size)
	if err != nil {
		return Profile{}, errors.Wrap(err, "uploading photo")
	}

	oldURL := actor.PhotoURL
	prof := actor
	prof.PhotoURL = url
	prof.UpdatedAt = core.Now()
	if prof, err = svc.repo.UpdateProfile(ctx, prof); err != nil {
		if dErr := svc.blobs.Delete(ctx, url); dErr != nil {
			svc.logger.Warn("deleting orphan photo", dErr, map[string]interface{}{"url": url})
		}
		return Profile{}, errors.Wrap(err, "updating profile")
	}

	if oldURL != "" {
		if err := svc.blobs.Delete(ctx, oldURL); err != nil {
			svc.logger.Warn("deleting previous photo", err, map[string]interface{}{"url": oldURL})
		}
	}
	return prof, nil
}

func photoExt(upload PhotoUpload) string {
	if ext := strings.ToLower(path.Ext(upload.Filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(upload.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}

// QueryProfiles is the admin panel listing.
func (svc *Service) QueryProfiles(ctx context.Context, actor Profile, filter QueryFilter, orderings []core.DBOrdering) ([]Profile, error) {
	if !actor.Role.CanManageUsers() {
		return nil, core.ErrPermissionDenied
	}
	filter.Clean()
	return svc.repo.QueryProfiles(ctx, filter, orderings)
}

// QuerySecretariat lists the general secretaries and deputies of a school/region.
func (svc *Service) QuerySecretariat(ctx context.Context, schoolID int) ([]Profile, error) {
	if schoolID <= 0 {
		return nil, core.NewFieldError("school_id", "this field is required")
	}
	profs, err := svc.repo.QueryProfiles(
		ctx,
		QueryFilter{SchoolID: schoolID, Roles: []Role{RoleGeneralSecretary, RoleDeputy}},
		[]core.DBOrdering{{Field: "role", Ascending: false}, {Field: "full_name", Ascending: true}},
	)
	return profs, errors.Wrap(err, "querying secretariat")
}

func (svc *Service) SetRole(ctx context.Context, actor Profile, userID string, role Role) (Profile, error) {
	if !actor.Role.CanManageUsers() {
		return Profile{}, core.ErrPermissionDenied
	}
	if !role.IsValid() {
		return Profile{}, core.NewFieldError("role", userRoleText)
	}
	if !actor.Role.CanGrant(role) {
		return Profile{}, core.NewFieldError("role", errNoPermsToSetRole)
	}
	prof, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, errors.Wrap(err, "getting profile")
	}
	// nobody changes the role of a superior
	if prof.UserID != actor.UserID && prof.Role.Priority() > actor.Role.Priority() {
		return Profile{}, core.ErrPermissionDenied
	}
	prof.Role = role
	prof.SecretaryType = secretaryTypeOf(role)
	prof.UpdatedAt = core.Now()
	prof, err = svc.repo.UpdateProfile(ctx, prof)
	return prof, errors.Wrap(err, "updating profile")
}

func (svc *Service) SetSchool(ctx context.Context, actor Profile, userID string, schoolID int) (Profile, error) {
	if !actor.Role.CanManageUsers() {
		return Profile{}, core.ErrPermissionDenied
	}
	if schoolID < 0 {
		return Profile{}, core.NewFieldError("school_id", "invalid school")
	}
	prof, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, errors.Wrap(err, "getting profile")
	}
	prof.SchoolID = schoolID
	prof.UpdatedAt = core.Now()
	prof, err = svc.repo.UpdateProfile(ctx, prof)
	return prof, errors.Wrap(err, "updating profile")
}

// ResetPassword sets a new password without the old one. Used by operators.
func (svc *Service) ResetPassword(ctx context.Context, email, pwd string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "finding user by email")
	}
	if err := ValidatePassword(pwd, usr.Email); err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "setting password")
	}
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
