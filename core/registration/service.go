package registration

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

type (
	Repository interface {
		CreateRegistration(ctx context.Context, r Registration) (Registration, error)
		// QueryUserRegistrations returns the newest first.
		QueryUserRegistrations(ctx context.Context, userID string) ([]Registration, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Create stores a Registration. actor is nil for anonymous registrations.
func (svc *Service) Create(ctx context.Context, actor *user.Profile, nr NewRegistration) (Registration, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Registration{}, err
	}
	reg := Registration{
		ID:         uuid.NewString(),
		Conference: nr.Conference,
		FullName:   nr.FullName,
		School:     nr.School,
		Email:      nr.Email,
		Grade:      nr.Grade,
		Motivation: nr.Motivation,
		CreatedAt:  core.Now(),
	}
	if actor != nil {
		reg.UserID = actor.UserID
	}
	reg, err := svc.repo.CreateRegistration(ctx, reg)
	return reg, errors.Wrap(err, "creating registration")
}

func (svc *Service) QueryMine(ctx context.Context, actor user.Profile) ([]Registration, error) {
	return svc.repo.QueryUserRegistrations(ctx, actor.UserID)
}
