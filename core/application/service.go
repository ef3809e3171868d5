package application

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/user"
)

var (
	// errors
	ErrNotFound           = fmt.Errorf("application %w", core.ErrNotFound)
	ErrAlreadyApplied     = errors.New("you have already applied to this conference")
	ErrRegistrationClosed = errors.New("registration for this conference is closed")
)

type (
	Repository interface {
		// CreateApplication returns ErrAlreadyApplied when the user already applied to the conference.
		CreateApplication(ctx context.Context, a Application) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		GetUserApplication(ctx context.Context, conferenceID, userID string) (Application, error)
		// QueryApplications returns the newest first.
		QueryApplications(ctx context.Context, filter QueryFilter) ([]Application, error)
		UpdateStatus(ctx context.Context, id string, status Status) (Application, error)
		// UpdatePlacement sets (or clears, for empty values) the assigned committee and country.
		UpdatePlacement(ctx context.Context, id string, p Placement) (Application, error)
	}

	// Conferences is the read side of conference.Service needed here.
	Conferences interface {
		Get(ctx context.Context, actor *user.Profile, id string) (conference.Conference, error)
		GetManaged(ctx context.Context, actor user.Profile, id string) (conference.Conference, error)
	}

	Service struct {
		repo        Repository
		conferences Conferences
		mailSvc     core.EmailService
		validate    *validator.Validate
	}
)

func NewService(repo Repository, conferences Conferences, mailSvc core.EmailService, validate *validator.Validate) *Service {
	return &Service{
		repo:        repo,
		conferences: conferences,
		mailSvc:     mailSvc,
		validate:    validate,
	}
}

// Submit stores the application of actor to a published conference whose registration is open.
func (svc *Service) Submit(ctx context.Context, actor user.Profile, conferenceID string, na NewApplication) (Application, error) {
	conf, err := svc.conferences.Get(ctx, &actor, conferenceID)
	if err != nil {
		return Application{}, err
	}
	if !conf.AcceptsApplications() {
		return Application{}, core.NewValidationError(ErrRegistrationClosed)
	}
	if err := na.Validate(svc.validate, conf.Committees); err != nil {
		return Application{}, err
	}

	now := core.Now()
	a, err := svc.repo.CreateApplication(ctx, Application{
		ID:              uuid.NewString(),
		ConferenceID:    conf.ID,
		UserID:          actor.UserID,
		FullName:        na.FullName,
		Email:           na.Email,
		Phone:           na.Phone,
		School:          na.School,
		Motivation:      na.Motivation,
		PrimaryChoice:   na.PrimaryChoice,
		SecondaryChoice: na.SecondaryChoice,
		TertiaryChoice:  na.TertiaryChoice,
		Status:          StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyApplied) {
			return Application{}, core.NewValidationError(ErrAlreadyApplied)
		}
		return Application{}, errors.Wrap(err, "creating application")
	}
	return a, nil
}

// GetMine returns the application of actor to a conference.
func (svc *Service) GetMine(ctx context.Context, actor user.Profile, conferenceID string) (Application, error) {
	return svc.repo.GetUserApplication(ctx, conferenceID, actor.UserID)
}

func (svc *Service) QueryMine(ctx context.Context, actor user.Profile) ([]Application, error) {
	return svc.repo.QueryApplications(ctx, QueryFilter{UserID: actor.UserID})
}

// QueryByConference lists the applications of a conference actor manages, newest first.
func (svc *Service) QueryByConference(ctx context.Context, actor user.Profile, conferenceID string, statuses ...Status) ([]Application, error) {
	if _, err := svc.conferences.GetManaged(ctx, actor, conferenceID); err != nil {
		return nil, err
	}
	return svc.repo.QueryApplications(ctx, QueryFilter{ConferenceID: conferenceID, Statuses: statuses})
}

// getManaged returns the application with its conference, if actor manages the latter.
func (svc *Service) getManaged(ctx context.Context, actor user.Profile, id string) (Application, conference.Conference, error) {
	a, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, conference.Conference{}, err
	}
	conf, err := svc.conferences.GetManaged(ctx, actor, a.ConferenceID)
	if err != nil {
		return Application{}, conference.Conference{}, err
	}
	return a, conf, nil
}

// SetStatus approves, rejects or resets an application. The applicant is notified by email.
func (svc *Service) SetStatus(ctx context.Context, actor user.Profile, id string, su StatusUpdate) (Application, error) {
	if err := svc.validate.Struct(su); err != nil {
		return Application{}, err
	}
	a, conf, err := svc.getManaged(ctx, actor, id)
	if err != nil {
		return Application{}, err
	}
	if a.Status == su.Status {
		return a, nil
	}
	if a, err = svc.repo.UpdateStatus(ctx, id, su.Status); err != nil {
		return Application{}, errors.Wrap(err, "updating status")
	}
	// only approved applications hold a seat
	if su.Status != StatusApproved && a.IsAssigned() {
		if a, err = svc.repo.UpdatePlacement(ctx, id, Placement{}); err != nil {
			return Application{}, errors.Wrap(err, "clearing placement")
		}
	}

	if su.Status != StatusPending && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: a.FullName, Address: a.Email}},
			Subject:      "Your application to " + conf.Name.EN,
			TemplateName: "application_status",
			TemplateData: map[string]interface{}{
				"FullName":       a.FullName,
				"ConferenceName": conf.Name.EN,
				"Status":         string(a.Status),
			},
		})
	}
	return a, nil
}

// SetPlacement manually places an application, keeping the committee capacity and the country uniqueness.
func (svc *Service) SetPlacement(ctx context.Context, actor user.Profile, id string, p Placement) (Application, error) {
	p.CommitteeID = core.CleanString(p.CommitteeID)
	p.Country = core.CleanString(p.Country)

	a, conf, err := svc.getManaged(ctx, actor, id)
	if err != nil {
		return Application{}, err
	}
	if a.Status != StatusApproved {
		return Application{}, core.NewFieldError("status", "only approved applications can be placed")
	}
	if p.CommitteeID == "" {
		if p.Country != "" {
			return Application{}, core.NewFieldError("committee_id", "this field is required")
		}
		a, err = svc.repo.UpdatePlacement(ctx, id, Placement{})
		return a, errors.Wrap(err, "clearing placement")
	}

	var cm *conference.Committee
	for i := range conf.Committees {
		if conf.Committees[i].ID == p.CommitteeID {
			cm = &conf.Committees[i]
			break
		}
	}
	if cm == nil {
		return Application{}, core.NewFieldError("committee_id", "unknown committee")
	}
	if p.Country != "" && len(cm.Countries) > 0 && !cm.HasCountry(p.Country) {
		return Application{}, core.NewFieldError("country", "country is not available in this committee")
	}

	members, err := svc.repo.QueryApplications(ctx, QueryFilter{ConferenceID: conf.ID})
	if err != nil {
		return Application{}, errors.Wrap(err, "querying applications")
	}
	var count int
	for _, m := range members {
		if m.ID == a.ID || m.AssignedCommitteeID != cm.ID {
			continue
		}
		count++
		if p.Country != "" && m.AssignedCountry == p.Country {
			return Application{}, core.NewFieldError("country", "country is already taken in this committee")
		}
	}
	if count >= cm.Capacity {
		return Application{}, core.NewFieldError("committee_id", "committee is full")
	}

	a, err = svc.repo.UpdatePlacement(ctx, id, p)
	return a, errors.Wrap(err, "updating placement")
}
