package application

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/conference"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Application is a delegate's ranked committee preferences for one Conference.
type Application struct {
	ID              string `json:"id"`
	ConferenceID    string `json:"conference_id"`
	UserID          string `json:"user_id"`
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	School          string `json:"school"`
	Motivation      string `json:"motivation"`
	PrimaryChoice   string `json:"primary_choice,omitempty"`
	SecondaryChoice string `json:"secondary_choice,omitempty"`
	TertiaryChoice  string `json:"tertiary_choice,omitempty"`
	Status          Status `json:"status"`
	// placement; only set by the assignment engine or a manual override
	AssignedCommitteeID string    `json:"assigned_committee_id,omitempty"`
	AssignedCountry     string    `json:"assigned_country,omitempty"`
	CreatedAt           time.Time `json:"created_at"` // UTC
	UpdatedAt           time.Time `json:"updated_at"` // UTC
}

// Choices returns the committee choices by rank (primary, secondary, tertiary); empty ones are kept.
func (a Application) Choices() [3]string {
	return [3]string{a.PrimaryChoice, a.SecondaryChoice, a.TertiaryChoice}
}

func (a Application) IsAssigned() bool {
	return a.AssignedCommitteeID != ""
}

// NewApplication contains information needed to apply to a Conference.
type NewApplication struct {
	FullName        string `json:"full_name" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Phone           string `json:"phone" validate:"omitempty,phone_kz"`
	School          string `json:"school" validate:"max=500"`
	Motivation      string `json:"motivation" validate:"max=5000"`
	PrimaryChoice   string `json:"primary_choice"`
	SecondaryChoice string `json:"secondary_choice"`
	TertiaryChoice  string `json:"tertiary_choice"`
}

// Validate cleans na and checks that its choices are distinct committees of the conference.
func (na *NewApplication) Validate(validate *validator.Validate, committees []conference.Committee) error {
	na.FullName = core.CleanString(na.FullName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Phone = core.CleanPhone(na.Phone)
	na.School = core.CleanString(na.School)
	na.Motivation = core.CleanString(na.Motivation)
	na.PrimaryChoice = core.CleanString(na.PrimaryChoice)
	na.SecondaryChoice = core.CleanString(na.SecondaryChoice)
	na.TertiaryChoice = core.CleanString(na.TertiaryChoice)

	if err := validate.Struct(na); err != nil {
		return err
	}

	known := make(map[string]struct{}, len(committees))
	for _, cm := range committees {
		known[cm.ID] = struct{}{}
	}
	seen := make(map[string]struct{}, 3)
	var flds []core.FieldError
	for _, choice := range []struct {
		field, id string
	}{
		{"primary_choice", na.PrimaryChoice},
		{"secondary_choice", na.SecondaryChoice},
		{"tertiary_choice", na.TertiaryChoice},
	} {
		if choice.id == "" {
			continue
		}
		if _, ok := known[choice.id]; !ok {
			flds = append(flds, core.FieldError{Field: choice.field, Error: "unknown committee"})
			continue
		}
		if _, ok := seen[choice.id]; ok {
			flds = append(flds, core.FieldError{Field: choice.field, Error: "committee already chosen"})
			continue
		}
		seen[choice.id] = struct{}{}
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Placement of an Application in a committee, and optionally a country of that committee.
// An empty Placement clears it.
type Placement struct {
	CommitteeID string `json:"committee_id"`
	Country     string `json:"country"`
}

type QueryFilter struct {
	ConferenceID string
	UserID       string
	Statuses     []Status
}

// StatusUpdate is the payload of a status change.
type StatusUpdate struct {
	Status Status `json:"status" validate:"required,appstatus"`
}
