package conference

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/qazmun/mun/core"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"

	DefaultCurrency = "KZT"
	DefaultCapacity = 15
)

type Conference struct {
	ID               string         `json:"id"`
	Name             core.Localized `json:"name"`
	Date             core.Localized `json:"date"`
	Description      core.Localized `json:"description"`
	Conditions       core.Localized `json:"conditions"`
	Time             string         `json:"time"`
	Location         string         `json:"location"`
	CityID           int            `json:"city_id,omitempty"`
	OrganizerContact string         `json:"organizer_contact"`
	FeeAmount        float64        `json:"fee_amount"`
	FeeCurrency      string         `json:"fee_currency"`
	Languages        []string       `json:"languages"`
	Status           Status         `json:"status"`
	RegistrationOpen bool           `json:"registration_open"`
	CreatorID        string         `json:"creator_id"`
	ApprovedBy       string         `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time     `json:"approved_at,omitempty"` // UTC
	CreatedAt        time.Time      `json:"created_at"`            // UTC
	UpdatedAt        time.Time      `json:"updated_at"`            // UTC
	Committees       []Committee    `json:"committees,omitempty"`
}

func (c Conference) IsPublished() bool {
	return c.Status == StatusPublished
}

// AcceptsApplications tells whether delegates may currently apply.
func (c Conference) AcceptsApplications() bool {
	return c.IsPublished() && c.RegistrationOpen
}

// Committee belongs to exactly one Conference. Priority only orders committees during assignment.
type Committee struct {
	ID           string   `json:"id"`
	ConferenceID string   `json:"conference_id"`
	Name         string   `json:"name"`
	Topic        string   `json:"topic"`
	Capacity     int      `json:"capacity"`
	Priority     int      `json:"priority"`
	Countries    []string `json:"countries"`
	Languages    []string `json:"languages"`
}

func (c Committee) HasCountry(country string) bool {
	for _, cntry := range c.Countries {
		if cntry == country {
			return true
		}
	}
	return false
}

type NewCommittee struct {
	Name      string   `json:"name"`
	Topic     string   `json:"topic"`
	Capacity  int      `json:"capacity" validate:"gte=0"`
	Priority  int      `json:"priority"`
	Countries []string `json:"countries"`
	Languages []string `json:"languages"`
}

// NewConference contains information needed to create a Conference.
type NewConference struct {
	Name             core.Localized `json:"name"`
	Date             core.Localized `json:"date"`
	Description      core.Localized `json:"description"`
	Conditions       core.Localized `json:"conditions"`
	Time             string         `json:"time" validate:"max=64"`
	Location         string         `json:"location" validate:"max=500"`
	CityID           int            `json:"city_id" validate:"gte=0"`
	OrganizerContact string         `json:"organizer_contact" validate:"max=500"`
	FeeAmount        float64        `json:"fee_amount" validate:"gte=0"`
	FeeCurrency      string         `json:"fee_currency" validate:"omitempty,len=3,alpha"`
	Languages        []string       `json:"languages"`
	RegistrationOpen *bool          `json:"registration_open"`
	Committees       []NewCommittee `json:"committees" validate:"dive"`
}

// Validate cleans nc and checks it. Committees without a name are dropped; at least one must remain.
func (nc *NewConference) Validate(validate *validator.Validate) error {
	nc.Name = nc.Name.Clean()
	nc.Date = nc.Date.Clean()
	nc.Description = nc.Description.Clean()
	nc.Conditions = nc.Conditions.Clean()
	nc.Time = core.CleanString(nc.Time)
	nc.Location = core.CleanString(nc.Location)
	nc.OrganizerContact = core.CleanString(nc.OrganizerContact)
	nc.FeeCurrency = core.CleanString(nc.FeeCurrency)
	if nc.FeeCurrency == "" {
		nc.FeeCurrency = DefaultCurrency
	}
	nc.Languages = core.CleanStrings(nc.Languages)

	committees := make([]NewCommittee, 0, len(nc.Committees))
	for _, cm := range nc.Committees {
		cm.Name = core.CleanString(cm.Name)
		if cm.Name == "" {
			continue
		}
		cm.Topic = core.CleanString(cm.Topic)
		if cm.Capacity == 0 {
			cm.Capacity = DefaultCapacity
		}
		if cm.Priority == 0 {
			cm.Priority = len(committees) + 1
		}
		cm.Countries = core.CleanStrings(cm.Countries)
		cm.Languages = core.CleanStrings(cm.Languages)
		committees = append(committees, cm)
	}
	nc.Committees = committees

	if err := validate.Struct(nc); err != nil {
		return err
	}

	var flds []core.FieldError
	if nc.Name.IsEmpty() {
		flds = append(flds, core.FieldError{Field: "name", Error: "this field is required"})
	}
	if len(nc.Committees) == 0 {
		flds = append(flds, core.FieldError{Field: "committees", Error: "at least one committee is required"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

type QueryFilter struct {
	Statuses         []Status
	CreatorID        string
	RegistrationOpen *bool
	Limit            int
}

// PublishedFilter filters the public listing.
type PublishedFilter struct {
	RegistrationOpen *bool `query:"registration_open"`
	Limit            int   `query:"limit"`
}

// CacheKey identifies the listing in the Cache.
func (pf PublishedFilter) CacheKey() string {
	open := "any"
	if pf.RegistrationOpen != nil {
		open = strconv.FormatBool(*pf.RegistrationOpen)
	}
	return open + ":" + strconv.Itoa(pf.Limit)
}
