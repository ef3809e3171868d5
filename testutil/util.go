package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/qazmun/mun/assets"
	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/registration"
	"github.com/qazmun/mun/core/user"
	emailsvc "github.com/qazmun/mun/services/email"
	logsvc "github.com/qazmun/mun/services/logger"
)

const FounderEmail = "founder@mun.test"

func Config() *core.Config {
	return &core.Config{
		Env:             "TEST",
		TestMode:        true,
		AppName:         "MUN",
		SecretKey:       "test-secret",
		FounderEmail:    FounderEmail,
		FrontendBaseURL: "http://front.test",
		Server: core.ServerConfig{
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Email: core.EmailConfig{Provider: "console", From: "MUN <noreply@mun.test>"},
	}
}

// MailService returns an email service keeping the rendered messages.
func MailService(t *testing.T) *emailsvc.ConsoleServiceMock {
	t.Helper()
	conf := Config()
	tmpls, err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf)
	if err != nil {
		t.Fatalf("ParseEmailTemplates() failed: %v", err)
	}
	return emailsvc.NewConsoleServiceMock(conf, tmpls, logsvc.NewTest(t))
}

// NewValidator returns a validator with the core and every domain validator registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	application.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)
	return validate, translator
}

// CreateUser stores an active user with its profile. The password is only hashed when not empty.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	fullName, email, pwd string,
	role user.Role,
	schoolID int,
	createdAt ...time.Time,
) (user.User, user.Profile) {
	t.Helper()
	tstamp := core.Now()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Email:     email,
		IsActive:  true,
		CreatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	prof := user.Profile{
		FullName:  fullName,
		Role:      role,
		SchoolID:  schoolID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	switch role {
	case user.RoleGeneralSecretary:
		prof.SecretaryType = user.SecretaryGeneral
	case user.RoleDeputy:
		prof.SecretaryType = user.SecretaryDeputy
	}
	usr, prof, err := repo.CreateUser(context.Background(), usr, prof)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr, prof
}

func Committee(id, name string, capacity, priority int, countries ...string) conference.Committee {
	if countries == nil {
		countries = []string{}
	}
	return conference.Committee{
		ID:        id,
		Name:      name,
		Capacity:  capacity,
		Priority:  priority,
		Countries: countries,
		Languages: []string{},
	}
}

// CreateConference stores a conference created by creator, with registration open.
func CreateConference(
	t *testing.T,
	repo conference.Repository,
	creator user.Profile,
	name string,
	status conference.Status,
	committees ...conference.Committee,
) conference.Conference {
	t.Helper()
	now := core.Now()
	conf := conference.Conference{
		ID:               uuid.NewString(),
		Name:             core.Localized{RU: name, KK: name, EN: name},
		Date:             core.Localized{RU: "1 мая", KK: "1 мамыр", EN: "May 1"},
		Location:         "Astana",
		FeeCurrency:      conference.DefaultCurrency,
		Languages:        []string{"en", "ru"},
		Status:           status,
		RegistrationOpen: true,
		CreatorID:        creator.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
		Committees:       committees,
	}
	if status == conference.StatusPublished {
		conf.ApprovedBy = creator.UserID
		conf.ApprovedAt = &now
	}
	conf, err := repo.CreateConference(context.Background(), conf)
	if err != nil {
		t.Fatalf("CreateConference() failed: %v", err)
	}
	return conf
}

// CreateApplication stores the application of applicant; choices are committee ids by rank.
func CreateApplication(
	t *testing.T,
	repo application.Repository,
	conf conference.Conference,
	applicant user.Profile,
	status application.Status,
	choices ...string,
) application.Application {
	t.Helper()
	var ranked [3]string
	copy(ranked[:], choices)
	now := core.Now()
	a, err := repo.CreateApplication(context.Background(), application.Application{
		ID:              uuid.NewString(),
		ConferenceID:    conf.ID,
		UserID:          applicant.UserID,
		FullName:        applicant.FullName,
		Email:           applicant.Email,
		PrimaryChoice:   ranked[0],
		SecondaryChoice: ranked[1],
		TertiaryChoice:  ranked[2],
		Status:          status,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateApplication() failed: %v", err)
	}
	return a
}
