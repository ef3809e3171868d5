package sqlxrepos

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/user"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlx.NewDb(db, "postgres"), mock
}

var profileCols = []string{
	"user_id", "email", "full_name", "phone", "bio", "photo_url", "role",
	"school_id", "secretary_type", "created_at", "updated_at",
}

func TestUserRepository_CreateUser(t *testing.T) {
	ctx := context.Background()
	now := core.Now()
	usr := user.User{ID: "u1", Email: "ali@test.kz", IsActive: true, CreatedAt: now}
	prof := user.Profile{FullName: "Ali", Role: user.RoleParticipant, CreatedAt: now, UpdatedAt: now}

	t.Run("stores user and profile in one transaction", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").
			WithArgs("u1", "ali@test.kz", sqlmock.AnyArg(), true, sqlmock.AnyArg(), nil).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO profiles").
			WithArgs("u1", "Ali", "", "", nil, "participant", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		gotUsr, gotProf, err := NewUserRepository(db).CreateUser(ctx, usr, prof)
		require.NoError(t, err)
		assert.Equal(t, usr, gotUsr)
		assert.Equal(t, "u1", gotProf.UserID)
		assert.Equal(t, "ali@test.kz", gotProf.Email)
	})

	t.Run("duplicate email", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, _, err := NewUserRepository(db).CreateUser(ctx, usr, prof)
		assert.True(t, errors.Is(err, user.ErrEmailExists))
	})

	t.Run("profile failure rolls back", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO profiles").WillReturnError(errors.New("boom"))
		mock.ExpectRollback()

		_, _, err := NewUserRepository(db).CreateUser(ctx, usr, prof)
		assert.EqualError(t, err, "inserting profile: boom")
	})
}

func TestUserRepository_GetProfile(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("nullable columns", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM profiles p JOIN users u").
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(profileCols).
				AddRow("u1", "gs@test.kz", "Aigerim", "", "", nil, "general_secretary", 7, "general", now, now))

		prof, err := NewUserRepository(db).GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, user.Profile{
			UserID:        "u1",
			Email:         "gs@test.kz",
			FullName:      "Aigerim",
			Role:          user.RoleGeneralSecretary,
			SchoolID:      7,
			SecretaryType: user.SecretaryGeneral,
			CreatedAt:     now,
			UpdatedAt:     now,
		}, prof)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM profiles p JOIN users u").WillReturnRows(sqlmock.NewRows(profileCols))

		_, err := NewUserRepository(db).GetProfile(ctx, "nope")
		assert.True(t, errors.Is(err, user.ErrProfileNotFound))
		assert.True(t, errors.Is(err, core.ErrNotFound))
	})
}

func TestUserRepository_QueryProfiles(t *testing.T) {
	db, mock := newMock(t)
	want := regexp.QuoteMeta("WHERE (p.full_name ILIKE $1 OR u.email ILIKE $1 OR p.phone ILIKE $1) " +
		"AND p.role = ANY($2) AND p.school_id = $3 ORDER BY p.role DESC, p.full_name ASC")
	mock.ExpectQuery(want).
		WithArgs(`%50\%%`, sqlmock.AnyArg(), 7).
		WillReturnRows(sqlmock.NewRows(profileCols))

	profs, err := NewUserRepository(db).QueryProfiles(
		context.Background(),
		user.QueryFilter{Search: "50%", Roles: []user.Role{user.RoleDeputy}, SchoolID: 7},
		[]core.DBOrdering{{Field: "role"}, {Field: "full_name", Ascending: true}, {Field: "password_hash"}},
	)
	require.NoError(t, err)
	assert.Empty(t, profs)
	assert.NotNil(t, profs)
}

func TestConferenceRepository_QueryConferences(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "name_ru", "name_kk", "name_en", "date_ru", "date_kk", "date_en",
		"description_ru", "description_kk", "description_en", "conditions_ru", "conditions_kk", "conditions_en",
		"time", "location", "city_id", "organizer_contact", "fee_amount", "fee_currency", "languages", "status",
		"registration_open", "creator_id", "approved_by", "approved_at", "created_at", "updated_at",
	}
	open := true
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = ANY($1) AND registration_open = $2 ORDER BY created_at DESC LIMIT $3")).
		WithArgs(sqlmock.AnyArg(), true, 4).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"c1", "МУН", "МУН", "MUN", "", "", "", "", "", "", "", "", "",
			"10:00", "Astana", nil, "", 1500.5, "KZT", "{en,ru}", "published",
			true, "u1", "u2", now, now, now,
		))

	confs, err := NewConferenceRepository(db).QueryConferences(context.Background(), conference.QueryFilter{
		Statuses:         []conference.Status{conference.StatusPublished},
		RegistrationOpen: &open,
		Limit:            4,
	})
	require.NoError(t, err)
	require.Len(t, confs, 1)
	c := confs[0]
	assert.Equal(t, "MUN", c.Name.EN)
	assert.Equal(t, 0, c.CityID)
	assert.Equal(t, 1500.5, c.FeeAmount)
	assert.Equal(t, []string{"en", "ru"}, c.Languages)
	assert.Equal(t, "u2", c.ApprovedBy)
	require.NotNil(t, c.ApprovedAt)
	assert.Equal(t, now, *c.ApprovedAt)
}

func TestConferenceRepository_CreateConference(t *testing.T) {
	db, mock := newMock(t)
	now := core.Now()
	conf := conference.Conference{
		ID:         "c1",
		Name:       core.Localized{RU: "a", KK: "a", EN: "a"},
		Status:     conference.StatusPending,
		CreatorID:  "u1",
		CreatedAt:  now,
		UpdatedAt:  now,
		Committees: []conference.Committee{{ID: "cm1", Name: "SC", Capacity: 2, Priority: 1}, {ID: "cm2", Name: "GA", Capacity: 15, Priority: 2}},
	}
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conferences").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO committees").
		WithArgs("cm1", "c1", "SC", "", 2, 1, "{}", "{}").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO committees").WillReturnError(errors.New("check violation"))
	mock.ExpectRollback()

	_, err := NewConferenceRepository(db).CreateConference(context.Background(), conf)
	assert.EqualError(t, err, `inserting committee "GA": check violation`)
}

func TestConferenceRepository_QueryCommittees(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM committees WHERE conference_id = \\$1 ORDER BY priority ASC").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "conference_id", "name", "topic", "capacity", "priority", "countries", "languages"}).
			AddRow("cm1", "c1", "Security Council", "", 2, 1, "{USA,UK,France}", "{}"))

	cms, err := NewConferenceRepository(db).QueryCommittees(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, cms, 1)
	assert.Equal(t, []string{"USA", "UK", "France"}, cms[0].Countries)
	assert.Equal(t, []string{}, cms[0].Languages)
}

func TestApplicationRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("already applied", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("INSERT INTO delegate_applications").WillReturnError(&pq.Error{Code: "23505"})

		_, err := NewApplicationRepository(db).CreateApplication(ctx, application.Application{ID: "a1"})
		assert.True(t, errors.Is(err, application.ErrAlreadyApplied))
	})

	t.Run("clear placement", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("UPDATE delegate_applications SET assigned_committee_id = $1, assigned_country = $2")).
			WithArgs(nil, nil, sqlmock.AnyArg(), "a1").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := NewApplicationRepository(db).UpdatePlacement(ctx, "a1", application.Placement{})
		assert.True(t, errors.Is(err, application.ErrNotFound))
	})

	t.Run("query by conference and status", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("WHERE conference_id = $1 AND status = ANY($2) ORDER BY created_at DESC")).
			WithArgs("c1", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		apps, err := NewApplicationRepository(db).QueryApplications(ctx, application.QueryFilter{
			ConferenceID: "c1",
			Statuses:     []application.Status{application.StatusApproved},
		})
		require.NoError(t, err)
		assert.Empty(t, apps)
	})
}
