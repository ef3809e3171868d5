package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
)

const applicationColumns = `id, conference_id, user_id, full_name, email, phone, school, motivation,
       primary_choice, secondary_choice, tertiary_choice, status, assigned_committee_id, assigned_country,
       created_at, updated_at`

type applicationRow struct {
	ID                  string      `db:"id"`
	ConferenceID        string      `db:"conference_id"`
	UserID              string      `db:"user_id"`
	FullName            string      `db:"full_name"`
	Email               string      `db:"email"`
	Phone               string      `db:"phone"`
	School              string      `db:"school"`
	Motivation          string      `db:"motivation"`
	PrimaryChoice       null.String `db:"primary_choice"`
	SecondaryChoice     null.String `db:"secondary_choice"`
	TertiaryChoice      null.String `db:"tertiary_choice"`
	Status              string      `db:"status"`
	AssignedCommitteeID null.String `db:"assigned_committee_id"`
	AssignedCountry     null.String `db:"assigned_country"`
	CreatedAt           time.Time   `db:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at"`
}

func nullString(s string) null.String {
	return null.NewString(s, s != "")
}

func newApplicationRow(a application.Application) applicationRow {
	return applicationRow{
		ID:                  a.ID,
		ConferenceID:        a.ConferenceID,
		UserID:              a.UserID,
		FullName:            a.FullName,
		Email:               a.Email,
		Phone:               a.Phone,
		School:              a.School,
		Motivation:          a.Motivation,
		PrimaryChoice:       nullString(a.PrimaryChoice),
		SecondaryChoice:     nullString(a.SecondaryChoice),
		TertiaryChoice:      nullString(a.TertiaryChoice),
		Status:              string(a.Status),
		AssignedCommitteeID: nullString(a.AssignedCommitteeID),
		AssignedCountry:     nullString(a.AssignedCountry),
		CreatedAt:           a.CreatedAt.UTC(),
		UpdatedAt:           a.UpdatedAt.UTC(),
	}
}

func (r applicationRow) toApplication() application.Application {
	return application.Application{
		ID:                  r.ID,
		ConferenceID:        r.ConferenceID,
		UserID:              r.UserID,
		FullName:            r.FullName,
		Email:               r.Email,
		Phone:               r.Phone,
		School:              r.School,
		Motivation:          r.Motivation,
		PrimaryChoice:       r.PrimaryChoice.String,
		SecondaryChoice:     r.SecondaryChoice.String,
		TertiaryChoice:      r.TertiaryChoice.String,
		Status:              application.Status(r.Status),
		AssignedCommitteeID: r.AssignedCommitteeID.String,
		AssignedCountry:     r.AssignedCountry.String,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, a application.Application) (application.Application, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO delegate_applications (`+applicationColumns+`)
VALUES (:id, :conference_id, :user_id, :full_name, :email, :phone, :school, :motivation,
        :primary_choice, :secondary_choice, :tertiary_choice, :status, :assigned_committee_id, :assigned_country,
        :created_at, :updated_at)`, newApplicationRow(a))
	if err != nil {
		if isUniqueViolation(err) {
			return application.Application{}, application.ErrAlreadyApplied
		}
		return application.Application{}, err
	}
	return a, nil
}

func (repo *applicationRepository) get(ctx context.Context, where string, args ...interface{}) (application.Application, error) {
	var row applicationRow
	q := "SELECT " + applicationColumns + " FROM delegate_applications WHERE " + where
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return application.Application{}, notFound(err, application.ErrNotFound)
	}
	return row.toApplication(), nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (application.Application, error) {
	return repo.get(ctx, "id = $1", id)
}

func (repo *applicationRepository) GetUserApplication(ctx context.Context, conferenceID, userID string) (application.Application, error) {
	return repo.get(ctx, "conference_id = $1 AND user_id = $2", conferenceID, userID)
}

func (repo *applicationRepository) QueryApplications(ctx context.Context, filter application.QueryFilter) ([]application.Application, error) {
	var conds conditions
	if filter.ConferenceID != "" {
		conds.add("conference_id = ?", filter.ConferenceID)
	}
	if filter.UserID != "" {
		conds.add("user_id = ?", filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conds.add("status = ANY(?)", pq.StringArray(statuses))
	}
	q := "SELECT " + applicationColumns + " FROM delegate_applications" + conds.where() + " ORDER BY created_at DESC, id"

	var rows []applicationRow
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, err
	}
	apps := make([]application.Application, 0, len(rows))
	for _, r := range rows {
		apps = append(apps, r.toApplication())
	}
	return apps, nil
}

func (repo *applicationRepository) update(ctx context.Context, set string, args ...interface{}) (application.Application, error) {
	var row applicationRow
	q := "UPDATE delegate_applications SET " + set + " RETURNING " + applicationColumns
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return application.Application{}, notFound(err, application.ErrNotFound)
	}
	return row.toApplication(), nil
}

func (repo *applicationRepository) UpdateStatus(ctx context.Context, id string, status application.Status) (application.Application, error) {
	return repo.update(ctx, "status = $1, updated_at = $2 WHERE id = $3", string(status), core.Now(), id)
}

func (repo *applicationRepository) UpdatePlacement(ctx context.Context, id string, p application.Placement) (application.Application, error) {
	return repo.update(ctx, "assigned_committee_id = $1, assigned_country = $2, updated_at = $3 WHERE id = $4",
		nullString(p.CommitteeID), nullString(p.Country), core.Now(), id)
}
