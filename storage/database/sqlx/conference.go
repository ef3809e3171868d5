package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/conference"
)

const conferenceColumns = `id, name_ru, name_kk, name_en, date_ru, date_kk, date_en,
       description_ru, description_kk, description_en, conditions_ru, conditions_kk, conditions_en,
       time, location, city_id, organizer_contact, fee_amount, fee_currency, languages, status,
       registration_open, creator_id, approved_by, approved_at, created_at, updated_at`

type (
	conferenceRow struct {
		ID               string         `db:"id"`
		NameRU           string         `db:"name_ru"`
		NameKK           string         `db:"name_kk"`
		NameEN           string         `db:"name_en"`
		DateRU           string         `db:"date_ru"`
		DateKK           string         `db:"date_kk"`
		DateEN           string         `db:"date_en"`
		DescriptionRU    string         `db:"description_ru"`
		DescriptionKK    string         `db:"description_kk"`
		DescriptionEN    string         `db:"description_en"`
		ConditionsRU     string         `db:"conditions_ru"`
		ConditionsKK     string         `db:"conditions_kk"`
		ConditionsEN     string         `db:"conditions_en"`
		Time             string         `db:"time"`
		Location         string         `db:"location"`
		CityID           null.Int       `db:"city_id"`
		OrganizerContact string         `db:"organizer_contact"`
		FeeAmount        float64        `db:"fee_amount"`
		FeeCurrency      string         `db:"fee_currency"`
		Languages        pq.StringArray `db:"languages"`
		Status           string         `db:"status"`
		RegistrationOpen bool           `db:"registration_open"`
		CreatorID        string         `db:"creator_id"`
		ApprovedBy       null.String    `db:"approved_by"`
		ApprovedAt       null.Time      `db:"approved_at"`
		CreatedAt        time.Time      `db:"created_at"`
		UpdatedAt        time.Time      `db:"updated_at"`
	}

	committeeRow struct {
		ID           string         `db:"id"`
		ConferenceID string         `db:"conference_id"`
		Name         string         `db:"name"`
		Topic        string         `db:"topic"`
		Capacity     int            `db:"capacity"`
		Priority     int            `db:"priority"`
		Countries    pq.StringArray `db:"countries"`
		Languages    pq.StringArray `db:"languages"`
	}
)

func stringArray(ss []string) pq.StringArray {
	if ss == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(ss)
}

func newConferenceRow(c conference.Conference) conferenceRow {
	row := conferenceRow{
		ID:               c.ID,
		NameRU:           c.Name.RU,
		NameKK:           c.Name.KK,
		NameEN:           c.Name.EN,
		DateRU:           c.Date.RU,
		DateKK:           c.Date.KK,
		DateEN:           c.Date.EN,
		DescriptionRU:    c.Description.RU,
		DescriptionKK:    c.Description.KK,
		DescriptionEN:    c.Description.EN,
		ConditionsRU:     c.Conditions.RU,
		ConditionsKK:     c.Conditions.KK,
		ConditionsEN:     c.Conditions.EN,
		Time:             c.Time,
		Location:         c.Location,
		CityID:           null.NewInt(c.CityID, c.CityID != 0),
		OrganizerContact: c.OrganizerContact,
		FeeAmount:        c.FeeAmount,
		FeeCurrency:      c.FeeCurrency,
		Languages:        stringArray(c.Languages),
		Status:           string(c.Status),
		RegistrationOpen: c.RegistrationOpen,
		CreatorID:        c.CreatorID,
		ApprovedBy:       null.NewString(c.ApprovedBy, c.ApprovedBy != ""),
		ApprovedAt:       null.TimeFromPtr(c.ApprovedAt),
		CreatedAt:        c.CreatedAt.UTC(),
		UpdatedAt:        c.UpdatedAt.UTC(),
	}
	return row
}

func (r conferenceRow) toConference() conference.Conference {
	c := conference.Conference{
		ID:               r.ID,
		Name:             core.Localized{RU: r.NameRU, KK: r.NameKK, EN: r.NameEN},
		Date:             core.Localized{RU: r.DateRU, KK: r.DateKK, EN: r.DateEN},
		Description:      core.Localized{RU: r.DescriptionRU, KK: r.DescriptionKK, EN: r.DescriptionEN},
		Conditions:       core.Localized{RU: r.ConditionsRU, KK: r.ConditionsKK, EN: r.ConditionsEN},
		Time:             r.Time,
		Location:         r.Location,
		CityID:           r.CityID.Int,
		OrganizerContact: r.OrganizerContact,
		FeeAmount:        r.FeeAmount,
		FeeCurrency:      r.FeeCurrency,
		Languages:        []string(r.Languages),
		Status:           conference.Status(r.Status),
		RegistrationOpen: r.RegistrationOpen,
		CreatorID:        r.CreatorID,
		ApprovedBy:       r.ApprovedBy.String,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
	if r.ApprovedAt.Valid {
		t := r.ApprovedAt.Time.UTC()
		c.ApprovedAt = &t
	}
	if c.Languages == nil {
		c.Languages = []string{}
	}
	return c
}

func newCommitteeRow(cm conference.Committee) committeeRow {
	return committeeRow{
		ID:           cm.ID,
		ConferenceID: cm.ConferenceID,
		Name:         cm.Name,
		Topic:        cm.Topic,
		Capacity:     cm.Capacity,
		Priority:     cm.Priority,
		Countries:    stringArray(cm.Countries),
		Languages:    stringArray(cm.Languages),
	}
}

func (r committeeRow) toCommittee() conference.Committee {
	cm := conference.Committee{
		ID:           r.ID,
		ConferenceID: r.ConferenceID,
		Name:         r.Name,
		Topic:        r.Topic,
		Capacity:     r.Capacity,
		Priority:     r.Priority,
		Countries:    []string(r.Countries),
		Languages:    []string(r.Languages),
	}
	if cm.Countries == nil {
		cm.Countries = []string{}
	}
	if cm.Languages == nil {
		cm.Languages = []string{}
	}
	return cm
}

type conferenceRepository struct {
	db *sqlx.DB
}

var _ conference.Repository = (*conferenceRepository)(nil) // interface compliance check

func NewConferenceRepository(db *sqlx.DB) conference.Repository {
	return &conferenceRepository{db: db}
}

const (
	insertConference = `INSERT INTO conferences (` + conferenceColumns + `)
VALUES (:id, :name_ru, :name_kk, :name_en, :date_ru, :date_kk, :date_en,
        :description_ru, :description_kk, :description_en, :conditions_ru, :conditions_kk, :conditions_en,
        :time, :location, :city_id, :organizer_contact, :fee_amount, :fee_currency, :languages, :status,
        :registration_open, :creator_id, :approved_by, :approved_at, :created_at, :updated_at)`
	insertCommittee = `INSERT INTO committees (id, conference_id, name, topic, capacity, priority, countries, languages)
VALUES (:id, :conference_id, :name, :topic, :capacity, :priority, :countries, :languages)`
)

func (repo *conferenceRepository) CreateConference(ctx context.Context, conf conference.Conference) (conference.Conference, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertConference, newConferenceRow(conf)); err != nil {
			return errors.Wrap(err, "inserting conference")
		}
		for _, cm := range conf.Committees {
			cm.ConferenceID = conf.ID
			if _, err := tx.NamedExecContext(ctx, insertCommittee, newCommitteeRow(cm)); err != nil {
				return errors.Wrapf(err, "inserting committee %q", cm.Name)
			}
		}
		return nil
	})
	if err != nil {
		return conference.Conference{}, err
	}
	return conf, nil
}

func (repo *conferenceRepository) GetConference(ctx context.Context, id string) (conference.Conference, error) {
	var row conferenceRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+conferenceColumns+" FROM conferences WHERE id = $1", id); err != nil {
		return conference.Conference{}, notFound(err, conference.ErrNotFound)
	}
	return row.toConference(), nil
}

func (repo *conferenceRepository) QueryConferences(ctx context.Context, filter conference.QueryFilter) ([]conference.Conference, error) {
	var conds conditions
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conds.add("status = ANY(?)", pq.StringArray(statuses))
	}
	if filter.CreatorID != "" {
		conds.add("creator_id = ?", filter.CreatorID)
	}
	if filter.RegistrationOpen != nil {
		conds.add("registration_open = ?", *filter.RegistrationOpen)
	}
	q := "SELECT " + conferenceColumns + " FROM conferences" + conds.where() + " ORDER BY created_at DESC"
	q += conds.limit(filter.Limit)

	var rows []conferenceRow
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, err
	}
	confs := make([]conference.Conference, 0, len(rows))
	for _, r := range rows {
		confs = append(confs, r.toConference())
	}
	return confs, nil
}

func (repo *conferenceRepository) UpdateConference(ctx context.Context, conf conference.Conference) (conference.Conference, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE conferences
SET status = :status, registration_open = :registration_open, approved_by = :approved_by,
    approved_at = :approved_at, updated_at = :updated_at
WHERE id = :id`, newConferenceRow(conf))
	if err != nil {
		return conference.Conference{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return conference.Conference{}, conference.ErrNotFound
	}
	return conf, nil
}

func (repo *conferenceRepository) DeleteConference(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM conferences WHERE id = $1", id)
	return err
}

func (repo *conferenceRepository) QueryCommittees(ctx context.Context, conferenceID string) ([]conference.Committee, error) {
	var rows []committeeRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT id, conference_id, name, topic, capacity, priority, countries, languages
FROM committees WHERE conference_id = $1 ORDER BY priority ASC, name ASC`, conferenceID)
	if err != nil {
		return nil, err
	}
	cms := make([]conference.Committee, 0, len(rows))
	for _, r := range rows {
		cms = append(cms, r.toCommittee())
	}
	return cms, nil
}
