package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/qazmun/mun/core/registration"
)

const registrationColumns = "id, conference, full_name, school, email, grade, motivation, user_id, created_at"

type registrationRow struct {
	ID         string      `db:"id"`
	Conference string      `db:"conference"`
	FullName   string      `db:"full_name"`
	School     string      `db:"school"`
	Email      string      `db:"email"`
	Grade      int         `db:"grade"`
	Motivation string      `db:"motivation"`
	UserID     null.String `db:"user_id"`
	CreatedAt  time.Time   `db:"created_at"`
}

type registrationRepository struct {
	db *sqlx.DB
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *sqlx.DB) registration.Repository {
	return &registrationRepository{db: db}
}

func (repo *registrationRepository) CreateRegistration(ctx context.Context, r registration.Registration) (registration.Registration, error) {
	row := registrationRow{
		ID:         r.ID,
		Conference: r.Conference,
		FullName:   r.FullName,
		School:     r.School,
		Email:      r.Email,
		Grade:      r.Grade,
		Motivation: r.Motivation,
		UserID:     nullString(r.UserID),
		CreatedAt:  r.CreatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO registrations (`+registrationColumns+`)
VALUES (:id, :conference, :full_name, :school, :email, :grade, :motivation, :user_id, :created_at)`, row)
	if err != nil {
		return registration.Registration{}, err
	}
	return r, nil
}

func (repo *registrationRepository) QueryUserRegistrations(ctx context.Context, userID string) ([]registration.Registration, error) {
	var rows []registrationRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+registrationColumns+" FROM registrations WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	regs := make([]registration.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, registration.Registration{
			ID:         r.ID,
			Conference: r.Conference,
			FullName:   r.FullName,
			School:     r.School,
			Email:      r.Email,
			Grade:      r.Grade,
			Motivation: r.Motivation,
			UserID:     r.UserID.String,
			CreatedAt:  r.CreatedAt.UTC(),
		})
	}
	return regs, nil
}
