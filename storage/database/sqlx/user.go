package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

const profileSelect = `SELECT p.user_id, u.email, p.full_name, p.phone, p.bio, p.photo_url, p.role,
       p.school_id, p.secretary_type, p.created_at, p.updated_at
FROM profiles p JOIN users u ON u.id = p.user_id`

var profileOrderings = map[string]string{
	"full_name":  "p.full_name",
	"email":      "u.email",
	"role":       "p.role",
	"school_id":  "p.school_id",
	"created_at": "p.created_at",
	"updated_at": "p.updated_at",
}

type (
	userRow struct {
		ID           string    `db:"id"`
		Email        string    `db:"email"`
		PasswordHash []byte    `db:"password_hash"`
		IsActive     bool      `db:"is_active"`
		CreatedAt    time.Time `db:"created_at"`
		LastLogin    null.Time `db:"last_login"`
	}

	profileRow struct {
		UserID        string      `db:"user_id"`
		Email         string      `db:"email"`
		FullName      string      `db:"full_name"`
		Phone         string      `db:"phone"`
		Bio           string      `db:"bio"`
		PhotoURL      null.String `db:"photo_url"`
		Role          string      `db:"role"`
		SchoolID      null.Int    `db:"school_id"`
		SecretaryType null.String `db:"secretary_type"`
		CreatedAt     time.Time   `db:"created_at"`
		UpdatedAt     time.Time   `db:"updated_at"`
	}
)

func newUserRow(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Email:        usr.Email,
		PasswordHash: usr.PasswordHash,
		IsActive:     usr.IsActive,
		CreatedAt:    usr.CreatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsActive:     r.IsActive,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if r.LastLogin.Valid {
		usr.LastLogin = r.LastLogin.Time.UTC()
	}
	return usr
}

func newProfileRow(prof user.Profile) profileRow {
	return profileRow{
		UserID:        prof.UserID,
		Email:         prof.Email,
		FullName:      prof.FullName,
		Phone:         prof.Phone,
		Bio:           prof.Bio,
		PhotoURL:      null.NewString(prof.PhotoURL, prof.PhotoURL != ""),
		Role:          string(prof.Role),
		SchoolID:      null.NewInt(prof.SchoolID, prof.SchoolID != 0),
		SecretaryType: null.NewString(string(prof.SecretaryType), prof.SecretaryType != ""),
		CreatedAt:     prof.CreatedAt.UTC(),
		UpdatedAt:     prof.UpdatedAt.UTC(),
	}
}

func (r profileRow) toProfile() user.Profile {
	return user.Profile{
		UserID:        r.UserID,
		Email:         r.Email,
		FullName:      r.FullName,
		Phone:         r.Phone,
		Bio:           r.Bio,
		PhotoURL:      r.PhotoURL.String,
		Role:          user.Role(r.Role),
		SchoolID:      r.SchoolID.Int,
		SecretaryType: user.SecretaryType(r.SecretaryType.String),
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := repo.db.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)", email)
	return exists, err
}

const (
	insertUser = `INSERT INTO users (id, email, password_hash, is_active, created_at, last_login)
VALUES (:id, :email, :password_hash, :is_active, :created_at, :last_login)`
	insertProfile = `INSERT INTO profiles (user_id, full_name, phone, bio, photo_url, role, school_id, secretary_type, created_at, updated_at)
VALUES (:user_id, :full_name, :phone, :bio, :photo_url, :role, :school_id, :secretary_type, :created_at, :updated_at)`
)

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, prof user.Profile) (user.User, user.Profile, error) {
	prof.UserID = usr.ID
	prof.Email = usr.Email
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertUser, newUserRow(usr)); err != nil {
			if isUniqueViolation(err) {
				return user.ErrEmailExists
			}
			return errors.Wrap(err, "inserting user")
		}
		_, err := tx.NamedExecContext(ctx, insertProfile, newProfileRow(prof))
		return errors.Wrap(err, "inserting profile")
	})
	if err != nil {
		return user.User{}, user.Profile{}, err
	}
	return usr, prof, nil
}

func (repo *userRepository) getUser(ctx context.Context, column, value string) (user.User, error) {
	var row userRow
	q := "SELECT id, email, password_hash, is_active, created_at, last_login FROM users WHERE " + column + " = $1"
	if err := repo.db.GetContext(ctx, &row, q, value); err != nil {
		return user.User{}, notFound(err, user.ErrNotFound)
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "id", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "email", email)
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE users
SET email = :email, password_hash = :password_hash, is_active = :is_active, last_login = :last_login
WHERE id = :id`, newUserRow(usr))
	if err != nil {
		return user.User{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo *userRepository) CreateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertProfile, newProfileRow(prof)); err != nil {
		return user.Profile{}, err
	}
	return prof, nil
}

func (repo *userRepository) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, profileSelect+" WHERE p.user_id = $1", userID); err != nil {
		return user.Profile{}, notFound(err, user.ErrProfileNotFound)
	}
	return row.toProfile(), nil
}

func (repo *userRepository) UpdateProfile(ctx context.Context, prof user.Profile) (user.Profile, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE profiles
SET full_name = :full_name, phone = :phone, bio = :bio, photo_url = :photo_url, role = :role,
    school_id = :school_id, secretary_type = :secretary_type, updated_at = :updated_at
WHERE user_id = :user_id`, newProfileRow(prof))
	if err != nil {
		return user.Profile{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.Profile{}, user.ErrProfileNotFound
	}
	return prof, nil
}

func (repo *userRepository) QueryProfiles(ctx context.Context, filter user.QueryFilter, orderings []core.DBOrdering) ([]user.Profile, error) {
	var conds conditions
	if filter.Search != "" {
		conds.add("(p.full_name ILIKE ? OR u.email ILIKE ? OR p.phone ILIKE ?)", "%"+escapeLike(filter.Search)+"%")
	}
	if len(filter.Roles) > 0 {
		roles := make([]string, 0, len(filter.Roles))
		for _, r := range filter.Roles {
			roles = append(roles, string(r))
		}
		conds.add("p.role = ANY(?)", pq.StringArray(roles))
	}
	if filter.SchoolID != 0 {
		conds.add("p.school_id = ?", filter.SchoolID)
	}
	q := profileSelect + conds.where() +
		" ORDER BY " + core.OrderByClause(orderings, profileOrderings, "p.created_at DESC")

	var rows []profileRow
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, err
	}
	profs := make([]user.Profile, 0, len(rows))
	for _, r := range rows {
		profs = append(profs, r.toProfile())
	}
	return profs, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
