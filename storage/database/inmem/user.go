package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) EmailExists(_ context.Context, email string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, usr := range repo.db.users {
		if usr.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, prof user.Profile) (user.User, user.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.Profile{}, user.ErrEmailExists
		}
	}

	prof.UserID = usr.ID
	prof.Email = usr.Email
	repo.db.users[usr.ID] = &usr
	repo.db.profiles[usr.ID] = &prof
	repo.db.next++
	repo.db.seq[usr.ID] = repo.db.next
	return usr, prof, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if usr, ok := repo.db.users[id]; ok {
		return *usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, usr := range repo.db.users {
		if usr.Email == email {
			return *usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.users[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) CreateProfile(_ context.Context, prof user.Profile) (user.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	usr, ok := repo.db.users[prof.UserID]
	if !ok {
		return user.Profile{}, user.ErrNotFound
	}
	prof.Email = usr.Email
	repo.db.profiles[prof.UserID] = &prof
	return prof, nil
}

func (repo *userRepository) GetProfile(_ context.Context, userID string) (user.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if prof, ok := repo.db.profiles[userID]; ok {
		return *prof, nil
	}
	return user.Profile{}, user.ErrProfileNotFound
}

func (repo *userRepository) UpdateProfile(_ context.Context, prof user.Profile) (user.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.profiles[prof.UserID]; !ok {
		return user.Profile{}, user.ErrProfileNotFound
	}
	repo.db.profiles[prof.UserID] = &prof
	return prof, nil
}

func (repo *userRepository) QueryProfiles(_ context.Context, filter user.QueryFilter, orderings []core.DBOrdering) ([]user.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	profs := make([]user.Profile, 0, len(repo.db.profiles))
	for _, prof := range repo.db.profiles {
		if search != "" &&
			!strings.Contains(strings.ToLower(prof.FullName), search) &&
			!strings.Contains(strings.ToLower(prof.Email), search) &&
			!strings.Contains(strings.ToLower(prof.Phone), search) {
			continue
		}
		if len(filter.Roles) > 0 && !hasRole(filter.Roles, prof.Role) {
			continue
		}
		if filter.SchoolID != 0 && prof.SchoolID != filter.SchoolID {
			continue
		}
		profs = append(profs, *prof)
	}

	sort.SliceStable(profs, func(i, j int) bool {
		pi, pj := profs[i], profs[j]
		for _, ord := range orderings {
			c := compareProfiles(pi, pj, ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return newerFirst(pi.CreatedAt.UnixNano(), pj.CreatedAt.UnixNano(), repo.db.seq[pi.UserID], repo.db.seq[pj.UserID])
	})
	return profs, nil
}

func hasRole(roles []user.Role, role user.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// compareProfiles returns -1, 0 or 1. Unknown fields compare equal.
func compareProfiles(a, b user.Profile, field string) int {
	switch field {
	case "full_name":
		return strings.Compare(a.FullName, b.FullName)
	case "email":
		return strings.Compare(a.Email, b.Email)
	case "role":
		return strings.Compare(string(a.Role), string(b.Role))
	case "school_id":
		return compareInts(a.SchoolID, b.SchoolID)
	case "created_at":
		return compareInts(int(a.CreatedAt.UnixNano()), int(b.CreatedAt.UnixNano()))
	case "updated_at":
		return compareInts(int(a.UpdatedAt.UnixNano()), int(b.UpdatedAt.UnixNano()))
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
