package inmemdb

import (
	"context"

	"github.com/qazmun/mun/core/registration"
)

type registrationRepository struct {
	db *registrationTable
}

var _ registration.Repository = (*registrationRepository)(nil) // interface compliance check

func NewRegistrationRepository(db *DB) registration.Repository {
	return &registrationRepository{db: db.registration}
}

func (repo *registrationRepository) CreateRegistration(_ context.Context, r registration.Registration) (registration.Registration, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table = append(repo.db.table, r)
	return r, nil
}

func (repo *registrationRepository) QueryUserRegistrations(_ context.Context, userID string) ([]registration.Registration, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	regs := make([]registration.Registration, 0)
	for i := len(repo.db.table) - 1; i >= 0; i-- {
		if r := repo.db.table[i]; r.UserID != "" && r.UserID == userID {
			regs = append(regs, r)
		}
	}
	return regs, nil
}
