package inmemdb

import (
	"context"
	"sort"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
)

type applicationRepository struct {
	db *applicationTable
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) application.Repository {
	return &applicationRepository{db: db.application}
}

func (repo *applicationRepository) CreateApplication(_ context.Context, a application.Application) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	for _, stored := range repo.db.table {
		if stored.ConferenceID == a.ConferenceID && stored.UserID == a.UserID {
			return application.Application{}, application.ErrAlreadyApplied
		}
	}
	repo.db.table[a.ID] = &a
	repo.db.next++
	repo.db.seq[a.ID] = repo.db.next
	return a, nil
}

func (repo *applicationRepository) GetApplication(_ context.Context, id string) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) GetUserApplication(_ context.Context, conferenceID, userID string) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	for _, a := range repo.db.table {
		if a.ConferenceID == conferenceID && a.UserID == userID {
			return *a, nil
		}
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) QueryApplications(_ context.Context, filter application.QueryFilter) ([]application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]application.Application, 0)
	for _, a := range repo.db.table {
		if filter.ConferenceID != "" && a.ConferenceID != filter.ConferenceID {
			continue
		}
		if filter.UserID != "" && a.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasAppStatus(filter.Statuses, a.Status) {
			continue
		}
		apps = append(apps, *a)
	}
	sort.Slice(apps, func(i, j int) bool {
		return newerFirst(apps[i].CreatedAt.UnixNano(), apps[j].CreatedAt.UnixNano(), repo.db.seq[apps[i].ID], repo.db.seq[apps[j].ID])
	})
	return apps, nil
}

func hasAppStatus(statuses []application.Status, s application.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (repo *applicationRepository) update(id string, fn func(a *application.Application)) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	a, ok := repo.db.table[id]
	if !ok {
		return application.Application{}, application.ErrNotFound
	}
	fn(a)
	a.UpdatedAt = core.Now()
	return *a, nil
}

func (repo *applicationRepository) UpdateStatus(_ context.Context, id string, status application.Status) (application.Application, error) {
	return repo.update(id, func(a *application.Application) { a.Status = status })
}

func (repo *applicationRepository) UpdatePlacement(_ context.Context, id string, p application.Placement) (application.Application, error) {
	return repo.update(id, func(a *application.Application) {
		a.AssignedCommitteeID = p.CommitteeID
		a.AssignedCountry = p.Country
	})
}
