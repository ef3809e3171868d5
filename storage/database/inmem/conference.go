package inmemdb

import (
	"context"
	"sort"

	"github.com/qazmun/mun/core/conference"
)

type conferenceRepository struct {
	db   *conferenceTable
	apps *applicationTable
}

var _ conference.Repository = (*conferenceRepository)(nil) // interface compliance check

func NewConferenceRepository(db *DB) conference.Repository {
	return &conferenceRepository{db: db.conference, apps: db.application}
}

func copyConference(c conference.Conference) conference.Conference {
	c.Languages = append([]string{}, c.Languages...)
	c.Committees = nil
	if c.ApprovedAt != nil {
		t := *c.ApprovedAt
		c.ApprovedAt = &t
	}
	return c
}

func copyCommittee(cm conference.Committee) conference.Committee {
	cm.Countries = append([]string{}, cm.Countries...)
	cm.Languages = append([]string{}, cm.Languages...)
	return cm
}

func (repo *conferenceRepository) CreateConference(_ context.Context, conf conference.Conference) (conference.Conference, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	committees := make([]conference.Committee, 0, len(conf.Committees))
	for _, cm := range conf.Committees {
		cm.ConferenceID = conf.ID
		committees = append(committees, copyCommittee(cm))
	}
	stored := copyConference(conf)
	repo.db.conferences[conf.ID] = &stored
	repo.db.committees[conf.ID] = committees
	repo.db.next++
	repo.db.seq[conf.ID] = repo.db.next

	conf.Committees = committees
	return conf, nil
}

func (repo *conferenceRepository) GetConference(_ context.Context, id string) (conference.Conference, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if c, ok := repo.db.conferences[id]; ok {
		return copyConference(*c), nil
	}
	return conference.Conference{}, conference.ErrNotFound
}

func (repo *conferenceRepository) QueryConferences(_ context.Context, filter conference.QueryFilter) ([]conference.Conference, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	confs := make([]conference.Conference, 0, len(repo.db.conferences))
	for _, c := range repo.db.conferences {
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, c.Status) {
			continue
		}
		if filter.CreatorID != "" && c.CreatorID != filter.CreatorID {
			continue
		}
		if filter.RegistrationOpen != nil && c.RegistrationOpen != *filter.RegistrationOpen {
			continue
		}
		confs = append(confs, copyConference(*c))
	}
	sort.Slice(confs, func(i, j int) bool {
		return newerFirst(confs[i].CreatedAt.UnixNano(), confs[j].CreatedAt.UnixNano(), repo.db.seq[confs[i].ID], repo.db.seq[confs[j].ID])
	})
	if filter.Limit > 0 && len(confs) > filter.Limit {
		confs = confs[:filter.Limit]
	}
	return confs, nil
}

func hasStatus(statuses []conference.Status, s conference.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (repo *conferenceRepository) UpdateConference(_ context.Context, conf conference.Conference) (conference.Conference, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	stored, ok := repo.db.conferences[conf.ID]
	if !ok {
		return conference.Conference{}, conference.ErrNotFound
	}
	stored.Status = conf.Status
	stored.RegistrationOpen = conf.RegistrationOpen
	stored.ApprovedBy = conf.ApprovedBy
	stored.ApprovedAt = conf.ApprovedAt
	stored.UpdatedAt = conf.UpdatedAt
	return copyConference(*stored), nil
}

// DeleteConference cascades to the committees and the applications.
func (repo *conferenceRepository) DeleteConference(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	delete(repo.db.conferences, id)
	delete(repo.db.committees, id)
	delete(repo.db.seq, id)
	repo.db.mutex.Unlock()

	repo.apps.mutex.Lock()
	defer repo.apps.mutex.Unlock()
	for appID, a := range repo.apps.table {
		if a.ConferenceID == id {
			delete(repo.apps.table, appID)
			delete(repo.apps.seq, appID)
		}
	}
	return nil
}

func (repo *conferenceRepository) QueryCommittees(_ context.Context, conferenceID string) ([]conference.Committee, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	stored := repo.db.committees[conferenceID]
	cms := make([]conference.Committee, 0, len(stored))
	for _, cm := range stored {
		cms = append(cms, copyCommittee(cm))
	}
	sort.SliceStable(cms, func(i, j int) bool {
		if cms[i].Priority != cms[j].Priority {
			return cms[i].Priority < cms[j].Priority
		}
		return cms[i].Name < cms[j].Name
	})
	return cms, nil
}
