package application

import (
	"context"
	"encoding/csv"
	"io"
	"sort"

	"github.com/pkg/errors"

	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/user"
)

var rosterHeader = []string{"committee", "country", "full_name", "email", "phone", "school"}

// Roster returns a manageable conference with its approved applications.
func (svc *Service) Roster(ctx context.Context, actor user.Profile, conferenceID string) (conference.Conference, []Application, error) {
	conf, err := svc.conferences.GetManaged(ctx, actor, conferenceID)
	if err != nil {
		return conference.Conference{}, nil, err
	}
	apps, err := svc.repo.QueryApplications(ctx, QueryFilter{ConferenceID: conferenceID, Statuses: []Status{StatusApproved}})
	if err != nil {
		return conference.Conference{}, nil, errors.Wrap(err, "querying applications")
	}
	return conf, apps, nil
}

// WriteRosterCSV writes the approved delegates grouped by committee (by priority), then by country.
// Unplaced delegates come last with an empty committee.
func WriteRosterCSV(w io.Writer, committees []conference.Committee, apps []Application) error {
	rank := make(map[string]int, len(committees))
	names := make(map[string]string, len(committees))
	for i, cm := range committees {
		rank[cm.ID] = i
		names[cm.ID] = cm.Name
	}
	rankOf := func(a Application) int {
		if r, ok := rank[a.AssignedCommitteeID]; ok {
			return r
		}
		return len(committees)
	}

	sorted := make([]Application, len(apps))
	copy(sorted, apps)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := rankOf(sorted[i]), rankOf(sorted[j])
		if ri != rj {
			return ri < rj
		}
		return sorted[i].AssignedCountry < sorted[j].AssignedCountry
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(rosterHeader); err != nil {
		return err
	}
	for _, a := range sorted {
		row := []string{names[a.AssignedCommitteeID], a.AssignedCountry, a.FullName, a.Email, a.Phone, a.School}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
