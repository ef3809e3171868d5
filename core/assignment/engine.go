package assignment

import (
	"math/rand"
	"sort"
	"time"

	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/conference"
)

const (
	PassKept      = 0 // placement held before the run
	PassPrimary   = 1
	PassSecondary = 2
	PassTertiary  = 3
)

type (
	// Placement is the computed seat of one application.
	Placement struct {
		ApplicationID string `json:"application_id"`
		CommitteeID   string `json:"committee_id"`
		Country       string `json:"country,omitempty"`
		Pass          int    `json:"pass"`
		// Changed is set when the placement differs from the stored one.
		Changed bool `json:"changed"`
	}

	CommitteeStats struct {
		CommitteeID string   `json:"committee_id"`
		Name        string   `json:"name"`
		Assigned    int      `json:"assigned"`
		Capacity    int      `json:"capacity"`
		Countries   []string `json:"claimed_countries"`
	}

	// Outcome of a single engine run.
	Outcome struct {
		Placements []Placement      `json:"placements"`
		Unassigned []string         `json:"unassigned"`
		Committees []CommitteeStats `json:"committees"`
	}

	slot struct {
		committee conference.Committee
		count     int
		claimed   map[string]struct{}
		claimedBy []string
	}
)

func (s *slot) hasRoom() bool {
	return s.count < s.committee.Capacity
}

func (s *slot) claim(country string) {
	if _, ok := s.claimed[country]; ok {
		return
	}
	s.claimed[country] = struct{}{}
	s.claimedBy = append(s.claimedBy, country)
}

func (s *slot) available() []string {
	res := make([]string, 0, len(s.committee.Countries))
	for _, c := range s.committee.Countries {
		if _, ok := s.claimed[c]; !ok {
			res = append(res, c)
		}
	}
	return res
}

// Assign places the approved applications into committees, then picks their countries.
//
// Committees are walked by ascending priority and applications in the given order.
// Applications already placed in one of the committees keep their seat and country.
// The others are tried against their primary, secondary then tertiary choice, each pass
// gated by the committee capacity. Countries are picked at random among the unclaimed ones
// of the committee; rng may be nil.
func Assign(committees []conference.Committee, apps []application.Application, rng *rand.Rand) Outcome {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	ordered := make([]conference.Committee, len(committees))
	copy(ordered, committees)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority < ordered[j].Priority })

	slots := make(map[string]*slot, len(ordered))
	for _, cm := range ordered {
		slots[cm.ID] = &slot{committee: cm, claimed: make(map[string]struct{}), claimedBy: []string{}}
	}

	approved := make([]application.Application, 0, len(apps))
	for _, a := range apps {
		if a.Status == application.StatusApproved {
			approved = append(approved, a)
		}
	}

	seats := make(map[string]*Placement, len(approved))
	for _, a := range approved {
		if s, ok := slots[a.AssignedCommitteeID]; ok {
			s.count++
			seats[a.ID] = &Placement{ApplicationID: a.ID, CommitteeID: a.AssignedCommitteeID, Pass: PassKept}
		}
	}
	for pass := PassPrimary; pass <= PassTertiary; pass++ {
		for _, a := range approved {
			if _, ok := seats[a.ID]; ok {
				continue
			}
			s, ok := slots[a.Choices()[pass-1]]
			if !ok || !s.hasRoom() {
				continue
			}
			s.count++
			seats[a.ID] = &Placement{ApplicationID: a.ID, CommitteeID: s.committee.ID, Pass: pass}
		}
	}

	// previously assigned countries are claimed before any random pick
	for _, a := range approved {
		if p, ok := seats[a.ID]; ok && a.AssignedCountry != "" {
			p.Country = a.AssignedCountry
			slots[p.CommitteeID].claim(p.Country)
		}
	}

	out := Outcome{Placements: make([]Placement, 0, len(seats)), Unassigned: []string{}}
	for _, a := range approved {
		p, ok := seats[a.ID]
		if !ok {
			out.Unassigned = append(out.Unassigned, a.ID)
			continue
		}
		if p.Country == "" {
			s := slots[p.CommitteeID]
			if free := s.available(); len(free) > 0 {
				p.Country = free[rng.Intn(len(free))]
				s.claim(p.Country)
			}
		}
		p.Changed = p.CommitteeID != a.AssignedCommitteeID || p.Country != a.AssignedCountry
		out.Placements = append(out.Placements, *p)
	}

	out.Committees = make([]CommitteeStats, 0, len(ordered))
	for _, cm := range ordered {
		s := slots[cm.ID]
		out.Committees = append(out.Committees, CommitteeStats{
			CommitteeID: cm.ID,
			Name:        cm.Name,
			Assigned:    s.count,
			Capacity:    cm.Capacity,
			Countries:   s.claimedBy,
		})
	}
	return out
}

// Changed returns the placements that must be persisted.
func (o Outcome) Changed() []Placement {
	var res []Placement
	for _, p := range o.Placements {
		if p.Changed {
			res = append(res, p)
		}
	}
	return res
}
