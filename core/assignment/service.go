package assignment

import (
	"context"
	"math/rand"
	"net/mail"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/user"
)

const defaultConcurrency = 8

type (
	// Repository is the part of the applications store the engine reads and writes.
	Repository interface {
		QueryApplications(ctx context.Context, filter application.QueryFilter) ([]application.Application, error)
		UpdatePlacement(ctx context.Context, id string, p application.Placement) (application.Application, error)
	}

	Conferences interface {
		GetManaged(ctx context.Context, actor user.Profile, id string) (conference.Conference, error)
	}

	Metrics interface {
		ObserveRun(success bool, placed, unassigned int, took time.Duration)
	}

	Service struct {
		repo        Repository
		conferences Conferences
		mailSvc     core.EmailService
		metrics     Metrics
		logger      core.Logger
		concurrency int

		mu  sync.Mutex
		rng *rand.Rand
	}

	// Result is returned to the organizer once a run completes.
	Result struct {
		ConferenceID string           `json:"conference_id"`
		Placed       int              `json:"placed"`
		Placements   []Placement      `json:"placements"`
		Unassigned   []string         `json:"unassigned"`
		Committees   []CommitteeStats `json:"committees"`
	}
)

func NewService(repo Repository, conferences Conferences, mailSvc core.EmailService, metrics Metrics, logger core.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		repo:        repo,
		conferences: conferences,
		mailSvc:     mailSvc,
		metrics:     metrics,
		logger:      logger,
		concurrency: defaultConcurrency,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetConcurrency bounds the number of placements written at once.
func (svc *Service) SetConcurrency(n int) {
	if n > 0 {
		svc.concurrency = n
	}
}

// SetRand replaces the source used for country picks.
func (svc *Service) SetRand(rng *rand.Rand) {
	svc.mu.Lock()
	svc.rng = rng
	svc.mu.Unlock()
}

// Run assigns the approved applications of a conference actor manages and stores the new placements.
// Stored placements are never rolled back: on error the run can simply be repeated.
func (svc *Service) Run(ctx context.Context, actor user.Profile, conferenceID string) (res Result, err error) {
	start := time.Now()
	defer func() {
		svc.metrics.ObserveRun(err == nil, res.Placed, len(res.Unassigned), time.Since(start))
	}()

	conf, apps, err := svc.load(ctx, actor, conferenceID)
	if err != nil {
		return Result{}, err
	}

	svc.mu.Lock()
	out := Assign(conf.Committees, apps, svc.rng)
	svc.mu.Unlock()

	changed := out.Changed()
	res = Result{
		ConferenceID: conf.ID,
		Placements:   out.Placements,
		Unassigned:   out.Unassigned,
		Committees:   out.Committees,
	}

	byID := make(map[string]application.Application, len(apps))
	for _, a := range apps {
		byID[a.ID] = a
	}
	names := make(map[string]string, len(conf.Committees))
	for _, cm := range conf.Committees {
		names[cm.ID] = cm.Name
	}

	// a client going away must not cut the batch short
	wctx := context.WithoutCancel(ctx)
	var placed int64
	var msgsMu sync.Mutex
	msgs := make([]*core.EmailMessage, 0, len(changed))

	g := new(errgroup.Group)
	g.SetLimit(svc.concurrency)
	for _, p := range changed {
		p := p
		g.Go(func() error {
			a, err := svc.repo.UpdatePlacement(wctx, p.ApplicationID, application.Placement{
				CommitteeID: p.CommitteeID,
				Country:     p.Country,
			})
			if err != nil {
				return errors.Wrapf(err, "placing application %s", p.ApplicationID)
			}
			atomic.AddInt64(&placed, 1)
			if byID[p.ApplicationID].AssignedCommitteeID == p.CommitteeID {
				return nil
			}
			msgsMu.Lock()
			msgs = append(msgs, placementMessage(conf, names[p.CommitteeID], a))
			msgsMu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	res.Placed = int(placed)

	if len(msgs) > 0 && svc.mailSvc != nil {
		svc.mailSvc.SendMessages(msgs...)
	}
	if err != nil {
		svc.logger.Error("assignment run incomplete", err, actor, map[string]interface{}{
			"conference_id": conf.ID,
			"placed":        res.Placed,
			"pending":       len(changed) - res.Placed,
		})
		return res, err
	}
	svc.logger.Info("assignment run completed", actor, map[string]interface{}{
		"conference_id": conf.ID,
		"placed":        res.Placed,
		"unassigned":    len(res.Unassigned),
	})
	return res, nil
}

// Stats counts the current placements of every committee of a conference actor manages.
func (svc *Service) Stats(ctx context.Context, actor user.Profile, conferenceID string) ([]CommitteeStats, error) {
	conf, apps, err := svc.load(ctx, actor, conferenceID)
	if err != nil {
		return nil, err
	}

	stats := make([]CommitteeStats, 0, len(conf.Committees))
	index := make(map[string]int, len(conf.Committees))
	for i, cm := range conf.Committees {
		index[cm.ID] = i
		stats = append(stats, CommitteeStats{
			CommitteeID: cm.ID,
			Name:        cm.Name,
			Capacity:    cm.Capacity,
			Countries:   []string{},
		})
	}
	for _, a := range apps {
		i, ok := index[a.AssignedCommitteeID]
		if !ok {
			continue
		}
		stats[i].Assigned++
		if a.AssignedCountry != "" {
			stats[i].Countries = append(stats[i].Countries, a.AssignedCountry)
		}
	}
	return stats, nil
}

func (svc *Service) load(ctx context.Context, actor user.Profile, conferenceID string) (conference.Conference, []application.Application, error) {
	conf, err := svc.conferences.GetManaged(ctx, actor, conferenceID)
	if err != nil {
		return conference.Conference{}, nil, err
	}
	apps, err := svc.repo.QueryApplications(ctx, application.QueryFilter{
		ConferenceID: conf.ID,
		Statuses:     []application.Status{application.StatusApproved},
	})
	if err != nil {
		return conference.Conference{}, nil, errors.Wrap(err, "querying approved applications")
	}
	return conf, apps, nil
}

func placementMessage(conf conference.Conference, committee string, a application.Application) *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: a.FullName, Address: a.Email}},
		Subject:      "Your committee at " + conf.Name.EN,
		TemplateName: "placement",
		TemplateData: map[string]interface{}{
			"FullName":       a.FullName,
			"CommitteeName":  committee,
			"ConferenceName": conf.Name.EN,
			"Country":        a.AssignedCountry,
		},
	}
}

type nopMetrics struct{}

func (nopMetrics) ObserveRun(bool, int, int, time.Duration) {}
