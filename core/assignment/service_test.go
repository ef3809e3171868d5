package assignment_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/assignment"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/user"
	emailsvc "github.com/qazmun/mun/services/email"
	logsvc "github.com/qazmun/mun/services/logger"
	inmemdb "github.com/qazmun/mun/storage/database/inmem"
	"github.com/qazmun/mun/testutil"
)

type run struct {
	success    bool
	placed     int
	unassigned int
}

type metricsRecorder struct {
	mu   sync.Mutex
	runs []run
}

func (m *metricsRecorder) ObserveRun(success bool, placed, unassigned int, _ time.Duration) {
	m.mu.Lock()
	m.runs = append(m.runs, run{success, placed, unassigned})
	m.mu.Unlock()
}

// failingRepo refuses to place one application.
type failingRepo struct {
	application.Repository
	failID string
}

func (r *failingRepo) UpdatePlacement(ctx context.Context, id string, p application.Placement) (application.Application, error) {
	if id == r.failID {
		return application.Application{}, errors.New("deadlock detected")
	}
	return r.Repository.UpdatePlacement(ctx, id, p)
}

type env struct {
	apps     application.Repository
	confSvc  *conference.Service
	mail     *emailsvc.ConsoleServiceMock
	metrics  *metricsRecorder
	creator  user.Profile
	member   user.Profile
	conf     conference.Conference
	kept     application.Application // seated in sc before any run
	newest   application.Application // sc then ga
	middle   application.Application // sc then ga
	oldest   application.Application // sc only
	rejected application.Application
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)
	confs := inmemdb.NewConferenceRepository(db)
	validate, _ := testutil.NewValidator()
	e := &env{
		apps:    inmemdb.NewApplicationRepository(db),
		confSvc: conference.NewService(confs, nil, nil, validate, logsvc.NewTest(t)),
		mail:    testutil.MailService(t),
		metrics: &metricsRecorder{},
	}
	_, e.creator = testutil.CreateUser(t, users, "Aigerim", "gs@test.kz", "", user.RoleGeneralSecretary, 3)
	_, e.member = testutil.CreateUser(t, users, "Ali", "ali@test.kz", "", user.RoleParticipant, 0)
	e.conf = testutil.CreateConference(t, confs, e.creator, "MUN Astana", conference.StatusPublished,
		testutil.Committee("ga", "General Assembly", 15, 2),
		testutil.Committee("sc", "Security Council", 2, 1, "USA", "UK"),
	)

	delegate := func(name string) user.Profile {
		_, prof := testutil.CreateUser(t, users, name, name+"@test.kz", "", user.RoleParticipant, 0)
		return prof
	}
	e.kept = testutil.CreateApplication(t, e.apps, e.conf, delegate("kept"), application.StatusApproved, "ga")
	_, err := e.apps.UpdatePlacement(ctx, e.kept.ID, application.Placement{CommitteeID: "sc"})
	require.NoError(t, err)
	e.oldest = testutil.CreateApplication(t, e.apps, e.conf, delegate("oldest"), application.StatusApproved, "sc")
	e.middle = testutil.CreateApplication(t, e.apps, e.conf, delegate("middle"), application.StatusApproved, "sc", "ga")
	e.rejected = testutil.CreateApplication(t, e.apps, e.conf, delegate("rejected"), application.StatusRejected, "sc")
	e.newest = testutil.CreateApplication(t, e.apps, e.conf, delegate("newest"), application.StatusApproved, "sc", "ga")
	return e
}

func (e *env) service(t *testing.T, repo assignment.Repository) *assignment.Service {
	svc := assignment.NewService(repo, e.confSvc, e.mail, e.metrics, logsvc.NewTest(t))
	svc.SetRand(rand.New(rand.NewSource(7)))
	svc.SetConcurrency(2)
	return svc
}

func TestService_Run(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := e.service(t, e.apps)

	res, err := svc.Run(ctx, e.creator, e.conf.ID)
	require.NoError(t, err)
	assert.Equal(t, e.conf.ID, res.ConferenceID)
	assert.Equal(t, 3, res.Placed, "kept gets a country, newest and middle get seats")
	assert.Equal(t, []string{e.oldest.ID}, res.Unassigned)
	require.Len(t, res.Committees, 2)
	assert.Equal(t, "sc", res.Committees[0].CommitteeID, "by priority")
	assert.Equal(t, 2, res.Committees[0].Assigned)
	assert.ElementsMatch(t, []string{"USA", "UK"}, res.Committees[0].Countries)
	assert.Equal(t, 1, res.Committees[1].Assigned)

	kept, err := e.apps.GetApplication(ctx, e.kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "sc", kept.AssignedCommitteeID)
	assert.NotEmpty(t, kept.AssignedCountry)
	newest, err := e.apps.GetApplication(ctx, e.newest.ID)
	require.NoError(t, err)
	assert.Equal(t, "sc", newest.AssignedCommitteeID)
	assert.NotEqual(t, kept.AssignedCountry, newest.AssignedCountry)
	middle, err := e.apps.GetApplication(ctx, e.middle.ID)
	require.NoError(t, err)
	assert.Equal(t, "ga", middle.AssignedCommitteeID)
	assert.Empty(t, middle.AssignedCountry)
	rejected, err := e.apps.GetApplication(ctx, e.rejected.ID)
	require.NoError(t, err)
	assert.False(t, rejected.IsAssigned())

	sent := e.mail.Sent()
	require.Len(t, sent, 2, "only newly seated delegates are notified")
	byEmail := map[string]core.EmailMessage{}
	for _, msg := range sent {
		byEmail[msg.To[0].Address] = msg
	}
	require.Contains(t, byEmail, "newest@test.kz")
	require.Contains(t, byEmail, "middle@test.kz")
	assert.Equal(t, "Your committee at MUN Astana", byEmail["newest@test.kz"].Subject)
	assert.Contains(t, byEmail["newest@test.kz"].TextContent, "You have been placed in Security Council at MUN Astana.")
	assert.Contains(t, byEmail["newest@test.kz"].TextContent, "You will represent: "+newest.AssignedCountry+".")
	assert.Contains(t, byEmail["middle@test.kz"].TextContent, "placed in General Assembly at MUN Astana.")
	assert.NotContains(t, byEmail["middle@test.kz"].TextContent, "You will represent")

	t.Run("repeated run changes nothing", func(t *testing.T) {
		e.mail.Reset()
		res, err := svc.Run(ctx, e.creator, e.conf.ID)
		require.NoError(t, err)
		assert.Zero(t, res.Placed)
		assert.Equal(t, []string{e.oldest.ID}, res.Unassigned)
		assert.Len(t, res.Placements, 3)
		for _, p := range res.Placements {
			assert.False(t, p.Changed)
			assert.Equal(t, assignment.PassKept, p.Pass)
		}
		assert.Empty(t, e.mail.Sent())
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := svc.Stats(ctx, e.creator, e.conf.ID)
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, "Security Council", stats[0].Name)
		assert.Equal(t, 2, stats[0].Assigned)
		assert.Equal(t, 2, stats[0].Capacity)
		assert.ElementsMatch(t, []string{"USA", "UK"}, stats[0].Countries)
		assert.Equal(t, 1, stats[1].Assigned)
		assert.Equal(t, []string{}, stats[1].Countries)
	})

	assert.Equal(t, []run{{true, 3, 1}, {true, 0, 1}}, e.metrics.runs)
}

func TestService_Run_partialFailure(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := e.service(t, &failingRepo{Repository: e.apps, failID: e.middle.ID})

	res, err := svc.Run(ctx, e.creator, e.conf.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "placing application "+e.middle.ID+": deadlock detected")
	assert.Equal(t, 2, res.Placed)

	middle, err := e.apps.GetApplication(ctx, e.middle.ID)
	require.NoError(t, err)
	assert.False(t, middle.IsAssigned())
	newest, err := e.apps.GetApplication(ctx, e.newest.ID)
	require.NoError(t, err)
	assert.Equal(t, "sc", newest.AssignedCommitteeID, "stored placements are kept")

	sent := e.mail.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "newest@test.kz", sent[0].To[0].Address)
	assert.Equal(t, []run{{false, 2, 1}}, e.metrics.runs)

	t.Run("repeating completes the run", func(t *testing.T) {
		res, err := e.service(t, e.apps).Run(ctx, e.creator, e.conf.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Placed)
	})
}

func TestService_permissions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	svc := e.service(t, e.apps)

	_, err := svc.Run(ctx, e.member, e.conf.ID)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	_, err = svc.Stats(ctx, e.member, e.conf.ID)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	_, err = svc.Run(ctx, e.creator, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, []run{{false, 0, 0}, {false, 0, 0}}, e.metrics.runs)
	assert.Empty(t, e.mail.Sent())
}
