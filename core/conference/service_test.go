package conference_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/news"
	"github.com/qazmun/mun/core/user"
	logsvc "github.com/qazmun/mun/services/logger"
	inmemdb "github.com/qazmun/mun/storage/database/inmem"
	"github.com/qazmun/mun/testutil"
)

type memCache struct {
	mu          sync.Mutex
	entries     map[string][]conference.Conference
	hits        int
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]conference.Conference)}
}

func (c *memCache) GetPublished(_ context.Context, key string) ([]conference.Conference, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	confs, ok := c.entries[key]
	if ok {
		c.hits++
	}
	return confs, ok, nil
}

func (c *memCache) SetPublished(_ context.Context, key string, confs []conference.Conference) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = confs
	return nil
}

func (c *memCache) InvalidatePublished(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]conference.Conference)
	c.invalidated++
	return nil
}

type env struct {
	db      *inmemdb.DB
	repo    conference.Repository
	users   user.Repository
	news    *news.Service
	cache   *memCache
	svc     *conference.Service
	founder user.Profile
	admin   user.Profile
	gs      user.Profile
	deputy  user.Profile
	member  user.Profile
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := inmemdb.Open()
	e := &env{
		db:    db,
		repo:  inmemdb.NewConferenceRepository(db),
		users: inmemdb.NewUserRepository(db),
		news:  news.NewService(inmemdb.NewNewsRepository(db)),
		cache: newMemCache(),
	}
	validate, _ := testutil.NewValidator()
	e.svc = conference.NewService(e.repo, e.cache, e.news, validate, logsvc.NewTest(t))

	_, e.founder = testutil.CreateUser(t, e.users, "Founder", testutil.FounderEmail, "", user.RoleFounder, 0)
	_, e.admin = testutil.CreateUser(t, e.users, "Admin", "admin@test.kz", "", user.RoleAdmin, 2)
	_, e.gs = testutil.CreateUser(t, e.users, "Aigerim", "gs@test.kz", "", user.RoleGeneralSecretary, 3)
	_, e.deputy = testutil.CreateUser(t, e.users, "Timur", "dep@test.kz", "", user.RoleDeputy, 3)
	_, e.member = testutil.CreateUser(t, e.users, "Ali", "ali@test.kz", "", user.RoleParticipant, 0)
	return e
}

func newConference(name string, committees ...string) conference.NewConference {
	nc := conference.NewConference{
		Name:        core.Localized{EN: name},
		Date:        core.Localized{RU: "1 мая", EN: "May 1"},
		Location:    " Astana ",
		FeeAmount:   5000,
		Languages:   []string{"en", " ru", "en"},
		Description: core.Localized{EN: "Model UN"},
	}
	for _, cm := range committees {
		nc.Committees = append(nc.Committees, conference.NewCommittee{Name: cm, Countries: []string{"USA", " UK ", "USA"}})
	}
	return nc
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	t.Run("general secretary creates pending", func(t *testing.T) {
		conf, err := e.svc.Create(ctx, e.gs, newConference("MUN Astana", "Security Council", "  ", "General Assembly"))
		require.NoError(t, err)
		assert.Equal(t, conference.StatusPending, conf.Status)
		assert.Equal(t, e.gs.UserID, conf.CreatorID)
		assert.True(t, conf.RegistrationOpen)
		assert.Empty(t, conf.ApprovedBy)
		assert.Nil(t, conf.ApprovedAt)
		assert.Equal(t, core.Localized{RU: "MUN Astana", KK: "MUN Astana", EN: "MUN Astana"}, conf.Name)
		assert.Equal(t, "Astana", conf.Location)
		assert.Equal(t, "KZT", conf.FeeCurrency)
		assert.Equal(t, []string{"en", "ru"}, conf.Languages)

		cms, err := e.repo.QueryCommittees(ctx, conf.ID)
		require.NoError(t, err)
		require.Len(t, cms, 2)
		assert.Equal(t, "Security Council", cms[0].Name)
		assert.Equal(t, 1, cms[0].Priority)
		assert.Equal(t, conference.DefaultCapacity, cms[0].Capacity)
		assert.Equal(t, []string{"USA", "UK"}, cms[0].Countries)
		assert.Equal(t, "General Assembly", cms[1].Name)
		assert.Equal(t, 2, cms[1].Priority)
		assert.Zero(t, e.cache.invalidated, "pending conferences are not listed")
	})

	t.Run("founder publishes on create", func(t *testing.T) {
		closed := false
		nc := newConference("Founder MUN", "GA")
		nc.RegistrationOpen = &closed
		conf, err := e.svc.Create(ctx, e.founder, nc)
		require.NoError(t, err)
		assert.Equal(t, conference.StatusPublished, conf.Status)
		assert.Equal(t, e.founder.UserID, conf.ApprovedBy)
		assert.NotNil(t, conf.ApprovedAt)
		assert.False(t, conf.RegistrationOpen)
		assert.Equal(t, 1, e.cache.invalidated)
	})

	t.Run("admin and deputy create pending", func(t *testing.T) {
		for _, actor := range []user.Profile{e.admin, e.deputy} {
			conf, err := e.svc.Create(ctx, actor, newConference("MUN", "GA"))
			require.NoError(t, err)
			assert.Equal(t, conference.StatusPending, conf.Status)
		}
	})

	t.Run("participant cannot create", func(t *testing.T) {
		_, err := e.svc.Create(ctx, e.member, newConference("MUN", "GA"))
		assert.ErrorIs(t, err, core.ErrPermissionDenied)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := e.svc.Create(ctx, e.gs, newConference("MUN", " "))
		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, []core.FieldError{{Field: "committees", Error: "at least one committee is required"}}, vErr.Fields)

		_, err = e.svc.Create(ctx, e.gs, newConference("", "GA"))
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "name", vErr.Fields[0].Field)

		nc := newConference("MUN", "GA")
		nc.FeeAmount = -1
		_, err = e.svc.Create(ctx, e.gs, nc)
		assert.Error(t, err)
	})
}

func TestService_visibility(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	pending := testutil.CreateConference(t, e.repo, e.gs, "Pending", conference.StatusPending, testutil.Committee("cm1", "GA", 10, 1))
	published := testutil.CreateConference(t, e.repo, e.gs, "Published", conference.StatusPublished, testutil.Committee("cm2", "SC", 2, 1))

	tests := []struct {
		name    string
		actor   *user.Profile
		id      string
		visible bool
	}{
		{name: "anonymous published", actor: nil, id: published.ID, visible: true},
		{name: "anonymous pending", actor: nil, id: pending.ID},
		{name: "creator pending", actor: &e.gs, id: pending.ID, visible: true},
		{name: "founder pending", actor: &e.founder, id: pending.ID, visible: true},
		{name: "admin pending", actor: &e.admin, id: pending.ID, visible: true},
		{name: "deputy pending", actor: &e.deputy, id: pending.ID},
		{name: "participant pending", actor: &e.member, id: pending.ID},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			conf, err := e.svc.Get(ctx, tc.actor, tc.id)
			if !tc.visible {
				assert.ErrorIs(t, err, conference.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Len(t, conf.Committees, 1)
		})
	}

	_, err := e.svc.Get(ctx, nil, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	cms, err := e.svc.Committees(ctx, nil, published.ID)
	require.NoError(t, err)
	assert.Equal(t, "SC", cms[0].Name)

	_, err = e.svc.GetManaged(ctx, e.admin, pending.ID)
	assert.ErrorIs(t, err, core.ErrPermissionDenied, "approvers view but do not manage")
	_, err = e.svc.GetManaged(ctx, e.founder, pending.ID)
	assert.NoError(t, err)
}

func TestService_approval(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	conf := testutil.CreateConference(t, e.repo, e.gs, "MUN", conference.StatusPending, testutil.Committee("cm1", "GA", 10, 1))

	_, err := e.svc.Approve(ctx, e.gs, conf.ID)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	pending, err := e.svc.QueryPending(ctx, e.admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	_, err = e.svc.QueryPending(ctx, e.deputy)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	approved, err := e.svc.Approve(ctx, e.admin, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, conference.StatusPublished, approved.Status)
	assert.Equal(t, e.admin.UserID, approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, 1, e.cache.invalidated)

	_, err = e.svc.Approve(ctx, e.founder, conf.ID)
	assert.ErrorIs(t, err, conference.ErrAlreadyPublished)

	rejected, err := e.svc.Reject(ctx, e.founder, conf.ID)
	require.NoError(t, err)
	assert.Equal(t, conference.StatusRejected, rejected.Status)
	assert.Equal(t, 2, e.cache.invalidated)

	_, err = e.svc.Reject(ctx, e.founder, conf.ID)
	assert.ErrorIs(t, err, conference.ErrAlreadyRejected)
	_, err = e.svc.Reject(ctx, e.member, conf.ID)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	_, err = e.svc.Get(ctx, nil, conf.ID)
	assert.ErrorIs(t, err, conference.ErrNotFound)
}

func TestService_SetRegistrationOpen(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	conf := testutil.CreateConference(t, e.repo, e.gs, "MUN Astana", conference.StatusPublished, testutil.Committee("cm1", "GA", 10, 1))

	_, err := e.svc.SetRegistrationOpen(ctx, e.admin, conf.ID, false)
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	_, err = e.svc.SetRegistrationOpen(ctx, e.gs, conf.ID, true)
	assert.ErrorIs(t, err, conference.ErrRegistrationState)

	closed, err := e.svc.SetRegistrationOpen(ctx, e.gs, conf.ID, false)
	require.NoError(t, err)
	assert.False(t, closed.RegistrationOpen)
	assert.False(t, closed.AcceptsApplications())

	articles, err := e.news.Query(ctx, 0)
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.Equal(t, "Registration for MUN Astana is closed", articles[0].Title.EN)
	assert.Equal(t, "Регистрация на MUN Astana закрыта", articles[0].Title.RU)
	assert.Contains(t, articles[0].Content.EN, "will take place on May 1 at Astana")
	assert.Equal(t, e.gs.UserID, articles[0].AuthorID)

	reopened, err := e.svc.SetRegistrationOpen(ctx, e.founder, conf.ID, true)
	require.NoError(t, err)
	assert.True(t, reopened.RegistrationOpen)
	articles, _ = e.news.Query(ctx, 0)
	assert.Len(t, articles, 1, "opening publishes nothing")
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	conf := testutil.CreateConference(t, e.repo, e.gs, "MUN", conference.StatusPublished, testutil.Committee("cm1", "GA", 10, 1))
	apps := inmemdb.NewApplicationRepository(e.db)
	a := testutil.CreateApplication(t, apps, conf, e.member, application.StatusPending, "cm1")

	assert.ErrorIs(t, e.svc.Delete(ctx, e.founder, conf.ID), core.ErrPermissionDenied, "creator only")
	require.NoError(t, e.svc.Delete(ctx, e.gs, conf.ID))

	_, err := e.repo.GetConference(ctx, conf.ID)
	assert.ErrorIs(t, err, conference.ErrNotFound)
	cms, err := e.repo.QueryCommittees(ctx, conf.ID)
	require.NoError(t, err)
	assert.Empty(t, cms)
	_, err = apps.GetApplication(ctx, a.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
	assert.ErrorIs(t, e.svc.Delete(ctx, e.gs, conf.ID), core.ErrNotFound)
}

func TestService_listings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	for i, creator := range []user.Profile{e.gs, e.deputy, e.gs, e.admin, e.gs, e.deputy} {
		conf := testutil.CreateConference(t, e.repo, creator, "MUN", conference.StatusPublished)
		if i == 1 {
			conf.RegistrationOpen = false
			_, err := e.repo.UpdateConference(ctx, conf)
			require.NoError(t, err)
		}
	}
	testutil.CreateConference(t, e.repo, e.gs, "Pending", conference.StatusPending)

	all, err := e.svc.QueryPublished(ctx, conference.PublishedFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 6)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "newest first")
	}

	open := true
	openOnly, err := e.svc.QueryPublished(ctx, conference.PublishedFilter{RegistrationOpen: &open})
	require.NoError(t, err)
	assert.Len(t, openOnly, 5)

	home, err := e.svc.QueryHome(ctx)
	require.NoError(t, err)
	assert.Len(t, home, 4)
	assert.Equal(t, all[:4], home)

	_, err = e.svc.QueryPublished(ctx, conference.PublishedFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, e.cache.hits)

	managed, err := e.svc.QueryManaged(ctx, e.gs)
	require.NoError(t, err)
	assert.Len(t, managed, 4)
	managed, err = e.svc.QueryManaged(ctx, e.founder)
	require.NoError(t, err)
	assert.Len(t, managed, 7)
}

// flakyRepo fails the first listing only.
type flakyRepo struct {
	conference.Repository
	mu    sync.Mutex
	calls int
}

func (r *flakyRepo) QueryConferences(ctx context.Context, filter conference.QueryFilter) ([]conference.Conference, error) {
	r.mu.Lock()
	r.calls++
	calls := r.calls
	r.mu.Unlock()
	if calls == 1 {
		return nil, errors.New("connection reset")
	}
	return r.Repository.QueryConferences(ctx, filter)
}

func TestService_QueryHome_retry(t *testing.T) {
	defer conference.SetHomeRetryDelay(time.Millisecond)()
	ctx := context.Background()
	e := newEnv(t)
	testutil.CreateConference(t, e.repo, e.gs, "MUN", conference.StatusPublished)

	repo := &flakyRepo{Repository: e.repo}
	validate, _ := testutil.NewValidator()
	svc := conference.NewService(repo, nil, nil, validate, logsvc.NewTest(t))

	home, err := svc.QueryHome(ctx)
	require.NoError(t, err)
	assert.Len(t, home, 1)
	assert.Equal(t, 2, repo.calls)

	failing := &alwaysFailing{Repository: e.repo}
	svc = conference.NewService(failing, nil, nil, validate, logsvc.NewTest(t))
	_, err = svc.QueryHome(ctx)
	assert.EqualError(t, err, "querying published conferences: store down")
	assert.Equal(t, 2, failing.calls, "a single retry")
}

type alwaysFailing struct {
	conference.Repository
	calls int
}

func (r *alwaysFailing) QueryConferences(context.Context, conference.QueryFilter) ([]conference.Conference, error) {
	r.calls++
	return nil, errors.New("store down")
}
