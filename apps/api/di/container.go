// Package di builds the dependency graph of the API server.
package di

import (
	"context"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/qazmun/mun/apps/api/echo"
	"github.com/qazmun/mun/assets"
	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/application"
	"github.com/qazmun/mun/core/assignment"
	"github.com/qazmun/mun/core/conference"
	"github.com/qazmun/mun/core/news"
	"github.com/qazmun/mun/core/registration"
	"github.com/qazmun/mun/core/user"
	blobsvc "github.com/qazmun/mun/services/blob"
	emailsvc "github.com/qazmun/mun/services/email"
	logsvc "github.com/qazmun/mun/services/logger"
	metricsvc "github.com/qazmun/mun/services/metrics"
	"github.com/qazmun/mun/storage/cache"
	"github.com/qazmun/mun/storage/database"
	inmemdb "github.com/qazmun/mun/storage/database/inmem"
	sqlxrepos "github.com/qazmun/mun/storage/database/sqlx"
)

const EngineMemory = "memory"

type (
	// Repositories are built together on the configured engine.
	Repositories struct {
		dig.Out
		Users         user.Repository
		Conferences   conference.Repository
		Applications  application.Repository
		News          news.Repository
		Registrations registration.Repository
	}

	// Closer releases what the graph opened (DB, cache connections).
	Closer struct {
		fns []func() error
	}

	serverParams struct {
		dig.In
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Metrics    *metricsvc.Metrics
		Blobs      core.BlobStore

		UserSvc         *user.Service
		ConferenceSvc   *conference.Service
		ApplicationSvc  *application.Service
		AssignmentSvc   *assignment.Service
		NewsSvc         *news.Service
		RegistrationSvc *registration.Service
	}
)

func (c *Closer) add(fn func() error) {
	c.fns = append(c.fns, fn)
}

// Close runs the registered closers, last opened first.
func (c *Closer) Close() error {
	var first error
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func newLogger(conf *core.Config) (core.Logger, *logsvc.Logger) {
	logger := logsvc.New(conf)
	return logger, logger
}

func newValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	user.InitValidators(validate, translator)
	application.InitValidators(validate, translator)
	registration.InitValidators(validate, translator)
	return validate, translator
}

func newDB(conf *core.Config, closer *Closer) (*sqlx.DB, error) {
	if conf.Database.Engine == EngineMemory {
		return nil, nil
	}
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}
	closer.add(db.Close)
	if err = database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	return db, nil
}

func newRepositories(conf *core.Config, db *sqlx.DB) Repositories {
	if conf.Database.Engine == EngineMemory {
		mem := inmemdb.Open()
		return Repositories{
			Users:         inmemdb.NewUserRepository(mem),
			Conferences:   inmemdb.NewConferenceRepository(mem),
			Applications:  inmemdb.NewApplicationRepository(mem),
			News:          inmemdb.NewNewsRepository(mem),
			Registrations: inmemdb.NewRegistrationRepository(mem),
		}
	}
	return Repositories{
		Users:         sqlxrepos.NewUserRepository(db),
		Conferences:   sqlxrepos.NewConferenceRepository(db),
		Applications:  sqlxrepos.NewApplicationRepository(db),
		News:          sqlxrepos.NewNewsRepository(db),
		Registrations: sqlxrepos.NewRegistrationRepository(db),
	}
}

// newConferenceCache caches the published listings in redis when an address is configured.
func newConferenceCache(conf *core.Config, logger core.Logger, closer *Closer) conference.Cache {
	if conf.Redis.Addr == "" {
		return conference.NopCache{}
	}
	client := cache.NewRedisClient(conf.Redis)
	if err := cache.Ping(context.Background(), client); err != nil {
		logger.Warn("redis unavailable, conferences are not cached", err)
		_ = client.Close()
		return conference.NopCache{}
	}
	closer.add(client.Close)
	return cache.NewConferenceCache(client, conf.Redis.TTL)
}

func newEmailService(conf *core.Config, logger core.Logger) (core.EmailService, error) {
	tmpls, err := core.ParseEmailTemplates(assets.FS, assets.EmailTemplatesDir, conf)
	if err != nil {
		return nil, errors.Wrap(err, "parsing email templates")
	}
	switch conf.Email.Provider {
	case "sendgrid":
		return emailsvc.NewSendgridService(conf, tmpls, logger), nil
	case "ses":
		return emailsvc.NewSESService(context.Background(), conf, tmpls, logger)
	}
	return emailsvc.NewConsoleService(conf, tmpls, logger), nil
}

func newBlobStore(conf *core.Config) (core.BlobStore, error) {
	if conf.Storage.Provider == "s3" {
		store, err := blobsvc.NewS3Store(context.Background(), conf.Storage)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := blobsvc.NewLocalStore(conf.Storage.LocalDir, conf.Storage.PublicBaseURL)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func newNewsService(repo news.Repository) *news.Service {
	return news.NewService(repo)
}

func newConferenceService(
	repo conference.Repository,
	cache conference.Cache,
	newsSvc *news.Service,
	validate *validator.Validate,
	logger core.Logger,
) *conference.Service {
	return conference.NewService(repo, cache, newsSvc, validate, logger)
}

func newApplicationService(
	repo application.Repository,
	confSvc *conference.Service,
	mailSvc core.EmailService,
	validate *validator.Validate,
) *application.Service {
	return application.NewService(repo, confSvc, mailSvc, validate)
}

func newAssignmentService(
	repo application.Repository,
	confSvc *conference.Service,
	mailSvc core.EmailService,
	metrics *metricsvc.Metrics,
	logger core.Logger,
) *assignment.Service {
	return assignment.NewService(repo, confSvc, mailSvc, metrics, logger)
}

func newServer(p serverParams) *echoapi.Server {
	deps := echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		Metrics:         p.Metrics,
		UserSvc:         p.UserSvc,
		ConferenceSvc:   p.ConferenceSvc,
		ApplicationSvc:  p.ApplicationSvc,
		AssignmentSvc:   p.AssignmentSvc,
		NewsSvc:         p.NewsSvc,
		RegistrationSvc: p.RegistrationSvc,
	}
	if local, ok := p.Blobs.(*blobsvc.LocalStore); ok {
		deps.MediaDir = local.Dir()
	}
	return echoapi.NewServer(deps)
}

// New returns the dependency injection container of the API. conf is provided as is.
func New(conf *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(func() *Closer { return new(Closer) }))
	must(c.Provide(newLogger))
	must(c.Provide(newValidator))
	must(c.Provide(newDB))
	must(c.Provide(newRepositories))
	must(c.Provide(newConferenceCache))
	must(c.Provide(newEmailService))
	must(c.Provide(newBlobStore))
	must(c.Provide(metricsvc.New))

	must(c.Provide(user.NewService))
	must(c.Provide(newNewsService))
	must(c.Provide(newConferenceService))
	must(c.Provide(newApplicationService))
	must(c.Provide(newAssignmentService))
	must(c.Provide(registration.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
