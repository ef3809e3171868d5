package conference

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

const homeLimit = 4

var (
	// errors
	ErrNotFound          = fmt.Errorf("conference %w", core.ErrNotFound)
	ErrAlreadyPublished  = errors.New("conference is already published")
	ErrAlreadyRejected   = errors.New("conference is already rejected")
	ErrRegistrationState = errors.New("registration is already in this state")

	homeRetryDelay = 500 * time.Millisecond // mockable
	clock          = core.Now               // mockable
)

type (
	Repository interface {
		// CreateConference stores the Conference and its Committees together.
		CreateConference(ctx context.Context, conf Conference) (Conference, error)
		GetConference(ctx context.Context, id string) (Conference, error)
		// QueryConferences returns the newest first.
		QueryConferences(ctx context.Context, filter QueryFilter) ([]Conference, error)
		UpdateConference(ctx context.Context, conf Conference) (Conference, error)
		DeleteConference(ctx context.Context, id string) error
		// QueryCommittees returns the committees of a Conference by ascending priority.
		QueryCommittees(ctx context.Context, conferenceID string) ([]Committee, error)
	}

	// Cache holds the public listings. It is invalidated on every mutation.
	Cache interface {
		GetPublished(ctx context.Context, key string) ([]Conference, bool, error)
		SetPublished(ctx context.Context, key string, confs []Conference) error
		InvalidatePublished(ctx context.Context) error
	}

	// NewsPublisher publishes automatic news articles.
	NewsPublisher interface {
		PublishSystemArticle(ctx context.Context, authorID string, title, content core.Localized) error
	}

	Service struct {
		repo     Repository
		cache    Cache
		news     NewsPublisher
		validate *validator.Validate
		logger   core.Logger
	}
)

func NewService(repo Repository, cache Cache, news NewsPublisher, validate *validator.Validate, logger core.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		news:     news,
		validate: validate,
		logger:   logger,
	}
}

// CanManage tells whether actor may manage the applications and registration of c.
func CanManage(actor user.Profile, c Conference) bool {
	return actor.UserID == c.CreatorID || actor.Role == user.RoleFounder
}

func canView(actor *user.Profile, c Conference) bool {
	if c.IsPublished() {
		return true
	}
	if actor == nil {
		return false
	}
	return CanManage(*actor, c) || actor.Role.CanApproveConference()
}

func (svc *Service) invalidate(ctx context.Context) {
	if err := svc.cache.InvalidatePublished(ctx); err != nil {
		svc.logger.Warn("invalidating conferences cache", err)
	}
}

// Create stores a new Conference. It is published right away when the creator is the founder, else pending.
func (svc *Service) Create(ctx context.Context, actor user.Profile, nc NewConference) (Conference, error) {
	if !actor.Role.CanCreateConference() {
		return Conference{}, core.ErrPermissionDenied
	}
	if err := nc.Validate(svc.validate); err != nil {
		return Conference{}, err
	}

	now := core.Now()
	conf := Conference{
		ID:               uuid.NewString(),
		Name:             nc.Name,
		Date:             nc.Date,
		Description:      nc.Description,
		Conditions:       nc.Conditions,
		Time:             nc.Time,
		Location:         nc.Location,
		CityID:           nc.CityID,
		OrganizerContact: nc.OrganizerContact,
		FeeAmount:        nc.FeeAmount,
		FeeCurrency:      nc.FeeCurrency,
		Languages:        nc.Languages,
		Status:           StatusPending,
		RegistrationOpen: true,
		CreatorID:        actor.UserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if nc.RegistrationOpen != nil {
		conf.RegistrationOpen = *nc.RegistrationOpen
	}
	if actor.Role.PublishesOnCreate() {
		conf.Status = StatusPublished
		conf.ApprovedBy = actor.UserID
		conf.ApprovedAt = &now
	}
	for _, cm := range nc.Committees {
		conf.Committees = append(conf.Committees, Committee{
			ID:           uuid.NewString(),
			ConferenceID: conf.ID,
			Name:         cm.Name,
			Topic:        cm.Topic,
			Capacity:     cm.Capacity,
			Priority:     cm.Priority,
			Countries:    cm.Countries,
			Languages:    cm.Languages,
		})
	}

	conf, err := svc.repo.CreateConference(ctx, conf)
	if err != nil {
		return Conference{}, errors.Wrap(err, "creating conference")
	}
	if conf.IsPublished() {
		svc.invalidate(ctx)
	}
	return conf, nil
}

// Get returns the Conference with its Committees.
// Unpublished conferences are only visible to their managers and approvers; actor is nil for anonymous requests.
func (svc *Service) Get(ctx context.Context, actor *user.Profile, id string) (Conference, error) {
	conf, err := svc.repo.GetConference(ctx, id)
	if err != nil {
		return Conference{}, err
	}
	if !canView(actor, conf) {
		return Conference{}, ErrNotFound
	}
	conf.Committees, err = svc.repo.QueryCommittees(ctx, id)
	return conf, errors.Wrap(err, "querying committees")
}

// Committees returns the committees of a visible Conference by ascending priority.
func (svc *Service) Committees(ctx context.Context, actor *user.Profile, id string) ([]Committee, error) {
	conf, err := svc.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return conf.Committees, nil
}

// QueryPublished is the public listing, newest first.
func (svc *Service) QueryPublished(ctx context.Context, pf PublishedFilter) ([]Conference, error) {
	if pf.Limit < 0 {
		pf.Limit = 0
	}
	key := pf.CacheKey()
	if confs, ok, err := svc.cache.GetPublished(ctx, key); err != nil {
		svc.logger.Warn("reading conferences cache", err)
	} else if ok {
		return confs, nil
	}

	confs, err := svc.repo.QueryConferences(ctx, QueryFilter{
		Statuses:         []Status{StatusPublished},
		RegistrationOpen: pf.RegistrationOpen,
		Limit:            pf.Limit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying published conferences")
	}
	if err := svc.cache.SetPublished(ctx, key, confs); err != nil {
		svc.logger.Warn("writing conferences cache", err)
	}
	return confs, nil
}

// QueryHome returns the latest published conferences. A failed fetch is retried once.
func (svc *Service) QueryHome(ctx context.Context) ([]Conference, error) {
	pf := PublishedFilter{Limit: homeLimit}
	confs, err := svc.QueryPublished(ctx, pf)
	if err == nil {
		return confs, nil
	}
	svc.logger.Warn("fetching home conferences, retrying", err)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(homeRetryDelay):
	}
	return svc.QueryPublished(ctx, pf)
}

// QueryUpcoming lists the published conferences ending within the calendar window, newest first.
func (svc *Service) QueryUpcoming(ctx context.Context) ([]Conference, error) {
	confs, err := svc.QueryPublished(ctx, PublishedFilter{})
	if err != nil {
		return nil, err
	}
	from := clock()
	upcoming := make([]Conference, 0, len(confs))
	for _, c := range confs {
		if c.IsUpcoming(from) {
			upcoming = append(upcoming, c)
		}
	}
	return upcoming, nil
}

func (svc *Service) QueryPending(ctx context.Context, actor user.Profile) ([]Conference, error) {
	if !actor.Role.CanApproveConference() {
		return nil, core.ErrPermissionDenied
	}
	return svc.repo.QueryConferences(ctx, QueryFilter{Statuses: []Status{StatusPending}})
}

// QueryManaged lists the conferences actor manages: all of them for the founder, their own for anybody else.
func (svc *Service) QueryManaged(ctx context.Context, actor user.Profile) ([]Conference, error) {
	filter := QueryFilter{}
	if actor.Role != user.RoleFounder {
		filter.CreatorID = actor.UserID
	}
	return svc.repo.QueryConferences(ctx, filter)
}

// GetManaged returns a Conference actor manages, with its Committees.
func (svc *Service) GetManaged(ctx context.Context, actor user.Profile, id string) (Conference, error) {
	conf, err := svc.Get(ctx, &actor, id)
	if err != nil {
		return Conference{}, err
	}
	if !CanManage(actor, conf) {
		return Conference{}, core.ErrPermissionDenied
	}
	return conf, nil
}

func (svc *Service) Approve(ctx context.Context, actor user.Profile, id string) (Conference, error) {
	if !actor.Role.CanApproveConference() {
		return Conference{}, core.ErrPermissionDenied
	}
	conf, err := svc.repo.GetConference(ctx, id)
	if err != nil {
		return Conference{}, err
	}
	if conf.Status == StatusPublished {
		return Conference{}, core.NewValidationError(ErrAlreadyPublished)
	}

	now := core.Now()
	conf.Status = StatusPublished
	conf.ApprovedBy = actor.UserID
	conf.ApprovedAt = &now
	conf.UpdatedAt = now
	if conf, err = svc.repo.UpdateConference(ctx, conf); err != nil {
		return Conference{}, errors.Wrap(err, "approving conference")
	}
	svc.invalidate(ctx)
	return conf, nil
}

func (svc *Service) Reject(ctx context.Context, actor user.Profile, id string) (Conference, error) {
	if !actor.Role.CanApproveConference() {
		return Conference{}, core.ErrPermissionDenied
	}
	conf, err := svc.repo.GetConference(ctx, id)
	if err != nil {
		return Conference{}, err
	}
	if conf.Status == StatusRejected {
		return Conference{}, core.NewValidationError(ErrAlreadyRejected)
	}

	wasPublished := conf.IsPublished()
	conf.Status = StatusRejected
	conf.UpdatedAt = core.Now()
	if conf, err = svc.repo.UpdateConference(ctx, conf); err != nil {
		return Conference{}, errors.Wrap(err, "rejecting conference")
	}
	if wasPublished {
		svc.invalidate(ctx)
	}
	return conf, nil
}

// SetRegistrationOpen opens or closes the registration. Closing it publishes a news article.
func (svc *Service) SetRegistrationOpen(ctx context.Context, actor user.Profile, id string, open bool) (Conference, error) {
	conf, err := svc.repo.GetConference(ctx, id)
	if err != nil {
		return Conference{}, err
	}
	if !CanManage(actor, conf) {
		return Conference{}, core.ErrPermissionDenied
	}
	if conf.RegistrationOpen == open {
		return Conference{}, core.NewValidationError(ErrRegistrationState)
	}

	conf.RegistrationOpen = open
	conf.UpdatedAt = core.Now()
	if conf, err = svc.repo.UpdateConference(ctx, conf); err != nil {
		return Conference{}, errors.Wrap(err, "updating registration")
	}
	svc.invalidate(ctx)

	if !open && svc.news != nil {
		title, content := registrationClosedArticle(conf)
		if err := svc.news.PublishSystemArticle(ctx, actor.UserID, title, content); err != nil {
			svc.logger.Error("publishing registration closed article", err, actor)
		}
	}
	return conf, nil
}

func registrationClosedArticle(c Conference) (title, content core.Localized) {
	title = core.Localized{
		RU: fmt.Sprintf("Регистрация на %s закрыта", c.Name.RU),
		KK: fmt.Sprintf("%s тіркелуі жабылды", c.Name.KK),
		EN: fmt.Sprintf("Registration for %s is closed", c.Name.EN),
	}
	content = core.Localized{
		RU: fmt.Sprintf("Регистрация на конференцию %s официально закрыта. Конференция состоится %s в %s. "+
			"Всем зарегистрированным делегатам будет отправлена дополнительная информация. Желаем успехов всем участникам!",
			c.Name.RU, c.Date.RU, c.Location),
		KK: fmt.Sprintf("%s конференциясына тіркелу ресми түрде жабылды. Конференция %s күні %s өтеді. "+
			"Барлық тіркелген делегаттарға қосымша ақпарат жіберіледі. Барлық қатысушыларға сәттілік тілейміз!",
			c.Name.KK, c.Date.KK, c.Location),
		EN: fmt.Sprintf("Registration for %s conference is officially closed. The conference will take place on %s at %s. "+
			"Additional information will be sent to all registered delegates. We wish all participants success!",
			c.Name.EN, c.Date.EN, c.Location),
	}
	return title, content
}

// Delete removes a Conference with its committees and applications. Only its creator may do it.
func (svc *Service) Delete(ctx context.Context, actor user.Profile, id string) error {
	conf, err := svc.repo.GetConference(ctx, id)
	if err != nil {
		return err
	}
	if conf.CreatorID != actor.UserID {
		return core.ErrPermissionDenied
	}
	if err := svc.repo.DeleteConference(ctx, id); err != nil {
		return errors.Wrap(err, "deleting conference")
	}
	if conf.IsPublished() {
		svc.invalidate(ctx)
	}
	return nil
}

// NopCache never caches anything.
type NopCache struct{}

var _ Cache = NopCache{}

func (NopCache) GetPublished(context.Context, string) ([]Conference, bool, error) { return nil, false, nil }
func (NopCache) SetPublished(context.Context, string, []Conference) error       { return nil }
func (NopCache) InvalidatePublished(context.Context) error                      { return nil }
