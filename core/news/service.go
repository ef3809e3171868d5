package news

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

var ErrNotFound = fmt.Errorf("article %w", core.ErrNotFound)

type (
	Repository interface {
		CreateArticle(ctx context.Context, a Article) (Article, error)
		GetArticle(ctx context.Context, id string) (Article, error)
		// QueryArticles returns the newest first; limit <= 0 means no limit.
		QueryArticles(ctx context.Context, limit int) ([]Article, error)
		UpdateArticle(ctx context.Context, a Article) (Article, error)
		DeleteArticle(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Query(ctx context.Context, limit int) ([]Article, error) {
	return svc.repo.QueryArticles(ctx, limit)
}

func (svc *Service) Get(ctx context.Context, id string) (Article, error) {
	return svc.repo.GetArticle(ctx, id)
}

func (svc *Service) Create(ctx context.Context, actor user.Profile, na NewArticle) (Article, error) {
	if !actor.Role.CanCreateNews() {
		return Article{}, core.ErrPermissionDenied
	}
	if err := na.Validate(); err != nil {
		return Article{}, err
	}
	return svc.create(ctx, actor.UserID, na.Title, na.Content)
}

// PublishSystemArticle publishes an automatic Article on behalf of authorID, bypassing the news permissions.
func (svc *Service) PublishSystemArticle(ctx context.Context, authorID string, title, content core.Localized) error {
	_, err := svc.create(ctx, authorID, title.Clean(), content.Clean())
	return err
}

func (svc *Service) create(ctx context.Context, authorID string, title, content core.Localized) (Article, error) {
	now := core.Now()
	a, err := svc.repo.CreateArticle(ctx, Article{
		ID:        uuid.NewString(),
		Title:     title,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return a, errors.Wrap(err, "creating article")
}

func (svc *Service) Update(ctx context.Context, actor user.Profile, id string, ua UpdateArticle) (Article, error) {
	if !actor.Role.CanCreateNews() {
		return Article{}, core.ErrPermissionDenied
	}
	a, err := svc.repo.GetArticle(ctx, id)
	if err != nil {
		return Article{}, err
	}
	if a, err = ua.apply(a); err != nil {
		return Article{}, err
	}
	a.UpdatedAt = core.Now()
	a, err = svc.repo.UpdateArticle(ctx, a)
	return a, errors.Wrap(err, "updating article")
}

func (svc *Service) Delete(ctx context.Context, actor user.Profile, id string) error {
	if !actor.Role.CanCreateNews() {
		return core.ErrPermissionDenied
	}
	if _, err := svc.repo.GetArticle(ctx, id); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteArticle(ctx, id), "deleting article")
}
