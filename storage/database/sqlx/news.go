package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/news"
)

const articleColumns = "id, title_ru, title_kk, title_en, content_ru, content_kk, content_en, author_id, created_at, updated_at"

type articleRow struct {
	ID        string    `db:"id"`
	TitleRU   string    `db:"title_ru"`
	TitleKK   string    `db:"title_kk"`
	TitleEN   string    `db:"title_en"`
	ContentRU string    `db:"content_ru"`
	ContentKK string    `db:"content_kk"`
	ContentEN string    `db:"content_en"`
	AuthorID  string    `db:"author_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func newArticleRow(a news.Article) articleRow {
	return articleRow{
		ID:        a.ID,
		TitleRU:   a.Title.RU,
		TitleKK:   a.Title.KK,
		TitleEN:   a.Title.EN,
		ContentRU: a.Content.RU,
		ContentKK: a.Content.KK,
		ContentEN: a.Content.EN,
		AuthorID:  a.AuthorID,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func (r articleRow) toArticle() news.Article {
	return news.Article{
		ID:        r.ID,
		Title:     core.Localized{RU: r.TitleRU, KK: r.TitleKK, EN: r.TitleEN},
		Content:   core.Localized{RU: r.ContentRU, KK: r.ContentKK, EN: r.ContentEN},
		AuthorID:  r.AuthorID,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type newsRepository struct {
	db *sqlx.DB
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *sqlx.DB) news.Repository {
	return &newsRepository{db: db}
}

func (repo *newsRepository) CreateArticle(ctx context.Context, a news.Article) (news.Article, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO news (`+articleColumns+`)
VALUES (:id, :title_ru, :title_kk, :title_en, :content_ru, :content_kk, :content_en, :author_id, :created_at, :updated_at)`,
		newArticleRow(a))
	if err != nil {
		return news.Article{}, err
	}
	return a, nil
}

func (repo *newsRepository) GetArticle(ctx context.Context, id string) (news.Article, error) {
	var row articleRow
	if err := repo.db.GetContext(ctx, &row, "SELECT "+articleColumns+" FROM news WHERE id = $1", id); err != nil {
		return news.Article{}, notFound(err, news.ErrNotFound)
	}
	return row.toArticle(), nil
}

func (repo *newsRepository) QueryArticles(ctx context.Context, limit int) ([]news.Article, error) {
	var conds conditions
	q := "SELECT " + articleColumns + " FROM news ORDER BY created_at DESC" + conds.limit(limit)

	var rows []articleRow
	if err := repo.db.SelectContext(ctx, &rows, q, conds.args...); err != nil {
		return nil, err
	}
	articles := make([]news.Article, 0, len(rows))
	for _, r := range rows {
		articles = append(articles, r.toArticle())
	}
	return articles, nil
}

func (repo *newsRepository) UpdateArticle(ctx context.Context, a news.Article) (news.Article, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE news
SET title_ru = :title_ru, title_kk = :title_kk, title_en = :title_en,
    content_ru = :content_ru, content_kk = :content_kk, content_en = :content_en, updated_at = :updated_at
WHERE id = :id`, newArticleRow(a))
	if err != nil {
		return news.Article{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return news.Article{}, news.ErrNotFound
	}
	return a, nil
}

func (repo *newsRepository) DeleteArticle(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, "DELETE FROM news WHERE id = $1", id)
	return err
}
