package inmemdb

import (
	"context"
	"sort"

	"github.com/qazmun/mun/core/news"
)

type newsRepository struct {
	db *newsTable
}

var _ news.Repository = (*newsRepository)(nil) // interface compliance check

func NewNewsRepository(db *DB) news.Repository {
	return &newsRepository{db: db.news}
}

func (repo *newsRepository) CreateArticle(_ context.Context, a news.Article) (news.Article, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.table[a.ID] = &a
	repo.db.next++
	repo.db.seq[a.ID] = repo.db.next
	return a, nil
}

func (repo *newsRepository) GetArticle(_ context.Context, id string) (news.Article, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	if a, ok := repo.db.table[id]; ok {
		return *a, nil
	}
	return news.Article{}, news.ErrNotFound
}

func (repo *newsRepository) QueryArticles(_ context.Context, limit int) ([]news.Article, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	articles := make([]news.Article, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		articles = append(articles, *a)
	}
	sort.Slice(articles, func(i, j int) bool {
		ai, aj := articles[i], articles[j]
		return newerFirst(ai.CreatedAt.UnixNano(), aj.CreatedAt.UnixNano(), repo.db.seq[ai.ID], repo.db.seq[aj.ID])
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (repo *newsRepository) UpdateArticle(_ context.Context, a news.Article) (news.Article, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	if _, ok := repo.db.table[a.ID]; !ok {
		return news.Article{}, news.ErrNotFound
	}
	repo.db.table[a.ID] = &a
	return a, nil
}

func (repo *newsRepository) DeleteArticle(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, id)
	delete(repo.db.seq, id)
	return nil
}
