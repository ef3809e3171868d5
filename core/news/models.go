package news

import (
	"time"

	"github.com/qazmun/mun/core"
)

type Article struct {
	ID        string         `json:"id"`
	Title     core.Localized `json:"title"`
	Content   core.Localized `json:"content"`
	AuthorID  string         `json:"author_id"`
	CreatedAt time.Time      `json:"created_at"` // UTC
	UpdatedAt time.Time      `json:"updated_at"` // UTC
}

// NewArticle contains information needed to create an Article.
type NewArticle struct {
	Title   core.Localized `json:"title"`
	Content core.Localized `json:"content"`
}

func (na *NewArticle) Validate() error {
	na.Title = na.Title.Clean()
	na.Content = na.Content.Clean()

	var flds []core.FieldError
	if na.Title.IsEmpty() {
		flds = append(flds, core.FieldError{Field: "title", Error: "this field is required"})
	}
	if na.Content.IsEmpty() {
		flds = append(flds, core.FieldError{Field: "content", Error: "this field is required"})
	}
	if flds != nil {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// UpdateArticle defines what may be changed on an Article. nil fields are left untouched.
type UpdateArticle struct {
	Title   *core.Localized `json:"title"`
	Content *core.Localized `json:"content"`
}

func (ua *UpdateArticle) apply(a Article) (Article, error) {
	if ua.Title != nil {
		title := ua.Title.Clean()
		if title.IsEmpty() {
			return Article{}, core.NewFieldError("title", "this field is required")
		}
		a.Title = title
	}
	if ua.Content != nil {
		content := ua.Content.Clean()
		if content.IsEmpty() {
			return Article{}, core.NewFieldError("content", "this field is required")
		}
		a.Content = content
	}
	return a, nil
}
