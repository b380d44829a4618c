package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Article struct {
	bun.BaseModel `bun:"table:articles,alias:ar"`

	ID           int       `bun:",pk,nullzero" json:"id"`
	DateCreated  time.Time `json:"date_created"`
	DateModified time.Time `json:"date_modified"`
	Title        string    `bun:",nullzero" json:"title"`
	Slug         string    `bun:",nullzero" json:"slug"`
	Content      string    `json:"content"`
	Shortline    string    `json:"shortline"`
	AuthorID     *int      `json:"author_id,omitempty"`
	Author       *Author   `bun:"rel:belongs-to,join:author_id=id" json:"author,omitempty"`
	SeriesID     int       `bun:",nullzero" json:"series_id"`
	Series       *Series   `bun:"rel:belongs-to,join:series_id=id" json:"series,omitempty"`
	PublishDate  time.Time `json:"publish_date"`
	Audio        *string   `json:"audio,omitempty"`
	Enabled      bool      `json:"enabled"`
	ImageSet

	Tags []*ArticleTag `bun:"rel:has-many,join:id=article_id" json:"tags,omitempty"`
}

// VisibleAt is the pointwise form of the availability predicate: an
// article is publicly visible iff it is enabled and its publish date
// is not in the future of the given instant. Every listing query must
// agree with this.
func (a *Article) VisibleAt(t time.Time) bool {
	return a.Enabled && !a.PublishDate.After(t)
}
