package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	ID          int       `bun:",pk,nullzero" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `bun:",nullzero" json:"name"`
	Description string    `json:"description"`
	Slug        string    `bun:",nullzero" json:"slug"`
	ImageSet

	// LatestArticleDate is a monotonic ratchet maintained as a side
	// effect of article saves. It only ever advances; it is not
	// recomputed when an article's publish date is edited down or the
	// article is deleted.
	LatestArticleDate *time.Time `json:"latest_article_date,omitempty"`

	Articles     []*Article `bun:"rel:has-many,join:id=series_id" json:"articles,omitempty"`
	ArticleCount int        `bun:",scanonly" json:"article_count"`
}
