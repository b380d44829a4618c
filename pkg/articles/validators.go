package articles

import "time"

type ListArticlesQuery struct {
	Page  int  `query:"page" json:"page,omitempty" default:"1" validate:"min=1"`
	TagID *int `query:"tag_id" json:"tag_id,omitempty" validate:"omitempty,min=1"`
}

type CreateArticlePayload struct {
	Title       string     `json:"title" validate:"required,min=1,max=300" mod:"trim"`
	Content     string     `json:"content" validate:"required"`
	Shortline   string     `json:"shortline,omitempty" validate:"max=1000"`
	AuthorID    *int       `json:"author_id,omitempty" validate:"omitempty,min=1"`
	SeriesID    *int       `json:"series_id,omitempty" validate:"omitempty,min=1"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Audio       *string    `json:"audio,omitempty" validate:"omitempty,max=1000"`
	Enabled     *bool      `json:"enabled,omitempty"`
	TagIDs      []int      `json:"tag_ids,omitempty" validate:"omitempty,dive,min=1"`
}

type UpdateArticlePayload struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,min=1,max=300" mod:"trim"`
	Content     *string    `json:"content,omitempty" validate:"omitempty,min=1"`
	Shortline   *string    `json:"shortline,omitempty" validate:"omitempty,max=1000"`
	AuthorID    *int       `json:"author_id,omitempty" validate:"omitempty,min=0"`
	SeriesID    *int       `json:"series_id,omitempty" validate:"omitempty,min=1"`
	PublishDate *time.Time `json:"publish_date,omitempty"`
	Audio       *string    `json:"audio,omitempty" validate:"omitempty,max=1000"`
	Enabled     *bool      `json:"enabled,omitempty"`
	TagIDs      []int      `json:"tag_ids,omitempty" validate:"omitempty,dive,min=1"`
}
