package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	Bio       string    `json:"bio"`
	Slug      string    `bun:",nullzero" json:"slug"`
	ImageSet

	ArticleCount int `bun:",scanonly" json:"article_count"`
}
