package tags

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers tag routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	tagService := NewService(db)

	h := &handler{
		tagService: tagService,
	}

	g.GET("", h.list)
	g.GET("/:name", h.retrieve)
	g.POST("", h.create)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.deleteTag)
}
