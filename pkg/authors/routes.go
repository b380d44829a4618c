package authors

import (
	"github.com/johnjclub/johnjclub/pkg/config"
	"github.com/johnjclub/johnjclub/pkg/derive"
	"github.com/johnjclub/johnjclub/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers author routes on a pre-configured group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config, pipeline *derive.Pipeline, store storage.Backend) {
	authorService := NewService(db, pipeline)

	h := &handler{
		authorService: authorService,
		store:         store,
		cfg:           cfg,
	}

	g.GET("", h.list)
	g.GET("/:slug", h.retrieve)
	g.POST("", h.create)
	g.PATCH("/:id", h.update)
	g.POST("/:id/image", h.uploadImage)
	g.DELETE("/:id", h.deleteAuthor)
}
