package articles

import (
	"github.com/johnjclub/johnjclub/pkg/authors"
	"github.com/johnjclub/johnjclub/pkg/config"
	"github.com/johnjclub/johnjclub/pkg/derive"
	"github.com/johnjclub/johnjclub/pkg/series"
	"github.com/johnjclub/johnjclub/pkg/storage"
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers article routes plus the site-level routes
// that hang off them: the landing page and the per-series and
// per-author listings.
func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, pipeline *derive.Pipeline, store storage.Backend) {
	seriesService := series.NewService(db, pipeline)
	articleService := NewService(db, pipeline, seriesService)
	authorService := authors.NewService(db, pipeline)

	h := &handler{
		articleService: articleService,
		seriesService:  seriesService,
		authorService:  authorService,
		store:          store,
		cfg:            cfg,
	}

	e.GET("/", h.home)
	e.GET("/series/:slug/articles", h.listBySeries)
	e.GET("/authors/:slug/articles", h.listByAuthor)

	g := e.Group("/articles")
	g.GET("", h.list)
	g.GET("/:slug", h.retrieve)
	g.POST("", h.create)
	g.PATCH("/:id", h.update)
	g.POST("/:id/image", h.uploadImage)
	g.DELETE("/:id", h.deleteArticle)
}
