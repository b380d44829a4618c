package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/johnjclub/johnjclub/pkg/articles"
	"github.com/johnjclub/johnjclub/pkg/authors"
	"github.com/johnjclub/johnjclub/pkg/binder"
	"github.com/johnjclub/johnjclub/pkg/config"
	"github.com/johnjclub/johnjclub/pkg/derive"
	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/images"
	"github.com/johnjclub/johnjclub/pkg/series"
	"github.com/johnjclub/johnjclub/pkg/storage"
	"github.com/johnjclub/johnjclub/pkg/tags"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	store, err := NewStorageBackend(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	pipeline := NewPipeline(cfg, store)

	articles.RegisterRoutes(e, db, cfg, pipeline, store)

	seriesGroup := e.Group("/series")
	series.RegisterRoutesWithGroup(seriesGroup, db, cfg, pipeline, store)

	authorsGroup := e.Group("/authors")
	authors.RegisterRoutesWithGroup(authorsGroup, db, cfg, pipeline, store)

	tagsGroup := e.Group("/tags")
	tags.RegisterRoutesWithGroup(tagsGroup, db)

	// With local storage the media tree is served directly.
	if cfg.StorageBackend == config.StorageBackendFilesystem {
		e.Static("/media", cfg.MediaRoot)
	}

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

// NewStorageBackend builds the configured media storage backend.
func NewStorageBackend(ctx context.Context, cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case config.StorageBackendMinio:
		return storage.NewMinio(ctx, storage.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	case config.StorageBackendFilesystem:
		return storage.NewFilesystem(cfg.MediaRoot)
	default:
		return nil, errors.Errorf("unknown storage backend: %s", cfg.StorageBackend)
	}
}

// NewPipeline builds the save-time derivation pipeline from the
// configured variant sizes.
func NewPipeline(cfg *config.Config, store storage.Backend) *derive.Pipeline {
	gen := images.NewGenerator(
		images.Bounds{Width: cfg.ThumbnailWidth, Height: cfg.ThumbnailHeight},
		images.Bounds{Width: cfg.FullImageWidth, Height: cfg.FullImageHeight},
	)
	return derive.New(gen, store, cfg.UploadPrefix)
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
