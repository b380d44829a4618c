package articles

import (
	"net/http"
	"strconv"
	"time"

	"github.com/johnjclub/johnjclub/pkg/authors"
	"github.com/johnjclub/johnjclub/pkg/config"
	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/images"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/johnjclub/johnjclub/pkg/series"
	"github.com/johnjclub/johnjclub/pkg/storage"
	"github.com/johnjclub/johnjclub/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	articleService *Service
	seriesService  *series.Service
	authorService  *authors.Service
	store          storage.Backend
	cfg            *config.Config
}

// home renders the landing page data: the fixed welcome article plus
// the latest published articles for the sidebar.
func (h *handler) home(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now()

	article, err := h.articleService.RetrieveArticle(ctx, RetrieveArticleOptions{
		Slug:      &h.cfg.HomeSlug,
		VisibleAt: &now,
	})
	if err != nil {
		if !errors.Is(err, errcodes.NotFound("Article")) {
			return errors.WithStack(err)
		}
		article = nil
	}

	latest, err := h.articleService.LatestArticles(ctx, now, h.cfg.LatestCount)
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"site_title":      h.cfg.SiteTitle,
		"article":         article,
		"latest_articles": latest,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) list(c echo.Context) error {
	now := time.Now()

	params := ListArticlesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListArticlesOptions{
		VisibleAt: &now,
		TagID:     params.TagID,
	}
	return h.renderPage(c, params.Page, opts)
}

func (h *handler) listBySeries(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now()
	slug := c.Param("slug")

	params := ListArticlesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	s, err := h.seriesService.RetrieveSeries(ctx, series.RetrieveSeriesOptions{
		Slug: &slug,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := ListArticlesOptions{
		VisibleAt: &now,
		SeriesID:  &s.ID,
	}
	return h.renderPage(c, params.Page, opts, "series", s)
}

func (h *handler) listByAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now()
	slug := c.Param("slug")

	params := ListArticlesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	a, err := h.authorService.RetrieveAuthor(ctx, authors.RetrieveAuthorOptions{
		Slug: &slug,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	opts := ListArticlesOptions{
		VisibleAt: &now,
		AuthorID:  &a.ID,
	}
	return h.renderPage(c, params.Page, opts, "author", a)
}

// renderPage runs a paginated listing and writes the standard list
// response, optionally annotated with the parent entity (series or
// author) the listing was scoped to.
func (h *handler) renderPage(c echo.Context, page int, opts ListArticlesOptions, extra ...any) error {
	ctx := c.Request().Context()

	limit := h.cfg.PageSize
	offset := (page - 1) * limit
	opts.Limit = &limit
	opts.Offset = &offset

	articles, total, err := h.articleService.ListArticlesWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	pages := (total + limit - 1) / limit
	response := map[string]any{
		"articles": articles,
		"total":    total,
		"page":     page,
		"pages":    pages,
	}
	for i := 0; i+1 < len(extra); i += 2 {
		if key, ok := extra[i].(string); ok {
			response[key] = extra[i+1]
		}
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now()
	slug := c.Param("slug")

	// Disabled or future-dated articles read the same as missing ones.
	article, err := h.articleService.RetrieveArticle(ctx, RetrieveArticleOptions{
		Slug:      &slug,
		VisibleAt: &now,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, article))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateArticlePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	article := &models.Article{
		Title:     params.Title,
		Content:   params.Content,
		Shortline: params.Shortline,
		AuthorID:  params.AuthorID,
		Audio:     params.Audio,
		Enabled:   true,
	}
	if params.Enabled != nil {
		article.Enabled = *params.Enabled
	}
	if params.PublishDate != nil {
		article.PublishDate = *params.PublishDate
	}

	if params.SeriesID != nil {
		article.SeriesID = *params.SeriesID
	} else {
		fallback, err := h.seriesService.EnsureDefaultSeries(ctx, h.cfg.DefaultSeriesName)
		if err != nil {
			return errors.WithStack(err)
		}
		article.SeriesID = fallback.ID
	}

	if err := h.articleService.CreateArticle(ctx, article); err != nil {
		return errors.WithStack(err)
	}

	if len(params.TagIDs) > 0 {
		if err := h.articleService.SetTags(ctx, article.ID, params.TagIDs); err != nil {
			return errors.WithStack(err)
		}
	}

	article, err := h.articleService.RetrieveArticle(ctx, RetrieveArticleOptions{ID: &article.ID})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, article))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Article")
	}

	params := UpdateArticlePayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	article, err := h.articleService.RetrieveArticle(ctx, RetrieveArticleOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	columns := []string{}
	if params.Title != nil && *params.Title != article.Title {
		article.Title = *params.Title
		columns = append(columns, "title")
	}
	if params.Content != nil && *params.Content != article.Content {
		article.Content = *params.Content
		columns = append(columns, "content")
	}
	if params.Shortline != nil && *params.Shortline != article.Shortline {
		article.Shortline = *params.Shortline
		columns = append(columns, "shortline")
	}
	if params.AuthorID != nil {
		if *params.AuthorID == 0 {
			article.AuthorID = nil
		} else {
			article.AuthorID = params.AuthorID
		}
		columns = append(columns, "author_id")
	}
	if params.SeriesID != nil && *params.SeriesID != article.SeriesID {
		article.SeriesID = *params.SeriesID
		columns = append(columns, "series_id")
	}
	if params.PublishDate != nil && !params.PublishDate.Equal(article.PublishDate) {
		article.PublishDate = *params.PublishDate
		columns = append(columns, "publish_date")
	}
	if params.Audio != nil {
		article.Audio = params.Audio
		columns = append(columns, "audio")
	}
	if params.Enabled != nil && *params.Enabled != article.Enabled {
		article.Enabled = *params.Enabled
		columns = append(columns, "enabled")
	}

	err = h.articleService.UpdateArticle(ctx, article, UpdateArticleOptions{Columns: columns})
	if err != nil {
		return errors.WithStack(err)
	}

	if params.TagIDs != nil {
		if err := h.articleService.SetTags(ctx, article.ID, params.TagIDs); err != nil {
			return errors.WithStack(err)
		}
	}

	article, err = h.articleService.RetrieveArticle(ctx, RetrieveArticleOptions{ID: &id})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, article))
}

func (h *handler) uploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Article")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return errcodes.ValidationError("An image file is required.")
	}

	article, err := h.articleService.RetrieveArticle(ctx, RetrieveArticleOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	rawPath, err := uploads.SaveImage(ctx, h.store, h.cfg.UploadPrefix, file)
	if err != nil {
		return errcodes.ValidationError("The uploaded file isn't a supported image.")
	}

	// A new raw image resets the derived variants so the save pipeline
	// regenerates them from the fresh upload.
	article.ImageSet = models.ImageSet{ImageRaw: &rawPath}
	err = h.articleService.UpdateArticle(ctx, article, UpdateArticleOptions{
		Columns: []string{"image_raw"},
	})
	if err != nil {
		var decodeErr *images.DecodeError
		if errors.As(err, &decodeErr) {
			return errcodes.UnprocessableImage()
		}
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, article))
}

func (h *handler) deleteArticle(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Article")
	}

	err = h.articleService.DeleteArticle(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
