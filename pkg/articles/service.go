package articles

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/johnjclub/johnjclub/pkg/derive"
	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/johnjclub/johnjclub/pkg/series"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveArticleOptions struct {
	ID   *int
	Slug *string
	// VisibleAt restricts the lookup to articles publicly visible at
	// the given instant. A hit that exists but isn't visible reads the
	// same as one that doesn't exist.
	VisibleAt *time.Time
}

type ListArticlesOptions struct {
	VisibleAt *time.Time
	AuthorID  *int
	SeriesID  *int
	TagID     *int
	Limit     *int
	Offset    *int

	includeTotal bool
}

type UpdateArticleOptions struct {
	Columns []string
}

type Service struct {
	db            *bun.DB
	pipeline      *derive.Pipeline
	seriesService *series.Service
}

func NewService(db *bun.DB, pipeline *derive.Pipeline, seriesService *series.Service) *Service {
	return &Service{db: db, pipeline: pipeline, seriesService: seriesService}
}

// CreateArticle saves a new article. The publish date defaults to now,
// so an article created without one is immediately visible if enabled.
// The owning series' latest_article_date ratchet is advanced in the
// same transaction as the insert.
func (svc *Service) CreateArticle(ctx context.Context, article *models.Article) error {
	now := time.Now()
	if article.DateCreated.IsZero() {
		article.DateCreated = now
	}
	article.DateModified = article.DateCreated
	if article.PublishDate.IsZero() {
		article.PublishDate = now
	}

	_, err := svc.pipeline.Apply(ctx, derive.Target{
		Name:   article.Title,
		Slug:   &article.Slug,
		Images: &article.ImageSet,
	})
	if err != nil {
		return err
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(article).
			Returning("*").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return svc.seriesService.TouchLatestArticleDate(ctx, tx, article.SeriesID, article.PublishDate)
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Article")
		}
		return err
	}
	return nil
}

func (svc *Service) RetrieveArticle(ctx context.Context, opts RetrieveArticleOptions) (*models.Article, error) {
	article := &models.Article{}

	q := svc.db.
		NewSelect().
		Model(article).
		Relation("Author").
		Relation("Series").
		Relation("Tags.Tag")

	if opts.ID != nil {
		q = q.Where("ar.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("ar.slug = ?", *opts.Slug)
	}
	if opts.VisibleAt != nil {
		q = q.Where("ar.enabled AND ar.publish_date <= ?", *opts.VisibleAt)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Article")
		}
		return nil, errors.WithStack(err)
	}

	return article, nil
}

func (svc *Service) ListArticles(ctx context.Context, opts ListArticlesOptions) ([]*models.Article, error) {
	a, _, err := svc.listArticlesWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListArticlesWithTotal(ctx context.Context, opts ListArticlesOptions) ([]*models.Article, int, error) {
	opts.includeTotal = true
	return svc.listArticlesWithTotal(ctx, opts)
}

func (svc *Service) listArticlesWithTotal(ctx context.Context, opts ListArticlesOptions) ([]*models.Article, int, error) {
	var articles []*models.Article
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&articles).
		Relation("Author").
		Relation("Series").
		Relation("Tags.Tag").
		Order("ar.publish_date DESC").
		Order("ar.date_modified DESC")

	if opts.VisibleAt != nil {
		q = q.Where("ar.enabled AND ar.publish_date <= ?", *opts.VisibleAt)
	}
	if opts.AuthorID != nil {
		q = q.Where("ar.author_id = ?", *opts.AuthorID)
	}
	if opts.SeriesID != nil {
		q = q.Where("ar.series_id = ?", *opts.SeriesID)
	}
	if opts.TagID != nil {
		q = q.Where("ar.id IN (SELECT article_id FROM article_tags WHERE tag_id = ?)", *opts.TagID)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return articles, total, nil
}

// LatestArticles returns the n most recent articles visible at asOf,
// for the sidebar widget.
func (svc *Service) LatestArticles(ctx context.Context, asOf time.Time, n int) ([]*models.Article, error) {
	return svc.ListArticles(ctx, ListArticlesOptions{
		VisibleAt: &asOf,
		Limit:     &n,
	})
}

// UpdateArticle persists the given columns and bumps date_modified.
// If the publish date moved, the series ratchet is advanced in the
// same transaction; it never moves backwards, so lowering a publish
// date leaves the series' latest_article_date where it was.
func (svc *Service) UpdateArticle(ctx context.Context, article *models.Article, opts UpdateArticleOptions) error {
	derived, err := svc.pipeline.Apply(ctx, derive.Target{
		Name:   article.Title,
		Slug:   &article.Slug,
		Images: &article.ImageSet,
	})
	if err != nil {
		return err
	}
	columns := append(opts.Columns, derived...)
	if len(columns) == 0 {
		return nil
	}

	article.DateModified = time.Now()
	columns = append(columns, "date_modified")

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(article).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Article")
		}
		return svc.seriesService.TouchLatestArticleDate(ctx, tx, article.SeriesID, article.PublishDate)
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Article")
		}
		return err
	}
	return nil
}

// SetTags replaces the article's tag set.
func (svc *Service) SetTags(ctx context.Context, articleID int, tagIDs []int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.ArticleTag)(nil)).
			Where("article_id = ?", articleID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		if len(tagIDs) == 0 {
			return nil
		}

		rows := make([]*models.ArticleTag, 0, len(tagIDs))
		for _, tagID := range tagIDs {
			rows = append(rows, &models.ArticleTag{ArticleID: articleID, TagID: tagID})
		}
		_, err = tx.NewInsert().
			Model(&rows).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// DeleteArticle removes an article and its tag associations. The
// owning series' latest_article_date is deliberately left untouched.
func (svc *Service) DeleteArticle(ctx context.Context, articleID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.ArticleTag)(nil)).
			Where("article_id = ?", articleID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Article)(nil)).
			Where("id = ?", articleID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Article")
		}
		return nil
	})
}
