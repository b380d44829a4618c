package series

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/johnjclub/johnjclub/pkg/derive"
	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveSeriesOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListSeriesOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateSeriesOptions struct {
	Columns []string
}

type Service struct {
	db       *bun.DB
	pipeline *derive.Pipeline
}

func NewService(db *bun.DB, pipeline *derive.Pipeline) *Service {
	return &Service{db: db, pipeline: pipeline}
}

func (svc *Service) CreateSeries(ctx context.Context, series *models.Series) error {
	now := time.Now()
	if series.CreatedAt.IsZero() {
		series.CreatedAt = now
	}
	series.UpdatedAt = series.CreatedAt

	_, err := svc.pipeline.Apply(ctx, derive.Target{
		Name:   series.Name,
		Slug:   &series.Slug,
		Images: &series.ImageSet,
	})
	if err != nil {
		return err
	}

	_, err = svc.db.
		NewInsert().
		Model(series).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Series")
		}
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) RetrieveSeries(ctx context.Context, opts RetrieveSeriesOptions) (*models.Series, error) {
	series := &models.Series{}

	q := svc.db.
		NewSelect().
		Model(series).
		ColumnExpr("s.*").
		ColumnExpr("(SELECT COUNT(*) FROM articles ar WHERE ar.series_id = s.id) AS article_count")

	if opts.ID != nil {
		q = q.Where("s.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("s.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("s.name = ?", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Series")
		}
		return nil, errors.WithStack(err)
	}

	return series, nil
}

func (svc *Service) ListSeries(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, error) {
	s, _, err := svc.listSeriesWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	opts.includeTotal = true
	return svc.listSeriesWithTotal(ctx, opts)
}

func (svc *Service) listSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	var series []*models.Series
	var total int
	var err error

	// Series with no articles yet sort last.
	q := svc.db.
		NewSelect().
		Model(&series).
		ColumnExpr("s.*").
		ColumnExpr("(SELECT COUNT(*) FROM articles ar WHERE ar.series_id = s.id) AS article_count").
		OrderExpr("s.latest_article_date IS NULL ASC").
		OrderExpr("s.latest_article_date DESC").
		Order("s.name ASC")

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

	return series, total, nil
}

func (svc *Service) UpdateSeries(ctx context.Context, series *models.Series, opts UpdateSeriesOptions) error {
	derived, err := svc.pipeline.Apply(ctx, derive.Target{
		Name:   series.Name,
		Slug:   &series.Slug,
		Images: &series.ImageSet,
	})
	if err != nil {
		return err
	}
	columns := append(opts.Columns, derived...)
	if len(columns) == 0 {
		return nil
	}

	series.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	_, err = svc.db.
		NewUpdate().
		Model(series).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Series")
		}
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Series")
		}
		return errors.WithStack(err)
	}
	return nil
}

// TouchLatestArticleDate advances a series' latest_article_date to
// candidate, but never backwards. The conditional update keeps the
// column monotonic even under concurrent article saves. It accepts an
// IDB so article saves can call it inside their own transaction.
func (svc *Service) TouchLatestArticleDate(ctx context.Context, db bun.IDB, seriesID int, candidate time.Time) error {
	if db == nil {
		db = svc.db
	}
	_, err := db.
		NewUpdate().
		Model((*models.Series)(nil)).
		Set("latest_article_date = ?", candidate).
		Where("id = ?", seriesID).
		Where("latest_article_date IS NULL OR ? > latest_article_date", candidate).
		Exec(ctx)
	return errors.WithStack(err)
}

// EnsureDefaultSeries returns the catch-all series that articles fall
// back to, creating it on first use.
func (svc *Service) EnsureDefaultSeries(ctx context.Context, name string) (*models.Series, error) {
	series, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Name: &name})
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, errcodes.NotFound("Series")) {
		return nil, err
	}

	series = &models.Series{Name: name}
	err = svc.CreateSeries(ctx, series)
	if err != nil {
		if errors.Is(err, errcodes.Conflict("Series")) {
			// Lost a race with another creator.
			return svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Name: &name})
		}
		return nil, err
	}
	return series, nil
}

// DeleteSeries deletes a series after reassigning its articles to the
// default series. The default series itself can't be deleted.
func (svc *Service) DeleteSeries(ctx context.Context, seriesID int, defaultName string) error {
	fallback, err := svc.EnsureDefaultSeries(ctx, defaultName)
	if err != nil {
		return err
	}
	if fallback.ID == seriesID {
		return errcodes.ValidationError("The default series can't be deleted.")
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.Article)(nil)).
			Set("series_id = ?", fallback.ID).
			Where("series_id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Series)(nil)).
			Where("id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Series")
		}
		return nil
	})
}
