package authors

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

type RetrieveAuthorOptions struct {
	ID   *int
	Slug *string
	Name *string
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateAuthorOptions struct {
	Columns []string
}

type Service struct {
	db       *bun.DB
	pipeline *derive.Pipeline
}

func NewService(db *bun.DB, pipeline *derive.Pipeline) *Service {
	return &Service{db: db, pipeline: pipeline}
}

func (svc *Service) CreateAuthor(ctx context.Context, author *models.Author) error {
	now := time.Now()
	if author.CreatedAt.IsZero() {
		author.CreatedAt = now
	}
	author.UpdatedAt = author.CreatedAt

	_, err := svc.pipeline.Apply(ctx, derive.Target{
		Name:   author.Name,
		Slug:   &author.Slug,
		Images: &author.ImageSet,
	})
	if err != nil {
		return err
	}

	_, err = svc.db.
		NewInsert().
		Model(author).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Author")
		}
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := svc.db.
		NewSelect().
		Model(author).
		ColumnExpr("a.*").
		ColumnExpr("(SELECT COUNT(*) FROM articles ar WHERE ar.author_id = a.id) AS article_count")

	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}
	if opts.Slug != nil {
		q = q.Where("a.slug = ?", *opts.Slug)
	}
	if opts.Name != nil {
		q = q.Where("a.name = ?", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, error) {
	a, _, err := svc.listAuthorsWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	opts.includeTotal = true
	return svc.listAuthorsWithTotal(ctx, opts)
}

func (svc *Service) listAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	var authors []*models.Author
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&authors).
		ColumnExpr("a.*").
		ColumnExpr("(SELECT COUNT(*) FROM articles ar WHERE ar.author_id = a.id) AS article_count").
		Order("a.name ASC")

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

	return authors, total, nil
}

func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, opts UpdateAuthorOptions) error {
	derived, err := svc.pipeline.Apply(ctx, derive.Target{
		Name:   author.Name,
		Slug:   &author.Slug,
		Images: &author.ImageSet,
	})
	if err != nil {
		return err
	}
	columns := append(opts.Columns, derived...)
	if len(columns) == 0 {
		return nil
	}

	author.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	_, err = svc.db.
		NewUpdate().
		Model(author).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Author")
		}
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Author")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteAuthor removes an author. Their articles survive with the
// author reference cleared, matching the nullable column.
func (svc *Service) DeleteAuthor(ctx context.Context, authorID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.Article)(nil)).
			Set("author_id = NULL").
			Where("author_id = ?", authorID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Author)(nil)).
			Where("id = ?", authorID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Author")
		}
		return nil
	})
}
