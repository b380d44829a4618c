package tags

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveTagOptions struct {
	ID   *int
	Name *string
}

type ListTagsOptions struct {
	Limit  *int
	Offset *int

	includeTotal bool
}

type UpdateTagOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateTag(ctx context.Context, tag *models.Tag) error {
	now := time.Now()
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = now
	}
	tag.UpdatedAt = tag.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(tag).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Tag")
		}
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) RetrieveTag(ctx context.Context, opts RetrieveTagOptions) (*models.Tag, error) {
	tag := &models.Tag{}

	q := svc.db.
		NewSelect().
		Model(tag).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM article_tags at2 WHERE at2.tag_id = t.id) AS article_count")

	if opts.ID != nil {
		q = q.Where("t.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		// Case-insensitive match
		q = q.Where("LOWER(t.name) = LOWER(?)", *opts.Name)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Tag")
		}
		return nil, errors.WithStack(err)
	}

	return tag, nil
}

// FindOrCreateTag finds an existing tag or creates a new one
// (case-insensitive match).
func (svc *Service) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Tag name can't be empty.")
	}

	tag, err := svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &name})
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, errcodes.NotFound("Tag")) {
		return nil, err
	}

	tag = &models.Tag{Name: name}
	err = svc.CreateTag(ctx, tag)
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (svc *Service) ListTags(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, error) {
	t, _, err := svc.listTagsWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	opts.includeTotal = true
	return svc.listTagsWithTotal(ctx, opts)
}

func (svc *Service) listTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	var tags []*models.Tag
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&tags).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM article_tags at2 WHERE at2.tag_id = t.id) AS article_count").
		Order("t.name ASC")

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

	return tags, total, nil
}

func (svc *Service) UpdateTag(ctx context.Context, tag *models.Tag, opts UpdateTagOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	tag.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(tag).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Tag")
		}
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return errcodes.Conflict("Tag")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteTag deletes a tag and all article associations.
func (svc *Service) DeleteTag(ctx context.Context, tagID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.ArticleTag)(nil)).
			Where("tag_id = ?", tagID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Tag)(nil)).
			Where("id = ?", tagID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Tag")
		}
		return nil
	})
}
