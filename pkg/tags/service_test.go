package tags

import (
	"context"
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/migrations"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func insertTaggedArticle(t *testing.T, db *bun.DB, title string, tagIDs ...int) *models.Article {
	t.Helper()
	ctx := context.Background()

	series := &models.Series{}
	err := db.NewSelect().Model(series).Where("s.slug = ?", "essays").Scan(ctx)
	if err != nil {
		series = &models.Series{Name: "Essays", Slug: "essays"}
		_, err = db.NewInsert().Model(series).Exec(ctx)
		require.NoError(t, err)
	}

	article := &models.Article{
		Title:       title,
		Slug:        title,
		Content:     "c",
		SeriesID:    series.ID,
		PublishDate: time.Now(),
		Enabled:     true,
		DateCreated: time.Now(),
	}
	_, err = db.NewInsert().Model(article).Exec(ctx)
	require.NoError(t, err)

	for _, tagID := range tagIDs {
		_, err = db.NewInsert().Model(&models.ArticleTag{ArticleID: article.ID, TagID: tagID}).Exec(ctx)
		require.NoError(t, err)
	}
	return article
}

func TestFindOrCreateTagIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	first, err := svc.FindOrCreateTag(ctx, "Golang")
	require.NoError(t, err)

	second, err := svc.FindOrCreateTag(ctx, "  golang ")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := db.NewSelect().Model((*models.Tag)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFindOrCreateTagEmptyName(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.FindOrCreateTag(ctx, "   ")
	require.Error(t, err)

	cerr := &errcodes.Error{}
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, http.StatusUnprocessableEntity, cerr.HTTPCode)
}

func TestListTagsWithArticleCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	busy, err := svc.FindOrCreateTag(ctx, "busy")
	require.NoError(t, err)
	idle, err := svc.FindOrCreateTag(ctx, "idle")
	require.NoError(t, err)

	insertTaggedArticle(t, db, "one", busy.ID)
	insertTaggedArticle(t, db, "two", busy.ID)

	tags, total, err := svc.ListTagsWithTotal(ctx, ListTagsOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, tags, 2)

	byName := map[string]int{}
	for _, tag := range tags {
		byName[tag.Name] = tag.ArticleCount
	}
	assert.Equal(t, 2, byName["busy"])
	assert.Equal(t, 0, byName[idle.Name])
}

func TestDeleteTagRemovesAssociations(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	tag, err := svc.FindOrCreateTag(ctx, "doomed")
	require.NoError(t, err)
	article := insertTaggedArticle(t, db, "keeper", tag.ID)

	require.NoError(t, svc.DeleteTag(ctx, tag.ID))

	_, err = svc.RetrieveTag(ctx, RetrieveTagOptions{ID: &tag.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Tag"))

	// The article itself is untouched.
	count, err := db.NewSelect().Model((*models.Article)(nil)).Where("id = ?", article.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	joins, err := db.NewSelect().Model((*models.ArticleTag)(nil)).Where("tag_id = ?", tag.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, joins)
}

func TestUpdateTagDuplicateNameConflicts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	_, err := svc.FindOrCreateTag(ctx, "existing")
	require.NoError(t, err)
	tag, err := svc.FindOrCreateTag(ctx, "renaming")
	require.NoError(t, err)

	tag.Name = "existing"
	err = svc.UpdateTag(ctx, tag, UpdateTagOptions{Columns: []string{"name"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, errcodes.Conflict("Tag"))
}
