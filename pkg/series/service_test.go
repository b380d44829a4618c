package series

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/johnjclub/johnjclub/pkg/derive"
	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/images"
	"github.com/johnjclub/johnjclub/pkg/migrations"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/johnjclub/johnjclub/pkg/storage"
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

func newTestService(t *testing.T, db *bun.DB) *Service {
	t.Helper()

	store, err := storage.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	gen := images.NewGenerator(images.Bounds{Width: 150, Height: 150}, images.Bounds{Width: 800, Height: 800})
	return NewService(db, derive.New(gen, store, "uploads"))
}

func insertArticle(t *testing.T, db *bun.DB, seriesID int, title string, publishDate time.Time) *models.Article {
	t.Helper()

	article := &models.Article{
		Title:       title,
		Slug:        title,
		Content:     "content",
		SeriesID:    seriesID,
		PublishDate: publishDate,
		Enabled:     true,
		DateCreated: time.Now(),
	}
	_, err := db.NewInsert().Model(article).Exec(context.Background())
	require.NoError(t, err)
	return article
}

func TestCreateSeriesDerivesSlug(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	series := &models.Series{Name: "Field Notes & Sketches"}
	require.NoError(t, svc.CreateSeries(ctx, series))

	assert.NotZero(t, series.ID)
	assert.Equal(t, "field-notes-sketches", series.Slug)
	assert.Nil(t, series.LatestArticleDate)
}

func TestCreateSeriesDuplicateNameConflicts(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	require.NoError(t, svc.CreateSeries(ctx, &models.Series{Name: "Essays"}))

	err := svc.CreateSeries(ctx, &models.Series{Name: "Essays"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errcodes.Conflict("Series"))
}

func TestTouchLatestArticleDateOnlyAdvances(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	series := &models.Series{Name: "Essays"}
	require.NoError(t, svc.CreateSeries(ctx, series))

	d1 := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, svc.TouchLatestArticleDate(ctx, nil, series.ID, d1))

	got, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &series.ID})
	require.NoError(t, err)
	require.NotNil(t, got.LatestArticleDate)
	assert.True(t, got.LatestArticleDate.Equal(d1))

	// An older date leaves the high-water mark alone.
	d2 := d1.Add(-48 * time.Hour)
	require.NoError(t, svc.TouchLatestArticleDate(ctx, nil, series.ID, d2))

	got, err = svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &series.ID})
	require.NoError(t, err)
	require.NotNil(t, got.LatestArticleDate)
	assert.True(t, got.LatestArticleDate.Equal(d1))

	// A newer one advances it.
	d3 := d1.Add(24 * time.Hour)
	require.NoError(t, svc.TouchLatestArticleDate(ctx, nil, series.ID, d3))

	got, err = svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &series.ID})
	require.NoError(t, err)
	require.NotNil(t, got.LatestArticleDate)
	assert.True(t, got.LatestArticleDate.Equal(d3))
}

func TestListSeriesOrdersByLatestArticleDate(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	older := &models.Series{Name: "Older"}
	newer := &models.Series{Name: "Newer"}
	empty := &models.Series{Name: "Empty"}
	require.NoError(t, svc.CreateSeries(ctx, older))
	require.NoError(t, svc.CreateSeries(ctx, newer))
	require.NoError(t, svc.CreateSeries(ctx, empty))

	require.NoError(t, svc.TouchLatestArticleDate(ctx, nil, older.ID, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, svc.TouchLatestArticleDate(ctx, nil, newer.ID, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	insertArticle(t, db, newer.ID, "one", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	list, total, err := svc.ListSeriesWithTotal(ctx, ListSeriesOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, list, 3)
	assert.Equal(t, "Newer", list[0].Name)
	assert.Equal(t, "Older", list[1].Name)
	// Never-published series sort last.
	assert.Equal(t, "Empty", list[2].Name)
	assert.Equal(t, 1, list[0].ArticleCount)
	assert.Equal(t, 0, list[1].ArticleCount)
}

func TestEnsureDefaultSeriesIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	first, err := svc.EnsureDefaultSeries(ctx, "General")
	require.NoError(t, err)
	assert.Equal(t, "general", first.Slug)

	second, err := svc.EnsureDefaultSeries(ctx, "General")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := db.NewSelect().Model((*models.Series)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDeleteSeriesReassignsArticles(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	doomed := &models.Series{Name: "Doomed"}
	require.NoError(t, svc.CreateSeries(ctx, doomed))

	article := insertArticle(t, db, doomed.ID, "survivor", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	require.NoError(t, svc.DeleteSeries(ctx, doomed.ID, "General"))

	_, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &doomed.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Series"))

	fallback, err := svc.EnsureDefaultSeries(ctx, "General")
	require.NoError(t, err)

	got := &models.Article{}
	require.NoError(t, db.NewSelect().Model(got).Where("ar.id = ?", article.ID).Scan(ctx))
	assert.Equal(t, fallback.ID, got.SeriesID)
}

func TestDeleteSeriesRefusesDefault(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	fallback, err := svc.EnsureDefaultSeries(ctx, "General")
	require.NoError(t, err)

	err = svc.DeleteSeries(ctx, fallback.ID, "General")
	require.Error(t, err)
}
