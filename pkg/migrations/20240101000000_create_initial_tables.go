package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE authors (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				bio TEXT NOT NULL DEFAULT '',
				slug TEXT,
				image_raw TEXT,
				image_thumbnail TEXT,
				image_thumbnail_transparent TEXT,
				image_full TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_authors_name ON authors (name)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_authors_slug ON authors (slug) WHERE slug IS NOT NULL`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE series (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				slug TEXT,
				latest_article_date TIMESTAMPTZ,
				image_raw TEXT,
				image_thumbnail TEXT,
				image_thumbnail_transparent TEXT,
				image_full TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_series_name ON series (name)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_series_slug ON series (slug) WHERE slug IS NOT NULL`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE tags (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_tags_name ON tags (name)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE articles (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				date_created TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				date_modified TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL,
				slug TEXT,
				content TEXT NOT NULL DEFAULT '',
				shortline TEXT NOT NULL DEFAULT '',
				author_id INTEGER REFERENCES authors (id),
				series_id INTEGER REFERENCES series (id) NOT NULL,
				publish_date TIMESTAMPTZ NOT NULL,
				audio TEXT,
				enabled BOOLEAN NOT NULL DEFAULT TRUE,
				image_raw TEXT,
				image_thumbnail TEXT,
				image_thumbnail_transparent TEXT,
				image_full TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_articles_title ON articles (title)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_articles_slug ON articles (slug) WHERE slug IS NOT NULL`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_articles_author_id ON articles (author_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_articles_series_id ON articles (series_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// The availability filter orders by publish_date on every list
		// page, so it gets its own index.
		_, err = db.Exec(`CREATE INDEX ix_articles_publish_date ON articles (publish_date)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE article_tags (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				article_id INTEGER REFERENCES articles (id) NOT NULL,
				tag_id INTEGER REFERENCES tags (id) NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_article_tags_article_id_tag_id ON article_tags (article_id, tag_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS article_tags")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS articles")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS tags")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS series")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS authors")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
