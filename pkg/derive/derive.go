// Package derive runs the pre-commit derivation steps that every
// entity save goes through before its row is written: slug assignment
// (once, from the name at first save) and image variant generation
// (once per derived field). The steps are guarded so re-running the
// pipeline on an already-derived entity is a no-op.
package derive

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/johnjclub/johnjclub/pkg/images"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/johnjclub/johnjclub/pkg/slug"
	"github.com/johnjclub/johnjclub/pkg/storage"
	"github.com/pkg/errors"
)

// Target points at the derivable fields of an entity. Name is the
// human-readable slug source (an author's name, an article's title).
type Target struct {
	Name   string
	Slug   *string
	Images *models.ImageSet
}

// Pipeline applies the derivation steps using the configured variant
// generator and storage backend. Variants are written under Prefix.
type Pipeline struct {
	generator *images.Generator
	store     storage.Backend
	prefix    string
}

func New(generator *images.Generator, store storage.Backend, prefix string) *Pipeline {
	return &Pipeline{generator: generator, store: store, prefix: prefix}
}

// Apply runs the guarded steps in order: slug assignment if the slug is
// empty, then image variant generation if a raw image is present and
// any derived field is empty. A raw image that cannot be decoded fails
// the whole call (the caller must not persist the entity); derived
// fields are only assigned after every needed variant uploaded, so a
// partial set is never committed. The returned column names are the
// fields the pipeline filled in, ready for a column-scoped update.
func (p *Pipeline) Apply(ctx context.Context, t Target) ([]string, error) {
	changed := []string{}

	if t.Slug != nil && *t.Slug == "" && t.Name != "" {
		*t.Slug = slug.Make(t.Name)
		changed = append(changed, "slug")
	}

	set := t.Images
	if set == nil || !set.HasRawImage() || set.VariantsComplete() {
		return changed, nil
	}

	raw, err := p.readRaw(ctx, *set.ImageRaw)
	if err != nil {
		return nil, err
	}

	variants, err := p.generator.Generate(baseName(*set.ImageRaw), raw)
	if err != nil {
		return nil, err
	}

	// Upload whichever variants are missing, then assign all paths at
	// once. Already-populated fields are left untouched.
	type assignment struct {
		column  string
		field   **string
		variant images.Variant
	}
	pending := []assignment{}
	for _, a := range []assignment{
		{"image_thumbnail", &set.ImageThumbnail, variants.Thumbnail},
		{"image_thumbnail_transparent", &set.ImageThumbnailTransparent, variants.ThumbnailTransparent},
		{"image_full", &set.ImageFull, variants.Full},
	} {
		if *a.field != nil && **a.field != "" {
			continue
		}
		if err := p.store.Save(ctx, p.variantPath(a.variant.Name), "image/png", a.variant.Data); err != nil {
			return nil, err
		}
		pending = append(pending, a)
	}
	for _, a := range pending {
		path := p.variantPath(a.variant.Name)
		*a.field = &path
		changed = append(changed, a.column)
	}

	return changed, nil
}

func (p *Pipeline) variantPath(name string) string {
	return path.Join(p.prefix, name)
}

func (p *Pipeline) readRaw(ctx context.Context, rawPath string) ([]byte, error) {
	r, err := p.store.Open(ctx, rawPath)
	if err != nil {
		return nil, errors.Wrapf(err, "open raw image: %s", rawPath)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read raw image: %s", rawPath)
	}
	return data, nil
}

// baseName strips the directory and extension from a storage path:
// "uploads/portrait.jpg" -> "portrait".
func baseName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
