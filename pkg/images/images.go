// Package images generates the derived image variants (thumbnail,
// transparent thumbnail, full) from a user-supplied raw image. All
// output is produced as in-memory PNG buffers ready for upload to the
// configured storage backend; nothing is written to local disk here.
package images

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Variant suffixes used in derived filenames: {base}_{suffix}.png.
const (
	SuffixThumbnail            = "thumbnail"
	SuffixThumbnailTransparent = "thumbnail_transparent"
	SuffixFull                 = "full"
)

// TransparentAlpha is the uniform alpha applied to the transparent
// thumbnail (roughly 50% opacity).
const TransparentAlpha = 128

// Bounds is a bounding box that a variant must fit within.
type Bounds struct {
	Width  int
	Height int
}

// Variant is a single generated image: its derived filename and the
// encoded PNG bytes.
type Variant struct {
	Name string
	Data []byte
}

// VariantSet holds the three derived images produced from one raw
// image. Generation is all-or-nothing: a set is only returned when all
// three variants encoded successfully.
type VariantSet struct {
	Thumbnail            Variant
	ThumbnailTransparent Variant
	Full                 Variant
}

// DecodeError indicates the raw image bytes could not be parsed as any
// supported format. A save that hits this must fail as a whole; no
// partial variant set is ever committed.
type DecodeError struct {
	cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("image could not be decoded: %v", e.cause)
}

func (e *DecodeError) Unwrap() error {
	return e.cause
}

// Generator produces variant sets using two configured bounding boxes.
type Generator struct {
	thumbnail Bounds
	full      Bounds
}

func NewGenerator(thumbnail, full Bounds) *Generator {
	return &Generator{thumbnail: thumbnail, full: full}
}

// VariantName returns the derived filename for a variant of the given
// base name (the raw image's filename without its extension).
func VariantName(base, suffix string) string {
	return fmt.Sprintf("%s_%s.png", base, suffix)
}

// Generate decodes the raw image once and produces all three variants.
// Resizing preserves aspect ratio and fits within the configured box,
// so at least one axis lands exactly on the bound unless the source was
// already smaller. Returns a DecodeError if the input can't be parsed.
func (g *Generator) Generate(base string, raw []byte) (*VariantSet, error) {
	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{cause: err}
	}

	thumb := imaging.Fit(src, g.thumbnail.Width, g.thumbnail.Height, imaging.Lanczos)
	full := imaging.Fit(src, g.full.Width, g.full.Height, imaging.Lanczos)
	transparent := applyUniformAlpha(thumb, TransparentAlpha)

	set := &VariantSet{}
	encodings := []struct {
		img     image.Image
		suffix  string
		variant *Variant
	}{
		{thumb, SuffixThumbnail, &set.Thumbnail},
		{transparent, SuffixThumbnailTransparent, &set.ThumbnailTransparent},
		{full, SuffixFull, &set.Full},
	}
	for _, enc := range encodings {
		buf := &bytes.Buffer{}
		if err := imaging.Encode(buf, enc.img, imaging.PNG); err != nil {
			return nil, errors.Wrapf(err, "encode %s variant", enc.suffix)
		}
		enc.variant.Name = VariantName(base, enc.suffix)
		enc.variant.Data = buf.Bytes()
	}

	return set, nil
}

// applyUniformAlpha overwrites the alpha channel of every pixel with a
// single fixed value.
func applyUniformAlpha(img *image.NRGBA, alpha uint8) *image.NRGBA {
	out := imaging.Clone(img)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = alpha
	}
	return out
}
