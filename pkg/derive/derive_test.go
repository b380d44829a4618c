package derive

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"testing"

	"github.com/johnjclub/johnjclub/pkg/images"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryBackend is an in-memory storage.Backend for tests. It counts
// saves so idempotence can be asserted.
type memoryBackend struct {
	objects map[string][]byte
	saves   int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: map[string][]byte{}}
}

func (m *memoryBackend) Save(_ context.Context, path, _ string, data []byte) error {
	m.saves++
	m.objects[path] = data
	return nil
}

func (m *memoryBackend) Open(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := m.objects[path]
	if !ok {
		return nil, errors.Errorf("no object at %s", path)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Delete(_ context.Context, path string) error {
	delete(m.objects, path)
	return nil
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	for i := range img.Pix {
		img.Pix[i] = 180
	}
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, nil))
	return buf.Bytes()
}

func newTestPipeline(store *memoryBackend) *Pipeline {
	gen := images.NewGenerator(images.Bounds{Width: 64, Height: 64}, images.Bounds{Width: 200, Height: 200})
	return New(gen, store, "uploads")
}

func TestApplyAssignsSlugOnce(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(newMemoryBackend())

	slugField := ""
	changed, err := p.Apply(ctx, Target{Name: "My First Article", Slug: &slugField})
	require.NoError(t, err)
	assert.Equal(t, "my-first-article", slugField)
	assert.Equal(t, []string{"slug"}, changed)

	// A later save with a changed name leaves the slug alone.
	changed, err = p.Apply(ctx, Target{Name: "A Renamed Article", Slug: &slugField})
	require.NoError(t, err)
	assert.Equal(t, "my-first-article", slugField)
	assert.Empty(t, changed)
}

func TestApplyGeneratesVariants(t *testing.T) {
	ctx := context.Background()
	store := newMemoryBackend()
	store.objects["uploads/portrait.jpg"] = testJPEG(t)
	p := newTestPipeline(store)

	raw := "uploads/portrait.jpg"
	set := &models.ImageSet{ImageRaw: &raw}
	slugField := ""
	changed, err := p.Apply(ctx, Target{Name: "Jane Doe", Slug: &slugField, Images: set})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"slug", "image_thumbnail", "image_thumbnail_transparent", "image_full"}, changed)

	require.NotNil(t, set.ImageThumbnail)
	require.NotNil(t, set.ImageThumbnailTransparent)
	require.NotNil(t, set.ImageFull)
	assert.Equal(t, "uploads/portrait_thumbnail.png", *set.ImageThumbnail)
	assert.Equal(t, "uploads/portrait_thumbnail_transparent.png", *set.ImageThumbnailTransparent)
	assert.Equal(t, "uploads/portrait_full.png", *set.ImageFull)

	assert.Contains(t, store.objects, "uploads/portrait_thumbnail.png")
	assert.Contains(t, store.objects, "uploads/portrait_thumbnail_transparent.png")
	assert.Contains(t, store.objects, "uploads/portrait_full.png")
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemoryBackend()
	store.objects["uploads/portrait.jpg"] = testJPEG(t)
	p := newTestPipeline(store)

	raw := "uploads/portrait.jpg"
	set := &models.ImageSet{ImageRaw: &raw}
	slugField := ""
	_, err := p.Apply(ctx, Target{Name: "Jane Doe", Slug: &slugField, Images: set})
	require.NoError(t, err)

	savesAfterFirst := store.saves
	thumb := *set.ImageThumbnail

	// Second apply: all derived fields populated, nothing regenerated.
	changed, err := p.Apply(ctx, Target{Name: "Jane Doe", Slug: &slugField, Images: set})
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, savesAfterFirst, store.saves)
	assert.Equal(t, thumb, *set.ImageThumbnail)
}

func TestApplyFillsOnlyEmptyVariantFields(t *testing.T) {
	ctx := context.Background()
	store := newMemoryBackend()
	store.objects["uploads/portrait.jpg"] = testJPEG(t)
	p := newTestPipeline(store)

	// A previously generated thumbnail survives even though the raw
	// image could re-derive it.
	raw := "uploads/portrait.jpg"
	existing := "uploads/old_thumbnail.png"
	set := &models.ImageSet{ImageRaw: &raw, ImageThumbnail: &existing}
	slugField := ""
	changed, err := p.Apply(ctx, Target{Name: "Jane Doe", Slug: &slugField, Images: set})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"slug", "image_thumbnail_transparent", "image_full"}, changed)

	assert.Equal(t, "uploads/old_thumbnail.png", *set.ImageThumbnail)
	require.NotNil(t, set.ImageThumbnailTransparent)
	require.NotNil(t, set.ImageFull)
	assert.NotContains(t, store.objects, "uploads/portrait_thumbnail.png")
}

func TestApplyUndecodableRawImageFailsWholeSave(t *testing.T) {
	ctx := context.Background()
	store := newMemoryBackend()
	store.objects["uploads/broken.jpg"] = []byte("not an image")
	p := newTestPipeline(store)

	raw := "uploads/broken.jpg"
	set := &models.ImageSet{ImageRaw: &raw}
	slugField := ""
	_, err := p.Apply(ctx, Target{Name: "Jane Doe", Slug: &slugField, Images: set})
	require.Error(t, err)

	var decodeErr *images.DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	// No partial variant commit.
	assert.Nil(t, set.ImageThumbnail)
	assert.Nil(t, set.ImageThumbnailTransparent)
	assert.Nil(t, set.ImageFull)
}

func TestApplyWithoutRawImageSkipsVariants(t *testing.T) {
	ctx := context.Background()
	store := newMemoryBackend()
	p := newTestPipeline(store)

	set := &models.ImageSet{}
	slugField := ""
	_, err := p.Apply(ctx, Target{Name: "Jane Doe", Slug: &slugField, Images: set})
	require.NoError(t, err)
	assert.Zero(t, store.saves)
	assert.Nil(t, set.ImageThumbnail)
}
