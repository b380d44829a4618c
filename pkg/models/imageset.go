package models

// ImageSet is the shared image column group embedded in every entity
// that carries a user-supplied image. ImageRaw is the upload; the other
// three are derived from it exactly once at save time and hold storage
// paths, never raw bytes.
type ImageSet struct {
	ImageRaw                  *string `json:"image_raw,omitempty"`
	ImageThumbnail            *string `json:"image_thumbnail,omitempty"`
	ImageThumbnailTransparent *string `json:"image_thumbnail_transparent,omitempty"`
	ImageFull                 *string `json:"image_full,omitempty"`
}

// HasRawImage reports whether an upload is present to derive from.
func (s *ImageSet) HasRawImage() bool {
	return s.ImageRaw != nil && *s.ImageRaw != ""
}

// VariantsComplete reports whether all three derived fields are set.
// A save with a raw image present only runs variant generation while
// this is false.
func (s *ImageSet) VariantsComplete() bool {
	return s.ImageThumbnail != nil && *s.ImageThumbnail != "" &&
		s.ImageThumbnailTransparent != nil && *s.ImageThumbnailTransparent != "" &&
		s.ImageFull != nil && *s.ImageFull != ""
}
