package authors

import (
	"net/http"
	"strconv"

	"github.com/johnjclub/johnjclub/pkg/config"
	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/johnjclub/johnjclub/pkg/images"
	"github.com/johnjclub/johnjclub/pkg/models"
	"github.com/johnjclub/johnjclub/pkg/storage"
	"github.com/johnjclub/johnjclub/pkg/uploads"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	authorService *Service
	store         storage.Backend
	cfg           *config.Config
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListAuthorsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	authors, total, err := h.authorService.ListAuthorsWithTotal(ctx, ListAuthorsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"authors": authors,
		"total":   total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		Slug: &slug,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author := &models.Author{
		Name: params.Name,
		Bio:  params.Bio,
	}
	if err := h.authorService.CreateAuthor(ctx, author); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, author))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	params := UpdateAuthorPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	columns := []string{}
	if params.Name != nil && *params.Name != author.Name {
		author.Name = *params.Name
		columns = append(columns, "name")
	}
	if params.Bio != nil && *params.Bio != author.Bio {
		author.Bio = *params.Bio
		columns = append(columns, "bio")
	}

	err = h.authorService.UpdateAuthor(ctx, author, UpdateAuthorOptions{Columns: columns})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) uploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return errcodes.ValidationError("An image file is required.")
	}

	author, err := h.authorService.RetrieveAuthor(ctx, RetrieveAuthorOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	rawPath, err := uploads.SaveImage(ctx, h.store, h.cfg.UploadPrefix, file)
	if err != nil {
		return errcodes.ValidationError("The uploaded file isn't a supported image.")
	}

	// A new raw image resets the derived variants so the save pipeline
	// regenerates them from the fresh upload.
	author.ImageSet = models.ImageSet{ImageRaw: &rawPath}
	err = h.authorService.UpdateAuthor(ctx, author, UpdateAuthorOptions{
		Columns: []string{"image_raw"},
	})
	if err != nil {
		var decodeErr *images.DecodeError
		if errors.As(err, &decodeErr) {
			return errcodes.UnprocessableImage()
		}
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, author))
}

func (h *handler) deleteAuthor(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Author")
	}

	err = h.authorService.DeleteAuthor(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
