package tags

import (
	"net/http"
	"strconv"

	"github.com/johnjclub/johnjclub/pkg/errcodes"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type handler struct {
	tagService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListTagsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tags, total, err := h.tagService.ListTagsWithTotal(ctx, ListTagsOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"tags":  tags,
		"total": total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	name := c.Param("name")

	tag, err := h.tagService.RetrieveTag(ctx, RetrieveTagOptions{
		Name: &name,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, tag))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateTagPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tag, err := h.tagService.FindOrCreateTag(ctx, params.Name)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, tag))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Tag")
	}

	params := UpdateTagPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tag, err := h.tagService.RetrieveTag(ctx, RetrieveTagOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	columns := []string{}
	if params.Name != nil && *params.Name != tag.Name {
		tag.Name = *params.Name
		columns = append(columns, "name")
	}

	err = h.tagService.UpdateTag(ctx, tag, UpdateTagOptions{Columns: columns})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, tag))
}

func (h *handler) deleteTag(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Tag")
	}

	err = h.tagService.DeleteTag(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
