package series

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
	seriesService *Service
	store         storage.Backend
	cfg           *config.Config
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListSeriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series, total, err := h.seriesService.ListSeriesWithTotal(ctx, ListSeriesOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"series": series,
		"total":  total,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	slug := c.Param("slug")

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		Slug: &slug,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series := &models.Series{
		Name:        params.Name,
		Description: params.Description,
	}
	if err := h.seriesService.CreateSeries(ctx, series); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, series))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	params := UpdateSeriesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	columns := []string{}
	if params.Name != nil && *params.Name != series.Name {
		series.Name = *params.Name
		columns = append(columns, "name")
	}
	if params.Description != nil && *params.Description != series.Description {
		series.Description = *params.Description
		columns = append(columns, "description")
	}

	err = h.seriesService.UpdateSeries(ctx, series, UpdateSeriesOptions{Columns: columns})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) uploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return errcodes.ValidationError("An image file is required.")
	}

	series, err := h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
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
	series.ImageSet = models.ImageSet{ImageRaw: &rawPath}
	err = h.seriesService.UpdateSeries(ctx, series, UpdateSeriesOptions{
		Columns: []string{"image_raw"},
	})
	if err != nil {
		var decodeErr *images.DecodeError
		if errors.As(err, &decodeErr) {
			return errcodes.UnprocessableImage()
		}
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, series))
}

func (h *handler) deleteSeries(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Series")
	}

	err = h.seriesService.DeleteSeries(ctx, id, h.cfg.DefaultSeriesName)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusNoContent)
}
