package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-booking/internal/model"
	"github.com/iliyamo/party-booking/internal/service"
)

// writeError maps service errors onto status codes and JSON bodies.
func writeError(c echo.Context, err error) error {
	var verrs model.ValidationErrors
	var werr *service.WriteError
	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "violations": verrs})
	case errors.As(err, &werr):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": werr.Error(), "outcomes": werr.Outcomes})
	case errors.Is(err, service.ErrDateTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrReservationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
	case errors.Is(err, model.ErrUnknownPackageTier), errors.Is(err, model.ErrInvalidDate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
