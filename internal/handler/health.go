package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health reports that the process is serving.  Backend reachability is
// visible in the "unavailable" list of GET /v1/reservations instead.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
