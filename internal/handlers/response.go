package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/anonto42/volunteer-hub/backend/internal/apperrors"
	"github.com/anonto42/volunteer-hub/backend/internal/middleware"
	"github.com/anonto42/volunteer-hub/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// ErrorHandler writes every error in the {success, message} envelope.
// Service errors carry their own status; anything else is a 500.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := apperrors.PublicMessage(err)
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	} else if kind := apperrors.KindOf(err); kind != "" {
		status = apperrors.HTTPStatus(kind)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, echo.Map{"success": false, "message": message})
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	body := echo.Map{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	return c.JSON(status, body)
}

func paginated(c echo.Context, key string, items interface{}, page, limit int, total int64) error {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data":    echo.Map{key: items},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

func pageParams(c echo.Context, maxLimit int) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = 20
	}
	return page, limit
}

func idParam(c echo.Context, name, label string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid "+label+" ID")
	}
	return uint(id), nil
}

// bindAndValidate decodes the request body into req and runs validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	return c.Validate(req)
}

func currentActor(c echo.Context) (models.Actor, error) {
	return middleware.ActorFromContext(c)
}
