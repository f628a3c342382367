package handlers

import (
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/appcontext"
)

var validate = validator.New()

// BindAndValidate binds the request body and runs struct validation
func BindAndValidate(c echo.Context, payload any) error {
	if err := c.Bind(payload); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(payload); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// ParseUUID parses a UUID from a path parameter
func ParseUUID(c echo.Context, param string) (string, error) {
	idStr := c.Param(param)
	if idStr == "" {
		return "", httperror.NewHTTPError(http.StatusBadRequest, "missing "+param)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return "", httperror.NewHTTPErrorf(http.StatusBadRequest, "invalid %s: must be a valid UUID", param)
	}

	return id.String(), nil
}

// GetTenantID extracts the tenant ID from context
func GetTenantID(c echo.Context) (string, error) {
	ctx := c.Request().Context()
	tenantID := appcontext.GetTenantID(ctx)
	if tenantID == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "tenant identification required")
	}
	return tenantID, nil
}

// QueryInt reads an integer query parameter with a default
func QueryInt(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// QueryBool reads a boolean query parameter, defaulting to false
func QueryBool(c echo.Context, name string) bool {
	value, _ := strconv.ParseBool(c.QueryParam(name))
	return value
}

// userFromContext returns the authenticated user ID, or nil when absent
func userFromContext(c echo.Context) *string {
	userID := appcontext.GetUserID(c.Request().Context())
	if userID == "" {
		return nil
	}
	return &userID
}

// SuccessResponse returns a 200 OK with data
func SuccessResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, data)
}

// CreatedResponse returns a 201 Created with data
func CreatedResponse(c echo.Context, data any) error {
	return c.JSON(http.StatusCreated, data)
}

// NoContentResponse returns a 204 No Content
func NoContentResponse(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
