package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"metalops/internal/position"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// ServiceError maps the typed error taxonomy onto HTTP statuses:
// validation 400, not found 404, conflict 409, everything else is a
// storage fault surfaced as 502.
func ServiceError(c *gin.Context, err error) {
	switch {
	case position.IsValidation(err):
		Error(c, http.StatusBadRequest, err.Error(), nil)
	case position.IsNotFound(err):
		Error(c, http.StatusNotFound, err.Error(), nil)
	case position.IsConflict(err):
		Error(c, http.StatusConflict, err.Error(), nil)
	default:
		Error(c, http.StatusBadGateway, err.Error(), nil)
	}
}
