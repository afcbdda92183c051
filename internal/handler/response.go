package handler

import (
	"github.com/gin-gonic/gin"

	apperrors "studycycle/backend/internal/errors"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	c.JSON(apiErr.StatusCode(), apiErr.Body())
}

func writeInvalidJSON(c *gin.Context) {
	writeError(c, apperrors.InvalidJSON())
}
