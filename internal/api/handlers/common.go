package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mbruun/roadlog/internal/utils"
)

// APIError is the wire shape of every failure. Kind carries the stable
// machine-readable code callers branch on.
type APIError struct {
	Kind    utils.Code `json:"kind"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)

	var ae *utils.AppError
	if errors.As(err, &ae) {
		c.JSON(status, APIError{
			Kind:    ae.Code,
			Message: ae.Message,
		})
		return
	}

	c.JSON(status, APIError{
		Kind:    utils.CodeInternal,
		Message: http.StatusText(status),
	})
}
