package utils

import (
	"net/http"

	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/logger"

	"github.com/gin-gonic/gin"
)

// Success writes a 200 JSON response with the payload as the body.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// Created writes a 201 JSON response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// Fail renders err as {error, details?, code} with the status of its kind.
func Fail(c *gin.Context, err error) {
	e := apperr.As(err)
	if e == nil {
		e = apperr.New(apperr.KindInternal, "Internal server error", nil)
	}
	body := gin.H{
		"error": e.Message,
		"code":  string(e.Kind),
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	status := e.Status()
	if status >= http.StatusInternalServerError {
		logger.L.Error("request failed",
			"path", c.Request.URL.Path,
			"kind", string(e.Kind),
			"error", e.Error(),
		)
	}
	c.AbortWithStatusJSON(status, body)
}
