package handler

import (
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/service"
	"Go_Shelf/utils"

	"github.com/gin-gonic/gin"
)

const ServiceName = "Go_Shelf API"

// Liveness handles GET /.
func Liveness(c *gin.Context) {
	utils.Success(c, dto.LivenessResponse{Status: "ok", Service: ServiceName})
}

// Health handles GET /api/health.
func Health(c *gin.Context) {
	utils.Success(c, service.Health(c.Request.Context()))
}
