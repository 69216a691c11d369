package handler

import (
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/service"
	"Go_Shelf/utils"

	"github.com/gin-gonic/gin"
)

// ListVideos handles GET /api/videos.
func ListVideos(c *gin.Context) {
	var q dto.VideoListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.Fail(c, apperr.BadRequest("invalid query: "+err.Error()))
		return
	}
	videos, err := service.ListVideos(c.Request.Context(), q)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, videos)
}

// CreateVideo handles POST /api/videos.
func CreateVideo(c *gin.Context) {
	var req dto.VideoCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, apperr.BadRequest("invalid request: "+err.Error()))
		return
	}
	video, err := service.CreateVideo(c.Request.Context(), req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, video)
}

// DeleteVideo handles DELETE /api/videos/:id.
func DeleteVideo(c *gin.Context) {
	resp, err := service.DeleteVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, resp)
}
