package handler

import (
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/service"
	"Go_Shelf/utils"

	"github.com/gin-gonic/gin"
)

// SemesterCatalog handles GET /api/catalog/semesters/:semester.
func SemesterCatalog(c *gin.Context) {
	catalog, err := service.SemesterCatalog(c.Request.Context(), c.Param("semester"), c.Query("search"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, catalog)
}

// VideoCatalog handles GET /api/catalog/videos.
func VideoCatalog(c *gin.Context) {
	var q dto.CatalogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.Fail(c, apperr.BadRequest("invalid query: "+err.Error()))
		return
	}
	catalog, err := service.VideoCatalog(c.Request.Context(), q)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, catalog)
}
