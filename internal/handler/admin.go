package handler

import (
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/service"
	"Go_Shelf/internal/task"
	"Go_Shelf/utils"

	"github.com/gin-gonic/gin"
)

// Login handles POST /api/admin/login.
func Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, apperr.BadRequest("username and password are required"))
		return
	}
	resp, err := service.Login(c.Request.Context(), req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, resp)
}

// Session handles GET /api/admin/session.
func Session(c *gin.Context) {
	claims, ok := utils.ClaimsFrom(c)
	if !ok {
		utils.Fail(c, apperr.Unauthorized("Admin session required"))
		return
	}
	utils.Success(c, service.Session(claims))
}

// Logout handles POST /api/admin/logout.
func Logout(c *gin.Context) {
	claims, ok := utils.ClaimsFrom(c)
	if !ok {
		utils.Fail(c, apperr.Unauthorized("Admin session required"))
		return
	}
	resp, err := service.Logout(c.Request.Context(), claims)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, resp)
}

// ListCleanupTasks handles GET /api/admin/cleanup-tasks.
func ListCleanupTasks(c *gin.Context) {
	var q dto.CleanupTaskQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.Fail(c, apperr.BadRequest("invalid query: "+err.Error()))
		return
	}
	tasks, err := task.ListCleanupTasks(c.Request.Context(), q.Status, q.Limit)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, tasks)
}
