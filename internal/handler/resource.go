package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"Go_Shelf/config"
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/service"
	"Go_Shelf/utils"

	"github.com/gin-gonic/gin"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file limit.
const multipartOverhead = 1 << 20

// ListResources handles GET /api/resources.
func ListResources(c *gin.Context) {
	var q dto.ResourceListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.Fail(c, apperr.BadRequest("invalid query: "+err.Error()))
		return
	}
	resources, err := service.ListResources(c.Request.Context(), q)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, resources)
}

// UploadResource handles multipart POST /api/resources/upload.
func UploadResource(c *gin.Context) {
	policy := config.Policy()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, policy.MaxUploadBytes+multipartOverhead)

	var form dto.ResourceUploadForm
	if err := c.ShouldBind(&form); err != nil && isTooLarge(err) {
		utils.Fail(c, tooLarge(policy.MaxUploadBytes))
		return
	}
	in := service.UploadInput{
		Title:    form.Title,
		Semester: form.Semester,
		Category: form.Category,
		Subject:  form.Subject,
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		file, openErr := fileHeader.Open()
		if openErr != nil {
			utils.Fail(c, apperr.BadRequest("Unable to read uploaded file"))
			return
		}
		defer file.Close()
		in.FileName = fileHeader.Filename
		in.Size = fileHeader.Size
		in.Body = file
	case isTooLarge(err):
		utils.Fail(c, tooLarge(policy.MaxUploadBytes))
		return
	}

	resource, err := service.UploadResource(c.Request.Context(), in)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Created(c, resource)
}

func isTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

func tooLarge(limit int64) error {
	return apperr.BadRequest(fmt.Sprintf("File exceeds the %d byte limit", limit))
}

// DownloadResource handles GET /api/resources/download/:id.
func DownloadResource(c *gin.Context) {
	resourceURL(c, false)
}

// PreviewResource handles GET /api/resources/preview/:id.
func PreviewResource(c *gin.Context) {
	resourceURL(c, true)
}

func resourceURL(c *gin.Context, inline bool) {
	resp, err := service.ResourceURL(c.Request.Context(), c.Param("id"), inline)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, resp)
}

// DeleteResource handles DELETE /api/resources/:id.
func DeleteResource(c *gin.Context) {
	resp, err := service.DeleteResource(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.Success(c, resp)
}

// AllowedTypes handles GET /api/resources/allowed-types.
func AllowedTypes(c *gin.Context) {
	utils.Success(c, service.AllowedTypes())
}
