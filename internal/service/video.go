package service

import (
	"context"
	"strconv"
	"strings"

	"Go_Shelf/config"
	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/repo"
	"Go_Shelf/model"
	"Go_Shelf/utils"
)

// ListVideos returns videos newest first.
func ListVideos(ctx context.Context, q dto.VideoListQuery) ([]model.Video, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	semester, hasSemester, err := parseSemesterFilter(q.Semester)
	if err != nil {
		return nil, err
	}
	filters := map[string]string{
		"subject": q.Subject,
		"search":  strings.ToLower(strings.TrimSpace(q.Search)),
	}
	if hasSemester {
		filters["semester"] = strconv.Itoa(semester)
	}
	key := utils.ListCacheKey(ctx, utils.CollectionVideo, filters)

	videos := make([]model.Video, 0)
	if utils.GetListFromCache(ctx, key, &videos) {
		return videos, nil
	}

	query := repo.Db.WithContext(ctx).Model(&model.Video{})
	if hasSemester {
		query = query.Where("semester = ?", semester)
	}
	if q.Subject != "" {
		query = query.Where("subject = ?", q.Subject)
	}
	query = whereContains(query, "title", q.Search)
	if err := query.Order("created_at DESC").Find(&videos).Error; err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	utils.SetListToCache(ctx, key, videos, config.AppConfig.ListCacheTTL)
	return videos, nil
}

// CreateVideo registers an external video link.
func CreateVideo(ctx context.Context, req dto.VideoCreateRequest) (*model.Video, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	url := strings.TrimSpace(req.URL)
	subject := strings.TrimSpace(req.Subject)
	if title == "" || url == "" || subject == "" || !req.Semester.Present {
		return nil, apperr.BadRequest("All fields are required (title, url, subject, semester)")
	}
	if req.Semester.Invalid {
		return nil, apperr.BadRequest("Semester must be an integer")
	}
	if req.Semester.Value < MinSemester || req.Semester.Value > MaxSemester {
		return nil, apperr.BadRequest("Semester must be between 1 and 8")
	}
	video := &model.Video{
		Title:    title,
		URL:      url,
		Subject:  subject,
		Semester: req.Semester.Value,
	}
	if err := repo.Db.WithContext(ctx).Create(video).Error; err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	utils.InvalidateListCache(ctx, utils.CollectionVideo)
	return video, nil
}

// DeleteVideo deletes by id. Deleting an unknown id is not an error.
func DeleteVideo(ctx context.Context, id string) (*dto.MessageResponse, error) {
	if err := requireDB(); err != nil {
		return nil, err
	}
	if err := repo.Db.WithContext(ctx).Where("id = ?", id).Delete(&model.Video{}).Error; err != nil {
		return nil, apperr.BadRequest(err.Error())
	}
	utils.InvalidateListCache(ctx, utils.CollectionVideo)
	return &dto.MessageResponse{Message: "Video removed from library"}, nil
}
