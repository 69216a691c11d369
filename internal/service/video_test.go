package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"Go_Shelf/internal/apperr"
	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/testutil"
	"Go_Shelf/model"
)

func decodeVideoRequest(t *testing.T, raw string) dto.VideoCreateRequest {
	t.Helper()
	var req dto.VideoCreateRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return req
}

func TestCreateVideoCoercesSemester(t *testing.T) {
	testutil.Setup(t)
	req := decodeVideoRequest(t, `{"title":"Intro","url":"https://youtu.be/abc","subject":"Physics","semester":"2"}`)
	v, err := CreateVideo(context.Background(), req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.Semester != 2 || v.ID == "" || v.CreatedAt.IsZero() {
		t.Fatalf("unexpected video %+v", v)
	}

	list, err := ListVideos(context.Background(), dto.VideoListQuery{})
	if err != nil || len(list) != 1 || list[0].ID != v.ID {
		t.Fatalf("list should return the created video: %+v %v", list, err)
	}
}

func TestCreateVideoValidation(t *testing.T) {
	cases := map[string]string{
		"missing url":      `{"title":"a","subject":"s","semester":1}`,
		"blank subject":    `{"title":"a","url":"u","subject":"  ","semester":1}`,
		"missing semester": `{"title":"a","url":"u","subject":"s"}`,
		"empty semester":   `{"title":"a","url":"u","subject":"s","semester":""}`,
		"non-integer":      `{"title":"a","url":"u","subject":"s","semester":"two"}`,
		"fractional":       `{"title":"a","url":"u","subject":"s","semester":1.5}`,
		"out of range":     `{"title":"a","url":"u","subject":"s","semester":12}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			env := testutil.Setup(t)
			_, err := CreateVideo(context.Background(), decodeVideoRequest(t, raw))
			if !apperr.IsKind(err, apperr.KindBadRequest) {
				t.Fatalf("expect BadRequest, got %v", err)
			}
			var count int64
			env.DB.Model(&model.Video{}).Count(&count)
			if count != 0 {
				t.Fatal("nothing should be inserted")
			}
		})
	}
}

func TestListVideosFilters(t *testing.T) {
	env := testutil.Setup(t)
	base := time.Now().Add(-time.Hour)
	videos := []model.Video{
		{Title: "Kinematics", URL: "u1", Subject: "Physics", Semester: 1, CreatedAt: base},
		{Title: "Optics", URL: "u2", Subject: "Physics", Semester: 2, CreatedAt: base.Add(time.Minute)},
		{Title: "Graph Theory", URL: "u3", Subject: "Math", Semester: 2, CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range videos {
		env.DB.Create(&videos[i])
	}
	ctx := context.Background()

	got, _ := ListVideos(ctx, dto.VideoListQuery{Semester: "2"})
	if len(got) != 2 || got[0].URL != "u3" || got[1].URL != "u2" {
		t.Fatalf("unexpected semester filter result %+v", got)
	}
	got, _ = ListVideos(ctx, dto.VideoListQuery{Subject: "Physics", Search: "kine"})
	if len(got) != 1 || got[0].URL != "u1" {
		t.Fatalf("unexpected subject+search result %+v", got)
	}
	if _, err := ListVideos(ctx, dto.VideoListQuery{Semester: "x"}); !apperr.IsKind(err, apperr.KindBadRequest) {
		t.Fatalf("expect BadRequest, got %v", err)
	}
}

func TestDeleteVideo(t *testing.T) {
	env := testutil.Setup(t)
	v := model.Video{Title: "a", URL: "u", Subject: "s", Semester: 1}
	env.DB.Create(&v)

	resp, err := DeleteVideo(context.Background(), v.ID)
	if err != nil || resp.Message != "Video removed from library" {
		t.Fatalf("unexpected %+v %v", resp, err)
	}
	var count int64
	env.DB.Model(&model.Video{}).Count(&count)
	if count != 0 {
		t.Fatal("video should be gone")
	}
	// unknown ids are not an error
	if _, err := DeleteVideo(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
