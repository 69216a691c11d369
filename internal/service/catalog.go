package service

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"Go_Shelf/internal/dto"
	"Go_Shelf/model"
)

// SemesterCatalog groups one semester's resources by subject.
func SemesterCatalog(ctx context.Context, semesterRaw, search string) (*dto.SemesterCatalog, error) {
	semester, err := parseSemester(semesterRaw)
	if err != nil {
		return nil, err
	}
	resources, err := ListResources(ctx, dto.ResourceListQuery{Semester: semesterRaw})
	if err != nil {
		return nil, err
	}
	search = strings.TrimSpace(search)

	groups := map[string][]dto.CatalogResource{}
	total := 0
	for _, r := range resources {
		if search != "" && !containsFold(r.Title, search) && !containsFold(r.Category, search) && !containsFold(r.FileName, search) {
			continue
		}
		subject := r.Subject
		if subject == "" {
			subject = DeriveSubject(r.FileName, r.Category)
		}
		groups[subject] = append(groups[subject], dto.CatalogResource{Resource: r, Extension: FileExtension(r.FileName)})
		total++
	}

	out := &dto.SemesterCatalog{Semester: semester, Total: total, Subjects: make([]dto.SubjectResources, 0, len(groups))}
	for _, subject := range sortedKeys(groups) {
		out.Subjects = append(out.Subjects, dto.SubjectResources{Subject: subject, Resources: groups[subject]})
	}
	return out, nil
}

// VideoCatalog groups videos by semester, then subject.
func VideoCatalog(ctx context.Context, q dto.CatalogQuery) (*dto.VideoCatalog, error) {
	videos, err := ListVideos(ctx, dto.VideoListQuery{Semester: q.Semester})
	if err != nil {
		return nil, err
	}
	search := strings.TrimSpace(q.Search)

	bySemester := map[int]map[string][]dto.CatalogVideo{}
	total := 0
	for _, v := range videos {
		if search != "" && !containsFold(v.Title, search) && !containsFold(v.Subject, search) {
			continue
		}
		if bySemester[v.Semester] == nil {
			bySemester[v.Semester] = map[string][]dto.CatalogVideo{}
		}
		bySemester[v.Semester][v.Subject] = append(bySemester[v.Semester][v.Subject], decorateVideo(v))
		total++
	}

	semesters := make([]int, 0, len(bySemester))
	for s := range bySemester {
		semesters = append(semesters, s)
	}
	sort.Ints(semesters)

	out := &dto.VideoCatalog{Total: total, Semesters: make([]dto.SemesterVideos, 0, len(semesters))}
	for _, s := range semesters {
		subjects := bySemester[s]
		group := dto.SemesterVideos{Semester: s, Subjects: make([]dto.SubjectVideos, 0, len(subjects))}
		for _, subject := range sortedKeys(subjects) {
			group.Subjects = append(group.Subjects, dto.SubjectVideos{Subject: subject, Videos: subjects[subject]})
		}
		out.Semesters = append(out.Semesters, group)
	}
	return out, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func decorateVideo(v model.Video) dto.CatalogVideo {
	out := dto.CatalogVideo{Video: v, EmbedURL: v.URL}
	if id := YouTubeID(v.URL); id != "" {
		out.EmbedURL = "https://www.youtube.com/embed/" + id + "?autoplay=1&rel=0"
		out.ThumbnailURL = "https://img.youtube.com/vi/" + id + "/mqdefault.jpg"
	}
	return out
}

// YouTubeID extracts the video id from youtube.com or youtu.be links: the
// v= query value when present, else the last path segment.
func YouTubeID(raw string) string {
	if !strings.Contains(raw, "youtube.com") && !strings.Contains(raw, "youtu.be") {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if id := u.Query().Get("v"); id != "" {
		return id
	}
	p := strings.TrimRight(u.Path, "/")
	return p[strings.LastIndex(p, "/")+1:]
}
