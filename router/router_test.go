package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Go_Shelf/config"
	"Go_Shelf/internal/repo"
	"Go_Shelf/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func do(t *testing.T, r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/resources/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestLivenessAndHealth(t *testing.T) {
	testutil.Setup(t)
	r := InitRouter()

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("liveness status = %d", w.Code)
	}
	var live map[string]string
	decode(t, w, &live)
	if live["status"] != "ok" || live["service"] == "" {
		t.Fatalf("unexpected liveness body: %v", live)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	var health map[string]interface{}
	decode(t, w, &health)
	if health["database"] != true || health["storage"] != true {
		t.Fatalf("expected healthy probes, got %v", health)
	}
	if health["storage_error"] != nil {
		t.Fatalf("storage_error should be null, got %v", health["storage_error"])
	}
	if health["cache"] != "disabled" {
		t.Fatalf("cache = %v", health["cache"])
	}
}

func TestUnknownRoute(t *testing.T) {
	testutil.Setup(t)
	r := InitRouter()

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d", w.Code)
	}
	var body map[string]string
	decode(t, w, &body)
	if body["error"] != "Route not found" || body["path"] != "/api/nope" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestResourceLifecycle(t *testing.T) {
	env := testutil.Setup(t)
	r := InitRouter()

	fields := map[string]string{"title": "Linear Algebra Notes", "semester": "3", "category": "Notes"}
	w := do(t, r, uploadRequest(t, fields, "algebra.pdf", []byte("%PDF-1.4")))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d body=%s", w.Code, w.Body.String())
	}
	var created map[string]interface{}
	decode(t, w, &created)
	id, _ := created["id"].(string)
	if id == "" || created["semester"] != float64(3) || created["file_name"] != "algebra.pdf" {
		t.Fatalf("unexpected created resource: %v", created)
	}
	if env.Store.Puts != 1 {
		t.Fatalf("puts = %d", env.Store.Puts)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/resources?semester=3", nil))
	var list []map[string]interface{}
	decode(t, w, &list)
	if w.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list status=%d len=%d", w.Code, len(list))
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/resources/download/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("download status = %d body=%s", w.Code, w.Body.String())
	}
	var signed map[string]interface{}
	decode(t, w, &signed)
	link, _ := signed["url"].(string)
	if !strings.Contains(link, "attachment") || signed["fileName"] != "algebra.pdf" {
		t.Fatalf("unexpected signed url: %v", signed)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/resources/preview/"+id, nil))
	decode(t, w, &signed)
	link, _ = signed["url"].(string)
	if w.Code != http.StatusOK || !strings.Contains(link, "inline") {
		t.Fatalf("preview status=%d url=%s", w.Code, link)
	}

	w = do(t, r, httptest.NewRequest(http.MethodDelete, "/api/resources/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	var deleted map[string]interface{}
	decode(t, w, &deleted)
	if deleted["message"] != "Resource deleted successfully" {
		t.Fatalf("unexpected delete body: %v", deleted)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/resources/download/"+id, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("download after delete status = %d", w.Code)
	}
}

func TestUploadRejections(t *testing.T) {
	env := testutil.Setup(t)
	r := InitRouter()

	fields := map[string]string{"title": "Setup", "semester": "1"}
	w := do(t, r, uploadRequest(t, fields, "setup.exe", []byte("MZ")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("exe status = %d", w.Code)
	}
	var body map[string]interface{}
	decode(t, w, &body)
	if body["error"] != "File type .exe is not allowed" || body["details"] == nil {
		t.Fatalf("unexpected body: %v", body)
	}

	w = do(t, r, uploadRequest(t, fields, "", nil))
	decode(t, w, &body)
	if w.Code != http.StatusBadRequest || body["error"] != "No file provided" {
		t.Fatalf("missing file status=%d body=%v", w.Code, body)
	}

	env.SetPolicy(config.NewUploadPolicy(testutil.Bucket, 8, config.DefaultAllowedExtensions, 0))
	w = do(t, r, uploadRequest(t, fields, "big.pdf", bytes.Repeat([]byte("x"), 64)))
	decode(t, w, &body)
	if w.Code != http.StatusBadRequest || !strings.Contains(body["error"].(string), "8 byte limit") {
		t.Fatalf("too large status=%d body=%v", w.Code, body)
	}

	if env.Store.Puts != 0 {
		t.Fatalf("rejected uploads reached storage: puts = %d", env.Store.Puts)
	}
}

func TestVideoEndpoints(t *testing.T) {
	testutil.Setup(t)
	r := InitRouter()

	req := jsonRequest(http.MethodPost, "/api/videos", map[string]interface{}{
		"title":    "Graphs",
		"url":      "https://www.youtube.com/watch?v=abc123",
		"subject":  "Discrete Math",
		"semester": "2",
	})
	w := do(t, r, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", w.Code, w.Body.String())
	}
	var video map[string]interface{}
	decode(t, w, &video)
	if video["semester"] != float64(2) {
		t.Fatalf("semester = %v", video["semester"])
	}

	w = do(t, r, jsonRequest(http.MethodPost, "/api/videos", map[string]interface{}{
		"title": "Bad", "url": "https://x", "subject": "Math", "semester": "two",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid semester status = %d", w.Code)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/catalog/videos", nil))
	var catalog map[string]interface{}
	decode(t, w, &catalog)
	if w.Code != http.StatusOK || catalog["total"] != float64(1) {
		t.Fatalf("catalog status=%d body=%v", w.Code, catalog)
	}

	w = do(t, r, httptest.NewRequest(http.MethodDelete, "/api/videos/"+video["id"].(string), nil))
	var msg map[string]string
	decode(t, w, &msg)
	if w.Code != http.StatusOK || msg["message"] != "Video removed from library" {
		t.Fatalf("delete status=%d body=%v", w.Code, msg)
	}
}

func TestSemesterCatalogRejectsBadSemester(t *testing.T) {
	testutil.Setup(t)
	r := InitRouter()

	w := do(t, r, httptest.NewRequest(http.MethodGet, "/api/catalog/semesters/9", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/catalog/semesters/4", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestAdminAuthFlow(t *testing.T) {
	env := testutil.Setup(t)
	config.AppConfig.AdminAuthEnabled = true
	config.AppConfig.AdminPassword = "s3cret"
	config.AppConfig.AdminPasswordHash = ""
	revocations := testutil.NewMemRevocations()
	repo.Revocations = revocations
	r := InitRouter()

	fields := map[string]string{"title": "Notes", "semester": "1"}
	w := do(t, r, uploadRequest(t, fields, "notes.txt", []byte("hello")))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous upload status = %d", w.Code)
	}

	w = do(t, r, jsonRequest(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "nope"}))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", w.Code)
	}

	w = do(t, r, jsonRequest(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "s3cret"}))
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body=%s", w.Code, w.Body.String())
	}
	var login map[string]interface{}
	decode(t, w, &login)
	token, _ := login["token"].(string)
	if token == "" {
		t.Fatalf("no token in %v", login)
	}
	bearer := "Bearer " + token

	req := uploadRequest(t, fields, "notes.txt", []byte("hello"))
	req.Header.Set("Authorization", bearer)
	if w = do(t, r, req); w.Code != http.StatusCreated {
		t.Fatalf("authorized upload status = %d body=%s", w.Code, w.Body.String())
	}
	if env.Store.Puts != 1 {
		t.Fatalf("puts = %d", env.Store.Puts)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	req.Header.Set("Authorization", bearer)
	w = do(t, r, req)
	var session map[string]interface{}
	decode(t, w, &session)
	if w.Code != http.StatusOK || session["username"] != "admin" {
		t.Fatalf("session status=%d body=%v", w.Code, session)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.Header.Set("Authorization", bearer)
	if w = do(t, r, req); w.Code != http.StatusOK {
		t.Fatalf("logout status = %d body=%s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/admin/session", nil)
	req.Header.Set("Authorization", bearer)
	w = do(t, r, req)
	var body map[string]string
	decode(t, w, &body)
	if w.Code != http.StatusUnauthorized || body["error"] != "Session has been revoked" {
		t.Fatalf("revoked session status=%d body=%v", w.Code, body)
	}
}

func TestPlaceholderJWTSecretLocksAdminRoutes(t *testing.T) {
	testutil.Setup(t)
	config.AppConfig.AdminAuthEnabled = true
	config.AppConfig.AdminPassword = "s3cret"
	config.AppConfig.AdminPasswordHash = ""
	config.AppConfig.JWTSecret = config.InsecureJWTSecret
	r := InitRouter()

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": "admin",
		"jti":  "x",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(config.InsecureJWTSecret))
	if err != nil {
		t.Fatal(err)
	}
	req := jsonRequest(http.MethodPost, "/api/videos", map[string]interface{}{
		"title": "pwn", "url": "https://example.com", "subject": "x", "semester": 1,
	})
	req.Header.Set("Authorization", "Bearer "+forged)
	if w := do(t, r, req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("forged token status = %d body=%s", w.Code, w.Body.String())
	}

	w := do(t, r, jsonRequest(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "s3cret"}))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("login status = %d body=%s", w.Code, w.Body.String())
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/videos", nil))
	var videos []map[string]interface{}
	decode(t, w, &videos)
	if w.Code != http.StatusOK || len(videos) != 0 {
		t.Fatalf("videos status=%d body=%v", w.Code, videos)
	}
}

func TestRevocationOutageRejectsSessions(t *testing.T) {
	testutil.Setup(t)
	config.AppConfig.AdminAuthEnabled = true
	config.AppConfig.AdminPassword = "pw"
	config.AppConfig.AdminPasswordHash = ""
	revocations := testutil.NewMemRevocations()
	repo.Revocations = revocations
	r := InitRouter()

	w := do(t, r, jsonRequest(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "pw"}))
	var login map[string]interface{}
	decode(t, w, &login)
	token, _ := login["token"].(string)
	if token == "" {
		t.Fatalf("login status=%d body=%v", w.Code, login)
	}

	revocations.Err = errors.New("redis: i/o timeout")
	req := jsonRequest(http.MethodPost, "/api/videos", map[string]interface{}{
		"title": "Trees", "url": "https://youtu.be/t", "subject": "CS", "semester": 3,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	w = do(t, r, req)
	var body map[string]interface{}
	decode(t, w, &body)
	if w.Code != http.StatusServiceUnavailable || body["error"] != "Session revocation check failed" {
		t.Fatalf("status=%d body=%v", w.Code, body)
	}
}

func TestLogoutWithoutRevocationStore(t *testing.T) {
	testutil.Setup(t)
	config.AppConfig.AdminPassword = "pw"
	config.AppConfig.AdminPasswordHash = ""
	r := InitRouter()

	w := do(t, r, jsonRequest(http.MethodPost, "/api/admin/login", map[string]string{"username": "admin", "password": "pw"}))
	var login map[string]interface{}
	decode(t, w, &login)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	req.Header.Set("Authorization", "Bearer "+login["token"].(string))
	if w = do(t, r, req); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("logout status = %d", w.Code)
	}
}

func TestCleanupTasksListing(t *testing.T) {
	env := testutil.Setup(t)
	r := InitRouter()

	w := do(t, r, uploadRequest(t, map[string]string{"title": "Lab", "semester": "5"}, "lab.docx", []byte("doc")))
	if w.Code != http.StatusCreated {
		t.Fatalf("upload status = %d", w.Code)
	}
	var created map[string]interface{}
	decode(t, w, &created)

	env.Store.FailRemove = errors.New("blob store offline")
	w = do(t, r, httptest.NewRequest(http.MethodDelete, "/api/resources/"+created["id"].(string), nil))
	var deleted map[string]interface{}
	decode(t, w, &deleted)
	cleanup, _ := deleted["cleanup"].(map[string]interface{})
	if w.Code != http.StatusOK || cleanup["status"] != "cleanup_scheduled" {
		t.Fatalf("delete status=%d body=%v", w.Code, deleted)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/admin/cleanup-tasks?status=pending", nil))
	var tasks []map[string]interface{}
	decode(t, w, &tasks)
	if w.Code != http.StatusOK || len(tasks) != 1 || tasks[0]["reason"] != "resource_delete" {
		t.Fatalf("cleanup tasks status=%d body=%v", w.Code, tasks)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/admin/cleanup-tasks?status=bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bogus status filter = %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	testutil.Setup(t)
	config.AppConfig.FrontendURL = "https://shelf.example.edu/"
	r := InitRouter()

	req := httptest.NewRequest(http.MethodOptions, "/api/resources", nil)
	req.Header.Set("Origin", "https://shelf.example.edu")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := do(t, r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://shelf.example.edu" {
		t.Fatalf("allow origin = %q (status %d)", got, w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("credentials not allowed")
	}
}

func TestUploadTextNotesEndToEnd(t *testing.T) {
	testutil.Setup(t)
	r := InitRouter()

	w := do(t, r, uploadRequest(t, map[string]string{"title": "Notes", "semester": "1"}, "notes.txt", []byte("0123456789")))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	var res map[string]interface{}
	decode(t, w, &res)
	fileURL, _ := res["file_url"].(string)
	if res["file_size"] != float64(10) || res["file_name"] != "notes.txt" || !strings.HasPrefix(fileURL, "semester-1/") {
		t.Fatalf("unexpected resource: %v", res)
	}

	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/resources", nil))
	var list []map[string]interface{}
	decode(t, w, &list)
	if len(list) == 0 || list[0]["id"] != res["id"] {
		t.Fatalf("new upload should be listed first: %v", list)
	}
}

func TestCreateVideoCoercesSemesterEndToEnd(t *testing.T) {
	testutil.Setup(t)
	r := InitRouter()

	w := do(t, r, jsonRequest(http.MethodPost, "/api/videos", map[string]string{
		"title": "Intro", "url": "https://youtu.be/abc123", "subject": "Physics", "semester": "2",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	w = do(t, r, httptest.NewRequest(http.MethodGet, "/api/videos?subject=Physics", nil))
	var list []map[string]interface{}
	decode(t, w, &list)
	if len(list) != 1 || list[0]["semester"] != float64(2) || list[0]["title"] != "Intro" {
		t.Fatalf("unexpected list: %v", list)
	}
}
