// Package client talks to the Go_Shelf REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"Go_Shelf/internal/dto"
	"Go_Shelf/internal/logger"
	"Go_Shelf/model"
)

const defaultTimeout = 60 * time.Second

// APIError is a non-2xx answer decoded from the {error, code, details} envelope.
type APIError struct {
	StatusCode int
	Message    string      `json:"error"`
	Code       string      `json:"code"`
	Details    interface{} `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type Option func(*Client)

// WithToken sets the admin bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// Client is safe for concurrent use; the token may be replaced by Login.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger

	mu    sync.RWMutex
	token string
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        logger.L,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Upload is one file plus the metadata the upload form carries.
type Upload struct {
	Title    string
	Semester string
	Category string
	Subject  string
	FileName string
	Body     io.Reader
}

func (c *Client) ListResources(ctx context.Context, q dto.ResourceListQuery) ([]model.Resource, error) {
	params := url.Values{}
	setParam(params, "semester", q.Semester)
	setParam(params, "category", q.Category)
	setParam(params, "subject", q.Subject)
	setParam(params, "search", q.Search)
	var out []model.Resource
	if err := c.doJSON(ctx, http.MethodGet, "/api/resources", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadResource posts a multipart upload. The body is buffered so the request
// can carry a Content-Length.
func (c *Client) UploadResource(ctx context.Context, up Upload) (*model.Resource, error) {
	if up.Body == nil || up.FileName == "" {
		return nil, fmt.Errorf("upload %q: no file body", up.FileName)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"title", up.Title},
		{"semester", up.Semester},
		{"category", up.Category},
		{"subject", up.Subject},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("file", up.FileName)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, up.Body); err != nil {
		return nil, fmt.Errorf("read %s: %w", up.FileName, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/resources/upload", nil, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var out model.Resource
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResourceDownloadURL asks for a signed link; preview selects inline disposition.
func (c *Client) ResourceDownloadURL(ctx context.Context, id string, preview bool) (*dto.SignedURLResponse, error) {
	kind := "download"
	if preview {
		kind = "preview"
	}
	var out dto.SignedURLResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/resources/"+kind+"/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteResource(ctx context.Context, id string) (*dto.DeleteResourceResponse, error) {
	var out dto.DeleteResourceResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/resources/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AllowedTypes(ctx context.Context) (*dto.AllowedTypesResponse, error) {
	var out dto.AllowedTypesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/resources/allowed-types", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListVideos(ctx context.Context, q dto.VideoListQuery) ([]model.Video, error) {
	params := url.Values{}
	setParam(params, "semester", q.Semester)
	setParam(params, "subject", q.Subject)
	setParam(params, "search", q.Search)
	var out []model.Video
	if err := c.doJSON(ctx, http.MethodGet, "/api/videos", params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateVideo(ctx context.Context, in dto.VideoCreateRequest) (*model.Video, error) {
	var out model.Video
	if err := c.doJSON(ctx, http.MethodPost, "/api/videos", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteVideo(ctx context.Context, id string) (*dto.MessageResponse, error) {
	var out dto.MessageResponse
	if err := c.doJSON(ctx, http.MethodDelete, "/api/videos/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a session token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*dto.LoginResponse, error) {
	var out dto.LoginResponse
	body := dto.LoginRequest{Username: username, Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/login", nil, body, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doJSON(ctx, http.MethodPost, "/api/admin/logout", nil, nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var out dto.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func setParam(v url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		v.Set(key, value)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body io.Reader) (*http.Request, error) {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, params url.Values, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, params, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		c.log.Debug("api request failed", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
