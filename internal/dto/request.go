package dto

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"
)

// ResourceListQuery filters GET /api/resources. Semester stays a string so a
// malformed value can be reported instead of silently ignored.
type ResourceListQuery struct {
	Semester string `form:"semester"`
	Category string `form:"category"`
	Subject  string `form:"subject"`
	Search   string `form:"search"`
}

type ResourceUploadForm struct {
	Title    string                `form:"title"`
	Semester string                `form:"semester"`
	Category string                `form:"category"`
	Subject  string                `form:"subject"`
	File     *multipart.FileHeader `form:"-"`
}

type VideoListQuery struct {
	Semester string `form:"semester"`
	Subject  string `form:"subject"`
	Search   string `form:"search"`
}

type VideoCreateRequest struct {
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Subject  string  `json:"subject"`
	Semester FlexInt `json:"semester"`
}

type CatalogQuery struct {
	Semester string `form:"semester"`
	Search   string `form:"search"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type CleanupTaskQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
}

// FlexInt accepts a JSON number or a numeric string.
type FlexInt struct {
	Value   int
	Present bool
	Invalid bool
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		f.Present = true
		if v != float64(int(v)) {
			f.Invalid = true
			return nil
		}
		f.Value = int(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		f.Present = true
		n, err := strconv.Atoi(s)
		if err != nil {
			f.Invalid = true
			return nil
		}
		f.Value = n
	case bool:
		f.Present = v
		f.Invalid = v
	default:
		f.Present = true
		f.Invalid = true
	}
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Present || f.Invalid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// Int wraps a plain integer.
func Int(n int) FlexInt {
	return FlexInt{Value: n, Present: true}
}
