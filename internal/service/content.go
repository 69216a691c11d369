package service

import (
	"path"
	"strings"
)

// GetContentBook returns content type by file extension.
func GetContentBook(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".ppt":
		return "application/vnd.ms-powerpoint"
	case ".pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// FileExtension is the display extension: the text after the last dot.
func FileExtension(fileName string) string {
	i := strings.LastIndex(fileName, ".")
	if i < 0 || i == len(fileName)-1 {
		return ""
	}
	return fileName[i+1:]
}

// DeriveSubject guesses a grouping subject from "Subject_Title.ext" names,
// falling back to the category and then "General".
func DeriveSubject(fileName, category string) string {
	if i := strings.Index(fileName, "_"); i >= 0 {
		if subject := strings.TrimSpace(fileName[:i]); subject != "" {
			return subject
		}
	}
	if category = strings.TrimSpace(category); category != "" {
		return category
	}
	return DefaultCategory
}
