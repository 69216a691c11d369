package service

import (
	"strings"

	"gorm.io/gorm"
)

const likeEscape = "!"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// likePattern builds a case-insensitive substring pattern in which LIKE
// metacharacters typed by the user match literally.
func likePattern(term string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(term)) + "%"
}

// whereContains adds a case-insensitive substring filter on column.
func whereContains(query *gorm.DB, column, term string) *gorm.DB {
	term = strings.TrimSpace(term)
	if term == "" {
		return query
	}
	return query.Where("LOWER("+column+") LIKE ? ESCAPE '"+likeEscape+"'", likePattern(term))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
