package utils

import (
	"regexp"
	"slices"
	"time"
)

func IsValidEmail(email string) bool {
	// Basic email validation regex pattern
	pattern := `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	regex := regexp.MustCompile(pattern)
	return regex.MatchString(email)
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func NewTime(t time.Time) *time.Time {
	return &t
}

func NewInt(i int) *int {
	return &i
}

func MergeIntSlices(a []int, b []int) []int {
	merged := slices.Clone(a)
	for _, v := range b {
		if !slices.Contains(merged, v) {
			merged = append(merged, v)
		}
	}
	return merged
}
