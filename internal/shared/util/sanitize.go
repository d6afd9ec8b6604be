package util

import (
	"errors"
	"path"
	"strings"
)

// SanitizeFileName removes path separators and rejects traversal patterns.
func SanitizeFileName(name string) (string, error) {
	if strings.Contains(name, "..") {
		return "", errors.New("invalid file name")
	}
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	if s == "" {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// IsLASFile reports whether name carries a .las or .las2 extension.
func IsLASFile(name string) bool {
	switch strings.ToLower(path.Ext(strings.TrimSpace(name))) {
	case ".las", ".las2":
		return true
	default:
		return false
	}
}
