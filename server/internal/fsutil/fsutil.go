package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)
	repeatedWhitespace   = regexp.MustCompile(`\s+`)
)

const maxFilenameRunes = 120

// SanitizeFilename strips characters that are invalid in file names,
// collapses whitespace and trims surrounding dots. Returns "" when nothing
// usable remains.
func SanitizeFilename(name string) string {
	cleaned := invalidFilenameChars.ReplaceAllString(name, "")
	cleaned = repeatedWhitespace.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(strings.TrimSpace(cleaned), ".")
	if cleaned == "" {
		return ""
	}

	runes := []rune(cleaned)
	if len(runes) > maxFilenameRunes {
		runes = runes[:maxFilenameRunes]
	}
	return string(runes)
}

// UniqueOutputPath returns a path under dir that does not exist yet,
// probing numeric suffixes before giving up and appending a short random
// one.
func UniqueOutputPath(dir, baseName, suffix string) string {
	candidate := filepath.Join(dir, baseName+suffix)
	if _, err := os.Stat(candidate); os.IsNotExist(err) {
		return candidate
	}

	for i := 1; i < 200; i++ {
		alt := filepath.Join(dir, fmt.Sprintf("%s-%d%s", baseName, i, suffix))
		if _, err := os.Stat(alt); os.IsNotExist(err) {
			return alt
		}
	}

	unique := fmt.Sprintf("%s-%s", baseName, uuid.NewString()[:6])
	return filepath.Join(dir, unique+suffix)
}

// EnsureDir creates the directory (and parents) when missing.
func EnsureDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}
