package utils

import (
	"crypto/rand"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var letters = []byte("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ123456789")

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func GenerateRandomStringWithLength(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b)
}

// GenerateSafeFilename strips anything outside [a-zA-Z0-9._-] and appends a
// timestamp plus a random suffix so two uploads of the same name never collide.
func GenerateSafeFilename(original string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(original))
	base := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
	base = unsafeFilenameChars.ReplaceAllString(base, "_")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%s_%s_%s%s", base, now.Format("20060102_150405"), GenerateRandomStringWithLength(6), ext)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
