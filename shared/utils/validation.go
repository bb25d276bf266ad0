package utils

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+(?:\.[a-zA-Z0-9!#$%&'*+/=?^_` + "`" + `{|}~-]+)*@(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?\.)+[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?$`)
	// E.164 with optional leading +, or a domestic number starting with 0
	phoneRegex = regexp.MustCompile(`^(\+?[1-9]\d{7,14}|0\d{8,10})$`)
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "email format incorrect"}
	}
	return nil
}

func ValidatePhone(phone string) error {
	cleaned := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(phone)
	if !phoneRegex.MatchString(cleaned) {
		return ValidationError{Field: "phone", Message: "phone format incorrect"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	if len(password) > 72 {
		return ValidationError{Field: "password", Message: "password must be at most 72 characters"}
	}
	return nil
}

// ValidateFile checks size and extension of an uploaded multipart file.
func ValidateFile(fileHeader *multipart.FileHeader, allowedExts []string, maxMB int64) error {
	if fileHeader.Size > maxMB*1024*1024 {
		return ValidationError{Field: fileHeader.Filename, Message: fmt.Sprintf("file larger than %d MB", maxMB)}
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !slices.Contains(allowedExts, ext) {
		return ValidationError{Field: fileHeader.Filename, Message: fmt.Sprintf("file type not allowed: %s", ext)}
	}
	return nil
}

func GetQueryParamAsInt(c *gin.Context, paramName string, defaultValue int) (int, error) {
	paramValue := c.Query(paramName)
	if paramValue == "" {
		return defaultValue, nil
	}

	intValue, err := strconv.Atoi(paramValue)
	if err != nil || intValue <= 0 {
		return 0, fmt.Errorf("invalid %s", paramName)
	}

	return intValue, nil
}

// GetPagination reads page and limit query params. limit is capped at maxLimit.
func GetPagination(c *gin.Context, defaultLimit, maxLimit int) (page, limit int, err error) {
	page, err = GetQueryParamAsInt(c, "page", 1)
	if err != nil {
		return 0, 0, err
	}
	limit, err = GetQueryParamAsInt(c, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit, nil
}
