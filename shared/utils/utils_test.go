package utils

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("tenant@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("a@b"))
}

func TestValidatePhone(t *testing.T) {
	assert.NoError(t, ValidatePhone("+84912345678"))
	assert.NoError(t, ValidatePhone("0912 345 678"))
	assert.Error(t, ValidatePhone("12"))
}

func TestGenerateSafeFilename(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	name := GenerateSafeFilename("floor plan (v2).PDF", now)

	assert.True(t, strings.HasPrefix(name, "floor_plan__v2__20261014_093000_"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
	assert.NotEqual(t, name, GenerateSafeFilename("floor plan (v2).PDF", now))
}

func TestScanJSON_AcceptsStringAndBytes(t *testing.T) {
	var fromBytes, fromString JSONMap
	require.NoError(t, fromBytes.Scan([]byte(`{"a":1}`)))
	require.NoError(t, fromString.Scan(`{"a":1}`))
	assert.Equal(t, fromBytes, fromString)

	var bad JSONMap
	assert.Error(t, bad.Scan(42))
}

func TestGetPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	contextFor := func(target string) *gin.Context {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", target, nil)
		return c
	}

	page, limit, err := GetPagination(contextFor("/?page=2&limit=500"), 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, page)
	assert.Equal(t, 100, limit)

	page, limit, err = GetPagination(contextFor("/"), 20, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, limit)

	for _, target := range []string{"/?page=-1", "/?page=0", "/?limit=abc"} {
		_, _, err = GetPagination(contextFor(target), 20, 100)
		assert.Error(t, err, target)
	}
}
