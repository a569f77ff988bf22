package respond

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes a 200 OK JSON response.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Created writes a 201 Created JSON response.
func Created(c *gin.Context, payload any) {
	JSON(c, http.StatusCreated, payload)
}

// NoContent writes an empty 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// List wraps a page of items with its paging parameters.
func List[T any](c *gin.Context, items []T, limit, offset int) {
	if items == nil {
		items = []T{}
	}
	OK(c, gin.H{"items": items, "limit": limit, "offset": offset})
}

// Paging reads limit and offset query parameters. Missing or non-positive
// limits fall back to def and large ones are clamped to max.
func Paging(c *gin.Context, def, max int) (limit, offset int) {
	limit = def
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > max {
		limit = max
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}
