package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"classroom/internal/service"
	v1 "classroom/pkg/api/v1"
	"classroom/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const pageSize = 20

// writeError maps service errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, service.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrSessionExpired):
		status, msg = http.StatusUnauthorized, err.Error()
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, v1.ErrorResponse{Error: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: msg})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: service.ErrNotFound.Error()})
		return 0, false
	}
	return id, true
}

// paginate slices items by the ?page= query parameter and wraps them in the
// paginated envelope.
func paginate[T any](c *gin.Context, items []T) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: "invalid page"})
			return
		}
		page = p
	}

	start := (page - 1) * pageSize
	if start > 0 && start >= len(items) {
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: "invalid page"})
		return
	}
	end := min(start+pageSize, len(items))

	out := v1.Paginated[T]{Results: items[start:end], Count: len(items)}
	if end < len(items) {
		next := pageURL(c, page+1)
		out.Next = &next
	}
	if page > 1 {
		prev := pageURL(c, page-1)
		out.Previous = &prev
	}
	c.JSON(http.StatusOK, out)
}

func pageURL(c *gin.Context, page int) string {
	u := url.URL{Scheme: scheme(c), Host: c.Request.Host, Path: c.Request.URL.Path}
	q := c.Request.URL.Query()
	q.Set("page", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func scheme(c *gin.Context) string {
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		return "https"
	}
	return "http"
}

func baseURL(c *gin.Context) string {
	return scheme(c) + "://" + c.Request.Host
}
