package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
)

// BodyLimit caps the request body at maxBytes. Requests that announce a
// larger Content-Length are rejected up front with 413; others fail when
// the handler reads past the limit (see IsBodyTooLarge).
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"status":  "error",
				"message": TooLargeMessage(maxBytes),
			})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// IsBodyTooLarge reports whether err came from reading past BodyLimit
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// TooLargeMessage is the client-facing message for an oversized upload
func TooLargeMessage(maxBytes int64) string {
	return fmt.Sprintf("File is too large. The limit is %s.", humanize.IBytes(uint64(maxBytes)))
}
