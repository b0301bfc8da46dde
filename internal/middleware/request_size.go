package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vltd-dashboard/pkg/utils"
)

const (
	DefaultMaxRequestSize = 10 << 20
	// multipartOverhead covers boundaries and part headers around uploads.
	multipartOverhead = 1 << 20
)

// RequestSizeLimitMiddleware caps request bodies at maxSize bytes.
func RequestSizeLimitMiddleware(maxSize int64) gin.HandlerFunc {
	if maxSize <= 0 {
		maxSize = DefaultMaxRequestSize
	}

	return func(c *gin.Context) {
		if c.Request.ContentLength > maxSize {
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "Request body too large")
			c.Abort()
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// UploadSizeLimit sizes the body limit for a batch of files of at most
// perFile bytes each.
func UploadSizeLimit(perFile int64, files int) int64 {
	return perFile*int64(files) + multipartOverhead
}
