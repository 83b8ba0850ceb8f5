package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey 请求ID在上下文中的键名
const RequestIDKey = "requestID"

// requestIDHeader 请求ID响应头
const requestIDHeader = "X-Request-ID"

// RequestID 为每个请求分配唯一标识，便于日志关联。
// 如果客户端已携带 X-Request-ID 则沿用。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDKey, requestID)
		c.Header(requestIDHeader, requestID)

		c.Next()
	}
}
