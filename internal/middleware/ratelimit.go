package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimit 限制每個 IP 每秒的請求次數
// 用於創建房間等消耗代碼空間的端點
func RateLimit(client *redis.Client, maxRequests int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ratelimit:" + c.ClientIP()
		count, _ := client.Get(c.Request.Context(), key).Int()
		if count >= maxRequests {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		client.Incr(c.Request.Context(), key)
		client.Expire(c.Request.Context(), key, time.Second)
		c.Next()
	}
}
