package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"shortlink-service/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimit 全局限流中间件
// Redis 可用时按客户端 IP 做分钟级计数限流（多实例共享额度），
// 否则退化为进程内的令牌桶。
func RateLimit(redisClient *redis.Client, limitConfig *config.Limit) gin.HandlerFunc {
	if !limitConfig.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	if redisClient != nil {
		return redisRateLimit(redisClient, limitConfig)
	}
	return localRateLimit(limitConfig)
}

func skipPath(c *gin.Context, limitConfig *config.Limit) bool {
	for _, path := range limitConfig.SkipPaths {
		if strings.HasPrefix(c.Request.URL.Path, path) {
			return true
		}
	}
	return false
}

func tooManyRequests(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, gin.H{"error": "请求过于频繁，请稍后再试"})
	c.Abort()
}

// redisRateLimit 按分钟窗口计数，键随窗口过期
func redisRateLimit(redisClient *redis.Client, limitConfig *config.Limit) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipPath(c, limitConfig) {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), time.Now().Unix()/60)
		count, err := redisClient.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// 限流器自身故障不挡请求
			c.Next()
			return
		}
		if count == 1 {
			redisClient.Expire(c.Request.Context(), key, time.Minute)
		}
		if count > limitConfig.Requests+limitConfig.Burst {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}

// localRateLimit 基于内存的限流器
func localRateLimit(limitConfig *config.Limit) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(float64(limitConfig.Requests)/60), int(limitConfig.Burst))
	var mu sync.Mutex

	return func(c *gin.Context) {
		if skipPath(c, limitConfig) {
			c.Next()
			return
		}

		mu.Lock()
		allowed := limiter.Allow()
		mu.Unlock()

		if !allowed {
			tooManyRequests(c)
			return
		}
		c.Next()
	}
}
