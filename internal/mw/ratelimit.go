package mw

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Limiter 判断某个 key 当前请求是否放行，拒绝时给出建议的重试间隔。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

type keyLimiter struct {
	lim *rate.Limiter
	ts  time.Time
}

// LocalLimiter 是进程内按 key 的令牌桶，空闲超过 ttl 的 key 会被回收。
type LocalLimiter struct {
	mu   sync.Mutex
	m    map[string]*keyLimiter
	r    rate.Limit
	b    int
	ttl  time.Duration
	stop chan struct{}
	once sync.Once
}

func NewLocalLimiter(rps float64, burst int, ttl time.Duration) *LocalLimiter {
	return &LocalLimiter{m: make(map[string]*keyLimiter), r: rate.Limit(rps), b: burst, ttl: ttl, stop: make(chan struct{})}
}

func (rl *LocalLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	kl, ok := rl.m[key]
	if ok {
		kl.ts = time.Now()
		return kl.lim
	}
	lim := rate.NewLimiter(rl.r, rl.b)
	rl.m[key] = &keyLimiter{lim: lim, ts: time.Now()}
	return lim
}

func (rl *LocalLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	r := rl.get(key).Reserve()
	if !r.OK() {
		return false, time.Second, nil
	}
	if d := r.Delay(); d > 0 {
		r.Cancel()
		return false, d, nil
	}
	return true, 0, nil
}

// Start 启动过期 key 回收。
func (rl *LocalLimiter) Start() {
	rl.once.Do(func() { go rl.gc() })
}

func (rl *LocalLimiter) gc() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

func (rl *LocalLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, v := range rl.m {
		if now.Sub(v.ts) > rl.ttl {
			delete(rl.m, k)
		}
	}
}

// Stop 停止 GC goroutine，用于优雅停服。
func (rl *LocalLimiter) Stop() {
	select {
	case <-rl.stop:
	default:
		close(rl.stop)
	}
}

// RateLimit 返回一个基于 IP+路由的限速中间件。limiter 出错时放行并记录日志。
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := clientIP(c.Request.RemoteAddr)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		ok, retry, err := l.Allow(c.Request.Context(), ip+"|"+path)
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			if retry > 0 {
				c.Header("Retry-After", strconv.Itoa(int((retry+time.Second-1)/time.Second)))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func clientIP(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
