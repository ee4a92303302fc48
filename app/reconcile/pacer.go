package reconcile

import (
	"context"
	"net/url"
	"sync"
	"time"

	"film-resolver/app/utils/linkhelper"

	"golang.org/x/time/rate"
)

// Pacer 在每次探测前等待，保证对同一主机的请求间隔
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// NopPacer 不做任何等待，测试中使用
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context, _ string) error {
	return ctx.Err()
}

// HostPacer 为每个目标主机维护一个令牌桶，两次请求之间至少间隔 interval
type HostPacer struct {
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHostPacer 创建按主机限速的节拍器，interval <= 0 时不限速
func NewHostPacer(interval time.Duration) *HostPacer {
	return &HostPacer{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Wait 阻塞直到允许向 rawURL 所在主机发出下一次请求，ctx 取消时返回错误
func (p *HostPacer) Wait(ctx context.Context, rawURL string) error {
	return p.limiter(hostOf(rawURL)).Wait(ctx)
}

func (p *HostPacer) limiter(host string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.limiters[host]
	if !ok {
		limit := rate.Inf
		if p.interval > 0 {
			limit = rate.Every(p.interval)
		}
		l = rate.NewLimiter(limit, 1)
		p.limiters[host] = l
	}
	return l
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	head, _ := linkhelper.SplitHead(rawURL)
	return head
}
