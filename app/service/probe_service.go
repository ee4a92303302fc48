package service

import (
	"context"
	"net/http"
	"time"

	"film-resolver/app/config"
	"film-resolver/app/logger"
	"film-resolver/app/metrics"
	"film-resolver/app/reconcile"

	"github.com/patrickmn/go-cache"
	"resty.dev/v3"
)

// HTTPProber 通过 GET 请求判断远程资源是否存在，只读取响应头
type HTTPProber struct {
	client        *resty.Client
	cache         *cache.Cache
	requireLength bool
	logger        *logger.Logger
}

// NewHTTPProber 创建 HTTP 探测器
func NewHTTPProber(cfg config.ProbeConfig, log *logger.Logger) *HTTPProber {
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(cfg.Retries)
	client.SetRetryWaitTime(cfg.RetryWait)
	client.SetRetryMaxWaitTime(cfg.RetryWait * 2)
	client.SetHeader("User-Agent", cfg.UserAgent)
	// 避免透明解压导致 Content-Length 丢失
	client.SetHeader("Accept-Encoding", "identity")
	client.AddRetryConditions(func(resp *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return transient(resp.StatusCode())
	})

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &HTTPProber{
		client:        client,
		cache:         cache.New(ttl, 2*ttl),
		requireLength: cfg.RequireLength,
		logger:        log,
	}
}

// Probe 实现 reconcile.Prober
func (p *HTTPProber) Probe(ctx context.Context, url string) reconcile.ProbeResult {
	if v, ok := p.cache.Get(url); ok {
		metrics.ProbeCacheHits.Inc()
		return v.(reconcile.ProbeResult)
	}

	start := time.Now()
	res := p.fetch(ctx, url)
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	// 不确定的结果不缓存，下次重新探测
	if res.Status != reconcile.Indeterminate {
		p.cache.Set(url, res, cache.DefaultExpiration)
	}
	return res
}

func (p *HTTPProber) fetch(ctx context.Context, url string) reconcile.ProbeResult {
	indeterminate := reconcile.ProbeResult{Status: reconcile.Indeterminate, Size: -1}

	resp, err := p.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if resp != nil && resp.RawResponse != nil && resp.RawResponse.Body != nil {
		defer resp.RawResponse.Body.Close()
	}
	if err != nil {
		p.logger.Debugf("探测 %s 失败: %v", url, err)
		return indeterminate
	}

	code := resp.StatusCode()
	switch {
	case transient(code):
		return indeterminate
	case code < 200 || code >= 300:
		return reconcile.ProbeResult{Status: reconcile.NotExists, Size: -1}
	}

	size := resp.RawResponse.ContentLength
	if size <= 0 {
		if p.requireLength {
			p.logger.Debugf("%s 没有返回文件大小，视为不存在", url)
			return reconcile.ProbeResult{Status: reconcile.NotExists, Size: -1}
		}
		size = -1
	}
	return reconcile.ProbeResult{Status: reconcile.Exists, Size: size}
}

// Close 释放底层连接
func (p *HTTPProber) Close() {
	p.client.Close()
}

// transient 服务端暂时不可用，结果不能说明资源是否存在
func transient(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
