package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"film-resolver/app/logger"
	"film-resolver/app/model"
	"film-resolver/app/utils/linkhelper"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
	"resty.dev/v3"
)

// PageCollector 从给定页面中提取所有下载链接。
//
// 只读取 a[href]，不依赖任何站点的页面结构；锚点文字（缺失时用 title）作为备注，
// 网盘链接的提取码通常在备注中。
type PageCollector struct {
	pages      []string
	priority   int
	client     *resty.Client
	ownClient  bool
	classifier linkhelper.Classifier
	logger     *logger.Logger
}

// PageOptions 页面收集参数
type PageOptions struct {
	Priority  int
	Timeout   time.Duration
	UserAgent string
	PanHosts  []string
	Client    *resty.Client // 共享的客户端，为空时自建并在 Close 时释放
}

func NewPageCollector(pages []string, opts PageOptions, log *logger.Logger) *PageCollector {
	if log == nil {
		log = logger.NewNop()
	}
	client, own := opts.Client, false
	if client == nil {
		client, own = NewPageClient(opts.Timeout, opts.UserAgent), true
	}
	panHosts := opts.PanHosts
	if len(panHosts) == 0 {
		panHosts = linkhelper.DefaultPanHosts
	}
	priority := opts.Priority
	if priority <= 0 {
		priority = DefaultPriority
	}
	return &PageCollector{
		pages:      pages,
		priority:   priority,
		client:     client,
		ownClient:  own,
		classifier: linkhelper.Classifier{PanHosts: panHosts},
		logger:     log,
	}
}

// NewPageClient 创建抓取页面用的 HTTP 客户端
func NewPageClient(timeout time.Duration, userAgent string) *resty.Client {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	return client
}

// Close 释放自建的客户端，共享的客户端由创建者释放
func (c *PageCollector) Close() {
	if c.ownClient {
		c.client.Close()
	}
}

func (c *PageCollector) Name() string { return "page" }

func (c *PageCollector) Priority() int { return c.priority }

// Collect 逐个抓取页面，单个页面失败只记录日志
func (c *PageCollector) Collect(ctx context.Context, target model.MediaTarget) ([]model.RawCandidate, error) {
	candidates := make([]model.RawCandidate, 0)
	for _, page := range c.pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := c.collectPage(ctx, page)
		if err != nil {
			c.logger.Warnf("收集页面 %s 失败: %v", page, err)
			continue
		}
		c.logger.Infof("页面 %s 找到 %d 个链接（%s）", page, len(found), target.Title)
		candidates = append(candidates, found...)
	}
	return candidates, nil
}

func (c *PageCollector) collectPage(ctx context.Context, page string) ([]model.RawCandidate, error) {
	resp, err := c.client.R().SetContext(ctx).Get(page)
	if err != nil {
		return nil, fmt.Errorf("请求页面失败: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("页面返回状态码 %d", resp.StatusCode())
	}

	// 许多下载站仍然使用 GBK，按响应头和 meta 标签转换为 UTF-8
	reader, err := charset.NewReader(bytes.NewReader(resp.Bytes()), resp.Header().Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("识别页面编码失败: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("解析页面失败: %w", err)
	}
	return c.Extract(doc, page), nil
}

// Extract 从已解析的文档中提取可识别协议的链接
func (c *PageCollector) Extract(doc *goquery.Document, page string) []model.RawCandidate {
	found := make([]model.RawCandidate, 0)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = resolveURL(page, href)
		if href == "" {
			return
		}
		if c.classifier.Classify(href).Protocol == model.ProtocolUnknown {
			return
		}
		remark := normSpace(s.Text())
		if remark == "" {
			remark = normSpace(s.AttrOr("title", ""))
		}
		found = append(found, model.RawCandidate{URL: href, Remark: remark})
	})
	return found
}

// resolveURL 相对地址按页面地址补全，其他协议原样返回
func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || hasScheme(href, "javascript:") {
		return ""
	}
	if strings.Contains(href, "://") || strings.Contains(href, ":?") || hasScheme(href, "magnet:") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func hasScheme(s, scheme string) bool {
	return len(s) >= len(scheme) && strings.EqualFold(s[:len(scheme)], scheme)
}

func normSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
