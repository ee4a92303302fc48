package service

import (
	"context"
	"fmt"
	"time"

	"film-resolver/app/collector"
	"film-resolver/app/config"
	"film-resolver/app/logger"
	"film-resolver/app/model"
	"film-resolver/app/reconcile"
	"film-resolver/app/utils/linkhelper"

	"github.com/google/uuid"
	"resty.dev/v3"
)

// ReconcileService 收集候选链接并调用匹配引擎
type ReconcileService struct {
	cfg        *config.Config
	engine     *reconcile.Engine
	prober     *HTTPProber
	pageClient *resty.Client
	classifier linkhelper.Classifier
	logger     *logger.Logger
}

// NewReconcileService 按配置组装探测器、限速器与评分器
func NewReconcileService(cfg *config.Config, log *logger.Logger) *ReconcileService {
	prober := NewHTTPProber(cfg.Probe, log.Named("probe"))
	engine := reconcile.NewEngine(
		prober,
		reconcile.NewHostPacer(cfg.Probe.Interval),
		reconcile.NewScorer(cfg.Score),
		reconcile.Options{
			JunkSites:   cfg.Collect.JunkSites,
			PanHosts:    cfg.Collect.PanHosts,
			Concurrency: cfg.Probe.Concurrency,
		},
		log.Named("engine"),
	)
	return newReconcileService(cfg, engine, prober, log)
}

func newReconcileService(cfg *config.Config, engine *reconcile.Engine, prober *HTTPProber, log *logger.Logger) *ReconcileService {
	panHosts := cfg.Collect.PanHosts
	if len(panHosts) == 0 {
		panHosts = linkhelper.DefaultPanHosts
	}
	return &ReconcileService{
		cfg:        cfg,
		engine:     engine,
		prober:     prober,
		pageClient: collector.NewPageClient(cfg.Collect.PageTimeout, cfg.Probe.UserAgent),
		classifier: linkhelper.Classifier{PanHosts: panHosts},
		logger:     log,
	}
}

// Engine 返回底层匹配引擎
func (s *ReconcileService) Engine() *reconcile.Engine {
	return s.engine
}

// Close 释放探测器与页面抓取的连接
func (s *ReconcileService) Close() {
	if s.prober != nil {
		s.prober.Close()
	}
	s.pageClient.Close()
}

// Collectors 任务自带的链接优先，其次是需要抓取的页面
func (s *ReconcileService) Collectors(job *model.Job) []collector.ResourceCollector {
	collectors := make([]collector.ResourceCollector, 0, 2)
	if len(job.Candidates) > 0 {
		collectors = append(collectors, collector.NewStaticCollector("job", 1, job.Candidates))
	}
	if len(job.Pages) > 0 {
		collectors = append(collectors, collector.NewPageCollector(job.Pages, collector.PageOptions{
			PanHosts: s.cfg.Collect.PanHosts,
			Client:   s.pageClient,
		}, s.logger.Named("collector")))
	}
	return collectors
}

// Collect 按优先级运行收集器并按地址去重，保留首次出现的备注
func (s *ReconcileService) Collect(ctx context.Context, target model.MediaTarget, collectors []collector.ResourceCollector) ([]model.RawCandidate, error) {
	seen := make(map[string]struct{})
	candidates := make([]model.RawCandidate, 0)
	for _, c := range collector.ByPriority(collectors) {
		found, err := c.Collect(ctx, target)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.logger.Warnf("收集器 %s 执行失败: %v", c.Name(), err)
			continue
		}
		added := 0
		for _, rc := range found {
			if _, ok := seen[rc.URL]; ok {
				continue
			}
			seen[rc.URL] = struct{}{}
			candidates = append(candidates, rc)
			added++
		}
		s.logger.Debugf("收集器 %s 提供 %d 个新链接", c.Name(), added)
	}
	return candidates, nil
}

// Run 处理一个任务，任务没有 ID 时自动生成
func (s *ReconcileService) Run(ctx context.Context, job *model.Job) (*model.JobOutcome, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	start := time.Now()
	candidates, err := s.Collect(ctx, job.Target, s.Collectors(job))
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Reconcile(ctx, job.Target, candidates)
	if err != nil {
		return nil, fmt.Errorf("任务 %s 匹配失败: %w", job.ID, err)
	}

	s.logger.Infof("任务 %s（%s）完成，候选 %d 个，耗时 %s", job.ID, job.Target.Title, len(candidates), time.Since(start).Round(time.Millisecond))
	return &model.JobOutcome{JobID: job.ID, Title: job.Target.Title, Result: result}, nil
}

// Classify 对一组原始链接分类
func (s *ReconcileService) Classify(urls []string) []model.ClassifiedLink {
	links := make([]model.ClassifiedLink, len(urls))
	for i, u := range urls {
		links[i] = s.classifier.Classify(u)
	}
	return links
}
