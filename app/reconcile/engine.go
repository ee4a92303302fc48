package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"film-resolver/app/logger"
	"film-resolver/app/metrics"
	"film-resolver/app/model"
	"film-resolver/app/utils/linkhelper"

	"golang.org/x/sync/errgroup"
)

// Options 引擎参数
type Options struct {
	JunkSites   []string
	PanHosts    []string
	Concurrency int // 同时解析的模板数
}

// Engine 把收集到的原始链接与影视条目对齐
type Engine struct {
	classifier  linkhelper.Classifier
	boundary    *BoundaryProber
	scorer      Scorer
	junkSites   []string
	concurrency int
	logger      *logger.Logger
}

// NewEngine 创建匹配引擎，prober 是唯一的网络出口
func NewEngine(prober Prober, pacer Pacer, scorer Scorer, opts Options, log *logger.Logger) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	panHosts := opts.PanHosts
	if len(panHosts) == 0 {
		panHosts = linkhelper.DefaultPanHosts
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Engine{
		classifier:  linkhelper.Classifier{PanHosts: panHosts},
		boundary:    NewBoundaryProber(prober, pacer, log),
		scorer:      scorer,
		junkSites:   opts.JunkSites,
		concurrency: concurrency,
		logger:      log,
	}
}

// Scorer 返回引擎使用的评分器
func (e *Engine) Scorer() Scorer {
	return e.scorer
}

type candidateLink struct {
	model.ClassifiedLink
	Remark string
}

// Reconcile 电影返回最佳候选，剧集返回每集地址与缺失集数。
//
// 只有 ctx 取消或输入无效时返回错误；单个模板解析失败只记录日志。
func (e *Engine) Reconcile(ctx context.Context, target model.MediaTarget, candidates []model.RawCandidate) (*model.Result, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	links := e.classify(candidates)
	e.logger.Infof("开始匹配 %s（%s），有效链接 %d 个", target.Title, target.Subtype, len(links))

	var (
		result *model.Result
		err    error
	)
	if target.Subtype == model.SubtypeMovie {
		result, err = e.reconcileMovie(ctx, target, links)
	} else {
		result, err = e.reconcileSeries(ctx, target, links)
	}
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues(string(target.Subtype), "error").Inc()
		return nil, err
	}

	outcome := "incomplete"
	if result.Satisfied() {
		outcome = "satisfied"
	}
	metrics.ReconciliationsTotal.WithLabelValues(string(target.Subtype), outcome).Inc()
	return result, nil
}

func (e *Engine) classify(candidates []model.RawCandidate) []candidateLink {
	links := make([]candidateLink, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		l := e.classifier.Classify(c.URL)
		if linkhelper.IsJunk(l.URL, e.junkSites) {
			e.logger.Debugf("跳过垃圾站点链接: %s", l.URL)
			continue
		}
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		links = append(links, candidateLink{ClassifiedLink: l, Remark: c.Remark})
	}
	return links
}

func (e *Engine) reconcileMovie(ctx context.Context, target model.MediaTarget, links []candidateLink) (*model.Result, error) {
	ranked := make([]model.ScoredCandidate, 0)
	for _, l := range links {
		meta, ok, err := e.movieMeta(ctx, l)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		in := ScoreInput{Durations: target.Durations, Subtype: model.SubtypeMovie, Size: meta.Size, Duration: -1}
		if l.Protocol != model.ProtocolMagnet || meta.Name != "" {
			ext := meta.Ext
			in.Ext = &ext
		}
		score := e.scorer.Score(in)
		if !score.Qualified {
			e.logger.Debugf("淘汰候选 %s", l.URL)
			continue
		}
		ranked = append(ranked, model.ScoredCandidate{
			Source:   l.URL,
			Remark:   l.Remark,
			Protocol: l.Protocol,
			FileName: meta.Name,
			Ext:      meta.Ext,
			Size:     meta.Size,
			Score:    score,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.Better(ranked[j].Score)
	})

	result := &model.Result{Subtype: model.SubtypeMovie, Ranked: ranked}
	if len(ranked) > 0 {
		best := ranked[0]
		result.Best = &best
		e.logger.Infof("%s 选中资源 %s，得分 %s", target.Title, best.Source, best.Score)
	} else {
		e.logger.Warnf("%s 没有合格的资源", target.Title)
	}
	return result, nil
}

// movieMeta 按协议提取文件名与大小，HTTP 链接需要确认存在
func (e *Engine) movieMeta(ctx context.Context, l candidateLink) (linkhelper.FileMeta, bool, error) {
	switch l.Protocol {
	case model.ProtocolHTTP:
		meta := linkhelper.BaseName(l.URL)
		if !IsVideoExt(meta.Ext) {
			return meta, false, nil
		}
		res, err := e.boundary.Probe(ctx, l.URL)
		if err != nil {
			return meta, false, err
		}
		if res.Status != Exists {
			e.logger.Debugf("资源不可用 %s: %s", l.URL, res.Status)
			return meta, false, nil
		}
		meta.Size = res.Size
		return meta, true, nil
	case model.ProtocolFTP:
		return linkhelper.BaseName(l.URL), true, nil
	case model.ProtocolEd2k:
		meta, err := linkhelper.ParseEd2k(l.URL)
		if err != nil {
			e.logger.Debugf("%v", err)
			return meta, false, nil
		}
		return meta, true, nil
	case model.ProtocolMagnet:
		meta, err := linkhelper.ParseMagnet(l.URL)
		if err != nil {
			e.logger.Debugf("%v", err)
			return meta, false, nil
		}
		return meta, true, nil
	default:
		// 网盘、种子与未知链接无法直接下载
		return linkhelper.FileMeta{}, false, nil
	}
}

type templateOutcome struct {
	template URLTemplate
	rng      Range
	err      error
}

func (e *Engine) reconcileSeries(ctx context.Context, target model.MediaTarget, links []candidateLink) (*model.Result, error) {
	count := target.EpisodeCount
	// 只有 HTTP 链接可以按模板推断并探测
	httpLinks := make([]model.ClassifiedLink, 0)
	for _, l := range links {
		if l.Protocol != model.ProtocolHTTP || !IsVideoExt(linkhelper.BaseName(l.URL).Ext) {
			continue
		}
		httpLinks = append(httpLinks, l.ClassifiedLink)
	}

	keys, groups := GroupByShape(httpLinks)
	templates := make([]URLTemplate, 0)
	finales := make([]string, 0)
	for _, key := range keys {
		plan := Synthesize(groups[key], count)
		if plan.Rejected != "" {
			metrics.TemplatesTotal.WithLabelValues("rejected").Inc()
			e.logger.Debugf("分组 %s（路径长度 %d）被丢弃: %s", key.Head, key.Length, plan.Rejected)
			continue
		}
		if plan.Finale != "" {
			finales = append(finales, plan.Finale)
		}
		templates = append(templates, plan.Templates...)
	}

	outcomes, err := e.resolveTemplates(ctx, templates, count)
	if err != nil {
		return nil, err
	}

	episodes := model.NewEpisodeMap(count)
	reports := make([]model.TemplateReport, 0, len(outcomes))
	for _, o := range outcomes {
		report := model.TemplateReport{Format: o.template.Format, Known: len(o.template.Known)}
		if o.err != nil {
			metrics.TemplatesTotal.WithLabelValues("no_range").Inc()
			e.logger.Warnf("模板 %s 解析失败: %v", o.template.Format, o.err)
			report.Error = o.err.Error()
			reports = append(reports, report)
			continue
		}
		metrics.TemplatesTotal.WithLabelValues("resolved").Inc()
		report.Start, report.End = o.rng.Start, o.rng.End
		for ep := o.rng.Start; ep <= o.rng.End; ep++ {
			if episodes.Fill(ep, o.template.Materialize(ep)) {
				report.Filled++
			}
		}
		reports = append(reports, report)
	}

	for _, finale := range finales {
		if _, ok := episodes.Get(count); ok {
			break
		}
		res, err := e.boundary.Probe(ctx, finale)
		if err != nil {
			return nil, err
		}
		if res.Status == Exists {
			episodes.Fill(count, finale)
		}
	}

	result := &model.Result{
		Subtype:    model.SubtypeSeries,
		Episodes:   episodes,
		Unresolved: episodes.Missing(),
		Templates:  reports,
	}
	if len(result.Unresolved) > 0 {
		e.logger.Infof("%s 集数不全，共 %d 集，缺少 %v", target.Title, count, result.Unresolved)
	} else {
		e.logger.Infof("%s 全部 %d 集已解析", target.Title, count)
	}
	return result, nil
}

// resolveTemplates 并发解析各模板的范围，单个模板内部顺序探测
func (e *Engine) resolveTemplates(ctx context.Context, templates []URLTemplate, count int) ([]templateOutcome, error) {
	outcomes := make([]templateOutcome, len(templates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, t := range templates {
		i, t := i, t
		outcomes[i].template = t
		g.Go(func() error {
			rng, err := e.boundary.ResolveRange(gctx, t, count)
			if err != nil {
				if errors.Is(err, ErrNoRange) || errors.Is(err, ErrInvalidInput) {
					outcomes[i].err = err
					return nil
				}
				return err
			}
			outcomes[i].rng = rng
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
