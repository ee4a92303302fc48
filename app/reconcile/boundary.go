package reconcile

import (
	"context"
	"fmt"

	"film-resolver/app/logger"
	"film-resolver/app/metrics"
)

// ProbeStatus 远程资源存在性
type ProbeStatus int

const (
	Indeterminate ProbeStatus = iota
	Exists
	NotExists
)

func (s ProbeStatus) String() string {
	switch s {
	case Exists:
		return "exists"
	case NotExists:
		return "not_exists"
	default:
		return "indeterminate"
	}
}

// ProbeResult 探测结果，Size 为 -1 表示未知
type ProbeResult struct {
	Status ProbeStatus
	Size   int64
}

// Prober 远程存在性探测接口，网络访问只经过这里
type Prober interface {
	Probe(ctx context.Context, url string) ProbeResult
}

// ProberFunc 函数适配器
type ProberFunc func(ctx context.Context, url string) ProbeResult

func (f ProberFunc) Probe(ctx context.Context, url string) ProbeResult {
	return f(ctx, url)
}

// Range 解析出的闭区间集数范围
type Range struct {
	Start int
	End   int
}

// BoundaryProber 通过探测与二分查找确定模板覆盖的集数范围
type BoundaryProber struct {
	prober Prober
	pacer  Pacer
	logger *logger.Logger
}

// NewBoundaryProber 创建边界探测器，pacer 为空时不限速
func NewBoundaryProber(prober Prober, pacer Pacer, log *logger.Logger) *BoundaryProber {
	if pacer == nil {
		pacer = NopPacer{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &BoundaryProber{prober: prober, pacer: pacer, logger: log}
}

// Probe 限速后探测单个地址，ctx 已取消时不再发出请求
func (b *BoundaryProber) Probe(ctx context.Context, url string) (ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return ProbeResult{}, err
	}
	if err := b.pacer.Wait(ctx, url); err != nil {
		return ProbeResult{}, err
	}
	res := b.prober.Probe(ctx, url)
	metrics.ProbesTotal.WithLabelValues(res.Status.String()).Inc()
	b.logger.Debugf("探测 %s: %s", url, res.Status)
	return res, nil
}

// rangeSearch 单个模板的一次范围解析，记录是否得到过确定的探测结果
type rangeSearch struct {
	b           *BoundaryProber
	t           URLTemplate
	determinate bool
}

func (s *rangeSearch) exists(ctx context.Context, episode int) (ProbeStatus, error) {
	res, err := s.b.Probe(ctx, s.t.Materialize(episode))
	if err != nil {
		return Indeterminate, err
	}
	if res.Status != Indeterminate {
		s.determinate = true
	}
	return res.Status, nil
}

// ResolveRange 确定模板实际存在的集数范围。
//
// 假设资源从任意已知集数向两端连续存在：先探测第 1 集与最后一集，不存在时在已知集数与端点之间二分查找边界。
// 查找中遇到不确定结果立即停止，保留已确认存在的最远位置。没有任何确定的探测结果、范围为空，
// 或已知的端点集数被确认不存在时返回 ErrNoRange。
func (b *BoundaryProber) ResolveRange(ctx context.Context, t URLTemplate, episodeCount int) (Range, error) {
	if len(t.Known) == 0 || episodeCount < 1 || len(t.Widths) == 0 {
		return Range{}, fmt.Errorf("%w: 模板缺少已知集数或占位符", ErrInvalidInput)
	}
	lo, hi := t.KnownRange()
	if lo < 1 || hi > episodeCount {
		return Range{}, fmt.Errorf("%w: 已知集数 [%d, %d] 超出 [1, %d]", ErrInvalidInput, lo, hi, episodeCount)
	}

	s := &rangeSearch{b: b, t: t}

	start := 1
	status, err := s.exists(ctx, 1)
	if err != nil {
		return Range{}, err
	}
	if status == NotExists && lo == 1 {
		return Range{}, fmt.Errorf("%w: 已知的第 1 集不存在", ErrNoRange)
	}
	if status != Exists {
		start, err = s.searchBoundary(ctx, 2, lo, true)
		if err != nil {
			return Range{}, err
		}
	}

	end := episodeCount
	status, err = s.exists(ctx, episodeCount)
	if err != nil {
		return Range{}, err
	}
	if status == NotExists && hi == episodeCount {
		return Range{}, fmt.Errorf("%w: 已知的第 %d 集不存在", ErrNoRange, episodeCount)
	}
	if status != Exists {
		end, err = s.searchBoundary(ctx, hi, episodeCount-1, false)
		if err != nil {
			return Range{}, err
		}
	}

	if !s.determinate {
		return Range{}, fmt.Errorf("%w: 所有探测结果均不确定", ErrNoRange)
	}
	if start > end {
		return Range{}, fmt.Errorf("%w: 起始 %d 大于结束 %d", ErrNoRange, start, end)
	}
	return Range{Start: start, End: end}, nil
}

// searchBoundary 在 [left, right] 内二分查找存在与不存在的分界。
//
// searchingForExistingBoundary 为 true 时查找最小的存在集数（right 已知存在），
// 为 false 时查找最大的存在集数（left 已知存在）。
func (s *rangeSearch) searchBoundary(ctx context.Context, left, right int, searchingForExistingBoundary bool) (int, error) {
	best := left
	if searchingForExistingBoundary {
		best = right
	}
	for left <= right {
		mid := (left + right) / 2
		status, err := s.exists(ctx, mid)
		if err != nil {
			return 0, err
		}
		if status == Indeterminate {
			s.b.logger.Debugf("探测 %s 结果不确定，停止查找", s.t.Materialize(mid))
			break
		}
		exists := status == Exists
		switch {
		case searchingForExistingBoundary && exists:
			best = mid
			right = mid - 1
		case searchingForExistingBoundary:
			left = mid + 1
		case exists:
			best = mid
			left = mid + 1
		default:
			right = mid - 1
		}
	}
	return best, nil
}
