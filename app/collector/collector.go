package collector

import (
	"context"
	"sort"

	"film-resolver/app/model"
)

// ResourceCollector 资源收集能力。
//
// 约束：
// - Collect 不做重试、不做限速，失败直接返回错误
// - 返回的链接不需要去重或分类，由调用方统一处理
type ResourceCollector interface {
	Name() string
	// Priority 数值越小越先执行，默认 10
	Priority() int
	Collect(ctx context.Context, target model.MediaTarget) ([]model.RawCandidate, error)
}

// DefaultPriority 未指定优先级时使用
const DefaultPriority = 10

// ByPriority 按优先级排序，优先级相同时保持原有顺序
func ByPriority(collectors []ResourceCollector) []ResourceCollector {
	sorted := append([]ResourceCollector(nil), collectors...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})
	return sorted
}

// StaticCollector 返回预先给定的链接，用于任务文件中直接列出的候选
type StaticCollector struct {
	name       string
	priority   int
	candidates []model.RawCandidate
}

func NewStaticCollector(name string, priority int, candidates []model.RawCandidate) *StaticCollector {
	return &StaticCollector{name: name, priority: priority, candidates: candidates}
}

func (c *StaticCollector) Name() string { return c.name }

func (c *StaticCollector) Priority() int { return c.priority }

func (c *StaticCollector) Collect(ctx context.Context, _ model.MediaTarget) ([]model.RawCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]model.RawCandidate(nil), c.candidates...), nil
}
