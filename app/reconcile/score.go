package reconcile

import (
	"math"
	"sort"
	"strings"

	"film-resolver/app/config"
	"film-resolver/app/model"
)

// videoTiers 可识别的视频容器及其基础分
var videoTiers = map[string]float64{
	".mp4":  100,
	".mkv":  100,
	".avi":  50,
	".rmvb": 50,
}

// bytesPerKbpsMinute 每分钟每 kbps 对应的字节数（60 秒 * 1024 / 8）
const bytesPerKbpsMinute = 7680

// IsVideoExt 判断扩展名是否为可识别的视频容器
func IsVideoExt(ext string) bool {
	_, ok := videoTiers[strings.ToLower(ext)]
	return ok
}

// ScoreInput 评分输入，指针或 -1 表示信息缺失
type ScoreInput struct {
	Ext       *string       `json:"ext,omitempty"`
	Durations []int         `json:"durations,omitempty"` // 分钟
	Subtype   model.Subtype `json:"subtype"`
	Size      int64         `json:"size"`     // 字节，-1 未知
	Duration  int           `json:"duration"` // 秒，-1 未知
}

// Scorer 根据期望时长与目标大小为候选打分
type Scorer struct {
	MovieKbps        int
	SeriesKbps       int
	ToleranceSeconds int
}

// DefaultScorer 默认参数：电影 2500kbps，剧集 1500kbps，时长误差 60 秒
func DefaultScorer() Scorer {
	return Scorer{MovieKbps: 2500, SeriesKbps: 1500, ToleranceSeconds: 60}
}

// NewScorer 从配置创建评分器
func NewScorer(cfg config.ScoreConfig) Scorer {
	return Scorer{MovieKbps: cfg.MovieKbps, SeriesKbps: cfg.SeriesKbps, ToleranceSeconds: cfg.ToleranceSeconds}
}

// Score 计算候选得分，各项相加；缺失的信息不参与计算，不会导致淘汰
func (s Scorer) Score(in ScoreInput) model.Score {
	total := 0.0

	if in.Ext != nil {
		tier, ok := videoTiers[strings.ToLower(*in.Ext)]
		if !ok {
			return model.Disqualified()
		}
		total += tier
	}

	durations := positive(in.Durations)
	if len(durations) == 0 {
		return model.Scored(total)
	}

	if in.Duration >= 0 {
		term, ok := s.durationTerm(in.Subtype, durations, in.Duration)
		if !ok {
			return model.Disqualified()
		}
		total += term
	}

	if in.Size >= 0 {
		term, ok := s.sizeTerm(in.Subtype, durations, in.Size)
		if !ok {
			return model.Disqualified()
		}
		total += term
	}

	return model.Scored(total)
}

func (s Scorer) durationTerm(subtype model.Subtype, durations []int, seconds int) (float64, bool) {
	if subtype == model.SubtypeSeries {
		longest := durations[0]
		for _, d := range durations {
			if d > longest {
				longest = d
			}
		}
		ratio := float64(seconds) / float64(longest*60)
		if ratio > 1 {
			ratio = 1 / ratio
		}
		return 100 * ratio, true
	}

	sorted := append([]int(nil), durations...)
	sort.Ints(sorted)
	n := len(sorted)
	for i, d := range sorted {
		if abs(d*60-seconds) <= s.ToleranceSeconds {
			return 100 * float64(n-i) / float64(n), true
		}
	}
	return 0, false
}

// TargetSize 期望平均时长按码率换算的目标大小
func (s Scorer) TargetSize(subtype model.Subtype, durations []int) int64 {
	durations = positive(durations)
	if len(durations) == 0 {
		return 0
	}
	sum := 0
	for _, d := range durations {
		sum += d
	}
	kbps := s.MovieKbps
	if subtype == model.SubtypeSeries {
		kbps = s.SeriesKbps
	}
	mean := float64(sum) / float64(len(durations))
	return int64(mean * bytesPerKbpsMinute * float64(kbps))
}

func (s Scorer) sizeTerm(subtype model.Subtype, durations []int, size int64) (float64, bool) {
	target := float64(s.TargetSize(subtype, durations))
	if target <= 0 {
		return 0, true
	}
	fsize := float64(size)
	switch {
	case fsize <= target/2:
		return 0, false
	case fsize <= target:
		return 100 * fsize / target, true
	case fsize <= target*2:
		return 100 * target / fsize, true
	default:
		// 远超合理大小的文件多为诱饵或垃圾文件
		return 200 * math.Pow(target/fsize, 2), true
	}
}

func positive(values []int) []int {
	out := make([]int, 0, len(values))
	for _, v := range values {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
