package model

import (
	"fmt"
	"math"
)

// Subtype 影视类型
type Subtype string

const (
	SubtypeMovie  Subtype = "movie"
	SubtypeSeries Subtype = "series"
)

// MediaTarget 待匹配的影视条目
type MediaTarget struct {
	Title        string  `json:"title"`
	Subtype      Subtype `json:"subtype"`
	Durations    []int   `json:"durations,omitempty"` // 分钟
	EpisodeCount int     `json:"episode_count,omitempty"`
	Season       int     `json:"season,omitempty"`
}

// Validate 检查条目描述是否可用于匹配
func (t MediaTarget) Validate() error {
	switch t.Subtype {
	case SubtypeMovie:
	case SubtypeSeries:
		if t.EpisodeCount < 1 {
			return fmt.Errorf("剧集总集数必须大于 0: %d", t.EpisodeCount)
		}
	default:
		return fmt.Errorf("未知的影视类型: %q", t.Subtype)
	}
	for _, d := range t.Durations {
		if d <= 0 {
			return fmt.Errorf("时长必须大于 0: %d", d)
		}
	}
	return nil
}

// EpisodeFileName 返回第 episode 集的文件名，集数按总集数位数补零，例如 E01.mp4
func (t MediaTarget) EpisodeFileName(episode int, ext string) string {
	width := int(math.Ceil(math.Log10(float64(t.EpisodeCount + 1))))
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("E%0*d%s", width, episode, ext)
}
