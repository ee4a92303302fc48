package model

import "fmt"

// Score 质量评分结果，Qualified 为 false 表示候选被淘汰
type Score struct {
	Value     float64 `json:"value"`
	Qualified bool    `json:"qualified"`
}

// Disqualified 淘汰结果
func Disqualified() Score {
	return Score{}
}

// Scored 有效分数
func Scored(v float64) Score {
	return Score{Value: v, Qualified: true}
}

// Better 判断 s 是否优于 other，被淘汰的结果永远不会更优
func (s Score) Better(other Score) bool {
	if !s.Qualified {
		return false
	}
	if !other.Qualified {
		return true
	}
	return s.Value > other.Value
}

func (s Score) String() string {
	if !s.Qualified {
		return "disqualified"
	}
	return fmt.Sprintf("%.2f", s.Value)
}
