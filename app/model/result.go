package model

// EpisodeMap 按集数存放下载地址，下标 0 对应第 1 集，空字符串表示未解析
type EpisodeMap []string

// NewEpisodeMap 创建指定集数的空映射
func NewEpisodeMap(count int) EpisodeMap {
	return make(EpisodeMap, count)
}

// Get 返回第 episode 集的地址
func (m EpisodeMap) Get(episode int) (string, bool) {
	if episode < 1 || episode > len(m) || m[episode-1] == "" {
		return "", false
	}
	return m[episode-1], true
}

// Fill 仅在该集尚未解析时写入，返回是否写入
func (m EpisodeMap) Fill(episode int, url string) bool {
	if episode < 1 || episode > len(m) || m[episode-1] != "" || url == "" {
		return false
	}
	m[episode-1] = url
	return true
}

// Missing 返回仍未解析的集数（从 1 开始）
func (m EpisodeMap) Missing() []int {
	missing := make([]int, 0)
	for i, u := range m {
		if u == "" {
			missing = append(missing, i+1)
		}
	}
	return missing
}

// Complete 是否全部集数都已解析
func (m EpisodeMap) Complete() bool {
	return len(m.Missing()) == 0
}

// ScoredCandidate 评分后的候选资源（远程链接或本地文件）
type ScoredCandidate struct {
	Source   string   `json:"source"`
	Remark   string   `json:"remark,omitempty"`
	Protocol Protocol `json:"protocol,omitempty"`
	FileName string   `json:"file_name,omitempty"`
	Ext      string   `json:"ext,omitempty"`
	Size     int64    `json:"size"`               // 字节，-1 表示未知
	Duration int      `json:"duration,omitempty"` // 秒
	Score    Score    `json:"score"`
}

// TemplateReport 单个模板的解析诊断
type TemplateReport struct {
	Format string `json:"format"`
	Known  int    `json:"known"`
	Start  int    `json:"start,omitempty"`
	End    int    `json:"end,omitempty"`
	Filled int    `json:"filled"`
	Error  string `json:"error,omitempty"`
}

// Result 一次匹配的结果
type Result struct {
	Subtype    Subtype           `json:"subtype"`
	Best       *ScoredCandidate  `json:"best,omitempty"`
	Ranked     []ScoredCandidate `json:"ranked,omitempty"`
	Episodes   EpisodeMap        `json:"episodes,omitempty"`
	Unresolved []int             `json:"unresolved,omitempty"`
	Templates  []TemplateReport  `json:"templates,omitempty"`
}

// Satisfied 电影找到合格资源，或剧集全部集数已解析
func (r *Result) Satisfied() bool {
	if r == nil {
		return false
	}
	if r.Subtype == SubtypeMovie {
		return r.Best != nil
	}
	return len(r.Episodes) > 0 && len(r.Unresolved) == 0
}
