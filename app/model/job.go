package model

// Job 一次匹配任务，命令行、收件箱与 HTTP 接口共用
type Job struct {
	ID         string         `json:"id,omitempty"`
	Target     MediaTarget    `json:"target"`
	Candidates []RawCandidate `json:"candidates,omitempty"`
	Pages      []string       `json:"pages,omitempty"` // 需要抓取链接的页面
}

// JobOutcome 任务处理结果，写入收件箱的输出目录
type JobOutcome struct {
	JobID  string  `json:"job_id"`
	Title  string  `json:"title"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}
