package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"film-resolver/app/model"
	"film-resolver/app/service"

	"github.com/dustin/go-humanize"
)

func formatSize(size int64) string {
	if size < 0 {
		return "未知"
	}
	return humanize.IBytes(uint64(size))
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, seconds/60%60, seconds%60)
}

func formatInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}

// renderResult 电影输出候选排名，剧集输出每集地址与模板诊断
func renderResult(title string, result *model.Result) string {
	var b strings.Builder
	if result.Subtype == model.SubtypeMovie {
		rows := make([][]string, 0, len(result.Ranked))
		for i, c := range result.Ranked {
			rows = append(rows, []string{strconv.Itoa(i + 1), c.Protocol.Title(), c.FileName, formatSize(c.Size), c.Score.String(), c.Source})
		}
		b.WriteString(renderTable([]string{"#", "协议", "文件名", "大小", "得分", "地址"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
		b.WriteString("\n")
		if result.Best == nil {
			fmt.Fprintf(&b, "%s：没有合格的资源\n", title)
		} else {
			fmt.Fprintf(&b, "%s：选中 %s\n", title, result.Best.Source)
		}
		return b.String()
	}

	rows := make([][]string, 0, len(result.Episodes))
	for i := range result.Episodes {
		u, ok := result.Episodes.Get(i + 1)
		if !ok {
			u = "（未解析）"
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), u})
	}
	b.WriteString(renderTable([]string{"集", "地址"}, rows, []columnAlignment{alignRight, alignLeft}))
	b.WriteString("\n")

	if len(result.Templates) > 0 {
		trows := make([][]string, 0, len(result.Templates))
		for _, t := range result.Templates {
			span := "-"
			if t.Error == "" {
				span = fmt.Sprintf("%d-%d", t.Start, t.End)
			}
			trows = append(trows, []string{t.Format, strconv.Itoa(t.Known), span, strconv.Itoa(t.Filled), t.Error})
		}
		b.WriteString(renderTable([]string{"模板", "已知", "范围", "填充", "错误"}, trows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignLeft}))
		b.WriteString("\n")
	}

	if len(result.Unresolved) == 0 {
		fmt.Fprintf(&b, "%s：全部 %d 集已解析\n", title, len(result.Episodes))
	} else {
		fmt.Fprintf(&b, "%s：缺少 %s\n", title, formatInts(result.Unresolved))
	}
	return b.String()
}

// renderArchive 输出本地文件评分
func renderArchive(report *service.ArchiveReport) string {
	rows := make([][]string, 0, len(report.Files))
	for _, f := range report.Files {
		rows = append(rows, []string{f.FileName, formatSize(f.Size), formatDuration(f.Duration), f.Score.String()})
	}
	var b strings.Builder
	b.WriteString(renderTable([]string{"文件", "大小", "时长", "得分"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight}))
	b.WriteString("\n")
	switch {
	case report.Best == nil:
		b.WriteString("没有合格的文件\n")
	case report.Dest != "":
		fmt.Fprintf(&b, "已归档到 %s\n", report.Dest)
	default:
		fmt.Fprintf(&b, "最佳文件 %s\n", report.Best.Source)
	}
	return b.String()
}
