package reconcile

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"film-resolver/app/model"
	"film-resolver/app/utils/linkhelper"
	"film-resolver/app/utils/strdiff"
)

// URLTemplate 带一个或两个整数占位符的地址模板
type URLTemplate struct {
	Format string         // printf 风格，例如 http://host/S01E%02d.mp4
	Widths []int          // 每个占位符的补零宽度，0 表示不补零
	Known  map[int]string // 已观察到的 集数 -> 地址
}

// Materialize 生成第 episode 集的地址，所有占位符都填入集数
func (t URLTemplate) Materialize(episode int) string {
	args := make([]any, len(t.Widths))
	for i := range args {
		args[i] = episode
	}
	return fmt.Sprintf(t.Format, args...)
}

// KnownRange 已知集数的最小与最大值
func (t URLTemplate) KnownRange() (lo, hi int) {
	first := true
	for ep := range t.Known {
		if first || ep < lo {
			lo = ep
		}
		if first || ep > hi {
			hi = ep
		}
		first = false
	}
	return lo, hi
}

// GroupPlan 单个分组的合成结果
type GroupPlan struct {
	Templates []URLTemplate
	Finale    string // 单成员分组中疑似最后一集的地址，需探测确认
	Rejected  string // 分组被丢弃的原因
}

// GroupByShape 按 (scheme://host, 路径长度) 分组，组按路径长度、主机排序
func GroupByShape(links []model.ClassifiedLink) ([]model.PathShape, map[model.PathShape][]model.ClassifiedLink) {
	groups := make(map[model.PathShape][]model.ClassifiedLink)
	seen := make(map[string]struct{})
	for _, l := range links {
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		head, p := linkhelper.SplitHead(l.URL)
		if head == "" || p == "" {
			continue
		}
		key := model.PathShape{Head: head, Length: len(p)}
		groups[key] = append(groups[key], l)
	}

	keys := make([]model.PathShape, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Length != keys[j].Length {
			return keys[i].Length < keys[j].Length
		}
		return keys[i].Head < keys[j].Head
	})
	return keys, groups
}

// Synthesize 从同形分组推导地址模板。
//
// 分组中的链接必须共享 scheme://host 与路径长度。被拒绝的分组不产生模板，原因写入 Rejected。
func Synthesize(group []model.ClassifiedLink, episodeCount int) GroupPlan {
	if len(group) == 0 {
		return GroupPlan{Rejected: "空分组"}
	}
	if len(group) == 1 {
		_, p := linkhelper.SplitHead(group[0].URL)
		stem := strings.TrimSuffix(p, path.Ext(p))
		if strings.HasSuffix(stem, strconv.Itoa(episodeCount)+"end") {
			return GroupPlan{Finale: group[0].URL}
		}
		return GroupPlan{Rejected: "单个链接且不是完结集"}
	}

	head, _ := linkhelper.SplitHead(group[0].URL)
	paths := make([]string, len(group))
	for i, l := range group {
		_, paths[i] = linkhelper.SplitHead(l.URL)
	}

	d, err := strdiff.Diff(paths)
	if err != nil {
		return GroupPlan{Rejected: err.Error()}
	}
	absorbBorderDigits(&d)
	collapseEmptyCommons(&d)

	if reason := validateFields(d, episodeCount); reason != "" {
		return GroupPlan{Rejected: reason}
	}

	// 字面量中的 % 需要转义，主机拼在第一个公共段前
	escaped := make([]string, len(d.Commons))
	for i, c := range d.Commons {
		escaped[i] = escapeVerb(c)
	}
	escaped[0] = escapeVerb(head) + escaped[0]

	if d.Fields() == 2 && !repeatsEpisode(d) {
		return GroupPlan{Templates: partitionByFirstField(d, group, escaped)}
	}

	// 只有一个字段，或两个字段在每个链接中都相同（集数出现两次）
	episodes := make([]string, len(group))
	for i, vars := range d.Variables {
		episodes[i] = vars[len(vars)-1]
	}
	width := inferWidth(episodes)
	verb := placeholder(width)
	widths := make([]int, d.Fields())
	for i := range widths {
		widths[i] = width
	}
	return GroupPlan{Templates: []URLTemplate{{
		Format: strings.Join(escaped, verb),
		Widths: widths,
		Known:  knownEpisodes(group, episodes),
	}}}
}

// absorbBorderDigits 把与差异段相邻的公共段数字并入差异段，避免数字字段被截断
func absorbBorderDigits(d *strdiff.Result) {
	fields := d.Fields()
	// 左侧公共段末尾的数字
	for j := 0; j < fields; j++ {
		c := d.Commons[j]
		cut := len(c) - len(trailingDigits(c))
		if cut == len(c) {
			continue
		}
		moved := c[cut:]
		d.Commons[j] = c[:cut]
		for _, vars := range d.Variables {
			vars[j] = moved + vars[j]
		}
	}
	// 右侧公共段开头的数字
	for j := 0; j < fields; j++ {
		c := d.Commons[j+1]
		moved := leadingDigits(c)
		if moved == "" {
			continue
		}
		d.Commons[j+1] = c[len(moved):]
		for _, vars := range d.Variables {
			vars[j] = vars[j] + moved
		}
	}
}

// collapseEmptyCommons 合并被空的内部公共段隔开的差异段
func collapseEmptyCommons(d *strdiff.Result) {
	for {
		idx := -1
		for i := 1; i < len(d.Commons)-1; i++ {
			if d.Commons[i] == "" {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		// 公共段 idx 位于差异段 idx-1 与 idx 之间
		for k, vars := range d.Variables {
			merged := vars[idx-1] + vars[idx]
			next := make([]string, 0, len(vars)-1)
			next = append(next, vars[:idx-1]...)
			next = append(next, merged)
			next = append(next, vars[idx+1:]...)
			d.Variables[k] = next
		}
		d.Commons = append(d.Commons[:idx:idx], d.Commons[idx+1:]...)
	}
}

func validateFields(d strdiff.Result, episodeCount int) string {
	fields := d.Fields()
	if fields < 1 || fields > 2 {
		return fmt.Sprintf("差异字段数为 %d", fields)
	}
	for _, vars := range d.Variables {
		if len(vars) != fields {
			return "差异字段数不一致"
		}
		last := vars[len(vars)-1]
		if !isDigits(last) {
			return fmt.Sprintf("集数字段不是数字: %q", last)
		}
		n, err := strconv.Atoi(last)
		if err != nil || n < 1 || n > episodeCount {
			return fmt.Sprintf("集数超出范围: %q", last)
		}
		if fields == 2 && vars[0] == "" {
			return "分类字段为空"
		}
	}
	return ""
}

// repeatsEpisode 两个字段在每个链接中都相同
func repeatsEpisode(d strdiff.Result) bool {
	for _, vars := range d.Variables {
		if vars[0] != vars[1] {
			return false
		}
	}
	return true
}

// partitionByFirstField 按第一个字段的取值拆分模板，第一个字段固定为字面值
func partitionByFirstField(d strdiff.Result, group []model.ClassifiedLink, escaped []string) []URLTemplate {
	order := make([]string, 0)
	members := make(map[string][]int)
	for i, vars := range d.Variables {
		if _, ok := members[vars[0]]; !ok {
			order = append(order, vars[0])
		}
		members[vars[0]] = append(members[vars[0]], i)
	}
	sort.Strings(order)

	templates := make([]URLTemplate, 0, len(order))
	for _, first := range order {
		idx := members[first]
		episodes := make([]string, len(idx))
		links := make([]model.ClassifiedLink, len(idx))
		for k, i := range idx {
			episodes[k] = d.Variables[i][1]
			links[k] = group[i]
		}
		width := inferWidth(episodes)
		format := escaped[0] + escapeVerb(first) + escaped[1] + placeholder(width) + escaped[2]
		templates = append(templates, URLTemplate{
			Format: format,
			Widths: []int{width},
			Known:  knownEpisodes(links, episodes),
		})
	}
	return templates
}

// inferWidth 所有集数字段长度一致时返回该长度，否则 0
func inferWidth(episodes []string) int {
	width := -1
	for _, e := range episodes {
		if width < 0 {
			width = len(e)
			continue
		}
		if len(e) != width {
			return 0
		}
	}
	if width < 0 {
		return 0
	}
	return width
}

func escapeVerb(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

func placeholder(width int) string {
	if width <= 0 {
		return "%d"
	}
	return "%0" + strconv.Itoa(width) + "d"
}

func knownEpisodes(links []model.ClassifiedLink, episodes []string) map[int]string {
	known := make(map[int]string, len(links))
	for i, e := range episodes {
		n, err := strconv.Atoi(e)
		if err != nil {
			continue
		}
		if _, ok := known[n]; !ok {
			known[n] = links[i].URL
		}
	}
	return known
}

func isDigits(s string) bool {
	return s != "" && leadingDigits(s) == s
}

func leadingDigits(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

func trailingDigits(s string) string {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	return s[i:]
}
