package reconcile

import (
	"reflect"
	"testing"

	"film-resolver/app/model"
	"film-resolver/app/utils/strdiff"
)

func httpLinks(urls ...string) []model.ClassifiedLink {
	links := make([]model.ClassifiedLink, len(urls))
	for i, u := range urls {
		links[i] = model.ClassifiedLink{Protocol: model.ProtocolHTTP, URL: u, Raw: u}
	}
	return links
}

func singleTemplate(t *testing.T, plan GroupPlan) URLTemplate {
	t.Helper()
	if plan.Rejected != "" {
		t.Fatalf("分组被拒绝：%s", plan.Rejected)
	}
	if len(plan.Templates) != 1 {
		t.Fatalf("期望 1 个模板，实际 %d 个", len(plan.Templates))
	}
	return plan.Templates[0]
}

func TestSynthesize_BorderAbsorptionKeepsLeadingDigit(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/v/E01.mp4", "http://h.test/v/E02.mp4"), 12)
	tmpl := singleTemplate(t, plan)

	if tmpl.Format != "http://h.test/v/E%02d.mp4" {
		t.Fatalf("format=%q", tmpl.Format)
	}
	if !reflect.DeepEqual(tmpl.Widths, []int{2}) {
		t.Fatalf("widths=%v", tmpl.Widths)
	}
	if tmpl.Known[1] != "http://h.test/v/E01.mp4" || tmpl.Known[2] != "http://h.test/v/E02.mp4" {
		t.Fatalf("known=%v", tmpl.Known)
	}
}

func TestSynthesize_NumericFieldNotTruncated(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/v/E01foo.mp4", "http://h.test/v/E12foo.mp4"), 12)
	tmpl := singleTemplate(t, plan)

	if tmpl.Format != "http://h.test/v/E%02dfoo.mp4" {
		t.Fatalf("format=%q", tmpl.Format)
	}
	if _, ok := tmpl.Known[12]; !ok {
		t.Fatalf("known=%v，期望包含第 12 集", tmpl.Known)
	}
	if got := tmpl.Materialize(3); got != "http://h.test/v/E03foo.mp4" {
		t.Fatalf("materialize=%q", got)
	}
}

func TestSynthesize_TrailingDigitOnRight(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/v/E10.mp4", "http://h.test/v/E20.mp4"), 20)
	tmpl := singleTemplate(t, plan)

	if tmpl.Format != "http://h.test/v/E%02d.mp4" {
		t.Fatalf("format=%q", tmpl.Format)
	}
	if _, ok := tmpl.Known[10]; !ok {
		t.Fatalf("known=%v", tmpl.Known)
	}
}

func TestSynthesize_PartitionByFirstField(t *testing.T) {
	plan := Synthesize(httpLinks(
		"http://h.test/hd/E01.mp4",
		"http://h.test/hd/E02.mp4",
		"http://h.test/sd/E01.mp4",
		"http://h.test/sd/E03.mp4",
	), 12)
	if plan.Rejected != "" {
		t.Fatalf("分组被拒绝：%s", plan.Rejected)
	}
	if len(plan.Templates) != 2 {
		t.Fatalf("期望 2 个模板，实际 %d 个", len(plan.Templates))
	}

	hd, sd := plan.Templates[0], plan.Templates[1]
	if hd.Format != "http://h.test/hd/E%02d.mp4" || sd.Format != "http://h.test/sd/E%02d.mp4" {
		t.Fatalf("formats=%q, %q", hd.Format, sd.Format)
	}
	if len(hd.Known) != 2 || hd.Known[2] == "" {
		t.Fatalf("hd known=%v", hd.Known)
	}
	if len(sd.Known) != 2 || sd.Known[3] == "" {
		t.Fatalf("sd known=%v", sd.Known)
	}
}

func TestSynthesize_SeasonPartition(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/s1e02.mp4", "http://h.test/s2e12.mp4"), 12)
	if len(plan.Templates) != 2 {
		t.Fatalf("期望 2 个模板，实际 %d 个（%s）", len(plan.Templates), plan.Rejected)
	}
	if plan.Templates[0].Format != "http://h.test/s1e%02d.mp4" {
		t.Fatalf("format=%q", plan.Templates[0].Format)
	}
}

func TestSynthesize_RepeatedEpisodeUsesTwoPlaceholders(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/05/E05.mp4", "http://h.test/07/E07.mp4"), 12)
	tmpl := singleTemplate(t, plan)

	if tmpl.Format != "http://h.test/%02d/E%02d.mp4" {
		t.Fatalf("format=%q", tmpl.Format)
	}
	if !reflect.DeepEqual(tmpl.Widths, []int{2, 2}) {
		t.Fatalf("widths=%v", tmpl.Widths)
	}
	if got := tmpl.Materialize(3); got != "http://h.test/03/E03.mp4" {
		t.Fatalf("materialize=%q", got)
	}
}

func TestSynthesize_CollapsesEmptyCommon(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/v/102.mp4", "http://h.test/v/203.mp4"), 300)
	tmpl := singleTemplate(t, plan)

	if tmpl.Format != "http://h.test/v/%03d.mp4" {
		t.Fatalf("format=%q", tmpl.Format)
	}
	if len(tmpl.Widths) != 1 {
		t.Fatalf("widths=%v", tmpl.Widths)
	}

	if plan := Synthesize(httpLinks("http://h.test/v/102.mp4", "http://h.test/v/203.mp4"), 12); plan.Rejected == "" {
		t.Fatalf("集数超出范围时期望拒绝")
	}
}

func TestSynthesize_EscapesPercent(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/100%/E01.mp4", "http://h.test/100%/E02.mp4"), 12)
	tmpl := singleTemplate(t, plan)

	if got := tmpl.Materialize(7); got != "http://h.test/100%/E07.mp4" {
		t.Fatalf("materialize=%q", got)
	}
}

func TestSynthesize_Rejections(t *testing.T) {
	cases := map[string][]model.ClassifiedLink{
		"non-numeric":  httpLinks("http://h.test/v/Ea.mp4", "http://h.test/v/Eb.mp4"),
		"out-of-range": httpLinks("http://h.test/v/E13.mp4", "http://h.test/v/E14.mp4"),
		"three-fields": httpLinks("http://h.test/a1-b1-c1.mp4", "http://h.test/x2-y2-z2.mp4"),
		"identical":    httpLinks("http://h.test/v/E01.mp4", "http://h.test/v/E01.mp4"),
		"single":       httpLinks("http://h.test/v/E05.mp4"),
		"empty":        nil,
	}
	for name, group := range cases {
		plan := Synthesize(group, 12)
		if plan.Rejected == "" || len(plan.Templates) != 0 || plan.Finale != "" {
			t.Fatalf("%s: 期望拒绝，实际 %+v", name, plan)
		}
	}
}

func TestSynthesize_Finale(t *testing.T) {
	plan := Synthesize(httpLinks("http://h.test/v/12end.mp4"), 12)
	if plan.Finale != "http://h.test/v/12end.mp4" {
		t.Fatalf("plan=%+v", plan)
	}
}

func TestInferWidth(t *testing.T) {
	cases := []struct {
		episodes []string
		want     int
	}{
		{[]string{"01", "02", "11"}, 2},
		{[]string{"9", "10"}, 0},
		{[]string{"001"}, 3},
		{nil, 0},
	}
	for _, tc := range cases {
		if got := inferWidth(tc.episodes); got != tc.want {
			t.Fatalf("%v: width=%d，期望 %d", tc.episodes, got, tc.want)
		}
	}
	if placeholder(0) != "%d" || placeholder(2) != "%02d" {
		t.Fatalf("placeholder 不符合预期")
	}
}

func TestAbsorbAndCollapse_KeepReconstruction(t *testing.T) {
	strs := []string{"abc02lkj", "abd04kjj"}
	d, err := strdiff.Diff(strs)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	absorbBorderDigits(&d)
	collapseEmptyCommons(&d)
	for i, s := range strs {
		if got := d.Join(i); got != s {
			t.Fatalf("还原得到 %q，期望 %q", got, s)
		}
		if len(d.Variables[i]) != len(d.Commons)-1 {
			t.Fatalf("段数关系被破坏：%q / %q", d.Commons, d.Variables[i])
		}
	}
	if !reflect.DeepEqual(d.Commons, []string{"ab", "j"}) {
		t.Fatalf("commons=%q", d.Commons)
	}
}

func TestGroupByShape(t *testing.T) {
	links := httpLinks(
		"http://b.test/v/E01.mp4",
		"http://a.test/v/E01.mp4",
		"http://a.test/v/E02.mp4",
		"http://a.test/v/E02.mp4",
		"http://a.test/v/longer/E03.mp4",
		"http://a.test",
	)
	keys, groups := GroupByShape(links)
	if len(keys) != 3 {
		t.Fatalf("keys=%v", keys)
	}
	if keys[0].Head != "http://a.test" || keys[1].Head != "http://b.test" {
		t.Fatalf("排序不符合预期：%v", keys)
	}
	if got := len(groups[keys[0]]); got != 2 {
		t.Fatalf("a.test 分组成员 %d 个，期望 2（去重后）", got)
	}
}
