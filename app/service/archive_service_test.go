package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"film-resolver/app/logger"
	"film-resolver/app/model"
	"film-resolver/app/reconcile"
)

func writeSized(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Repeat("x", size)), 0644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
}

func archiveFixture(t *testing.T) (string, *ArchiveService) {
	t.Helper()
	dir := t.TempDir()
	// 1 分钟、1kbps 的目标大小为 7680 字节
	writeSized(t, filepath.Join(dir, "42_good.mp4"), 7680)
	writeSized(t, filepath.Join(dir, "42_ok.mkv"), 10000)
	writeSized(t, filepath.Join(dir, "42_small.avi"), 3000)
	writeSized(t, filepath.Join(dir, "42_broken.mp4"), 7680)
	writeSized(t, filepath.Join(dir, "42_notes.txt"), 10)
	writeSized(t, filepath.Join(dir, "7_other.mp4"), 7680)

	durations := map[string]float64{
		"42_good.mp4":  60,
		"42_ok.mkv":    65,
		"42_small.avi": 60,
		"7_other.mp4":  60,
	}
	inspect := func(_ context.Context, path string) (float64, error) {
		d, ok := durations[filepath.Base(path)]
		if !ok {
			return 0, errors.New("无法读取时长")
		}
		return d, nil
	}
	scorer := reconcile.Scorer{MovieKbps: 1, SeriesKbps: 1, ToleranceSeconds: 60}
	return dir, NewArchiveServiceWith(scorer, inspect, logger.NewNop())
}

func TestArchiveService_Evaluate(t *testing.T) {
	dir, s := archiveFixture(t)
	target := model.MediaTarget{Title: "测试电影", Subtype: model.SubtypeMovie, Durations: []int{1}}

	report, err := s.Evaluate(context.Background(), dir, target, "42_")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(report.Files) != 5 {
		t.Fatalf("评分文件 %d 个，期望 5", len(report.Files))
	}
	if report.Best == nil || report.Best.FileName != "42_good.mp4" {
		t.Fatalf("best=%+v", report.Best)
	}
	if report.Best.Score.Value != 300 {
		t.Fatalf("得分 %s，期望 300", report.Best.Score)
	}
	if report.Files[1].FileName != "42_ok.mkv" || !report.Files[1].Score.Qualified {
		t.Fatalf("第二名 %+v", report.Files[1])
	}
	for _, f := range report.Files[2:] {
		if f.Score.Qualified {
			t.Fatalf("%s 应被淘汰", f.FileName)
		}
	}
}

func TestArchiveService_ArchiveCopiesBest(t *testing.T) {
	dir, s := archiveFixture(t)
	dest := filepath.Join(t.TempDir(), "Movies")
	target := model.MediaTarget{Title: "测试: 电影", Subtype: model.SubtypeMovie, Durations: []int{1}}

	report, err := s.Archive(context.Background(), dir, target, ArchiveOptions{Prefix: "42_", Dest: dest, Cleanup: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := filepath.Join(dest, "测试$ 电影.mp4")
	if report.Dest != want {
		t.Fatalf("dest=%q，期望 %q", report.Dest, want)
	}
	if info, err := os.Stat(want); err != nil || info.Size() != 7680 {
		t.Fatalf("归档文件不正确：%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "42_good.mp4")); !os.IsNotExist(err) {
		t.Fatalf("清理后源文件仍存在")
	}
	if _, err := os.Stat(filepath.Join(dir, "7_other.mp4")); err != nil {
		t.Fatalf("不相关的文件被删除：%v", err)
	}
}

func TestArchiveService_ArchiveEpisode(t *testing.T) {
	dir, s := archiveFixture(t)
	dest := t.TempDir()
	target := model.MediaTarget{Title: "测试剧集", Subtype: model.SubtypeSeries, Durations: []int{1}, EpisodeCount: 12}

	report, err := s.Archive(context.Background(), dir, target, ArchiveOptions{Prefix: "42_", Dest: dest, Episode: 3})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := filepath.Join(dest, "测试剧集", "E03.mp4")
	if report.Dest != want {
		t.Fatalf("dest=%q，期望 %q", report.Dest, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("归档文件不存在：%v", err)
	}
}

func TestArchiveService_NoQualified(t *testing.T) {
	dir, s := archiveFixture(t)
	target := model.MediaTarget{Title: "测试电影", Subtype: model.SubtypeMovie, Durations: []int{100}}

	report, err := s.Archive(context.Background(), dir, target, ArchiveOptions{Prefix: "42_", Dest: t.TempDir()})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if report.Best != nil || report.Dest != "" {
		t.Fatalf("不应选出文件：%+v", report.Best)
	}
}

func TestArchiveService_MissingDir(t *testing.T) {
	_, s := archiveFixture(t)
	if _, err := s.Evaluate(context.Background(), filepath.Join(t.TempDir(), "none"), model.MediaTarget{}, ""); err == nil {
		t.Fatalf("目录不存在时应返回错误")
	}
}
