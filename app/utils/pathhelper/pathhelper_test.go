package pathhelper

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` 2019_Title: Part 1/2? `); got != "2019_Title$ Part 1$2$" {
		t.Fatalf("得到 %q", got)
	}
}

func TestMatchesExt(t *testing.T) {
	if !MatchesExt("/a/b.MP4", []string{"mkv", ".mp4"}) {
		t.Fatalf("应当匹配 .mp4")
	}
	if MatchesExt("/a/b.txt", []string{"mkv", ".mp4"}) {
		t.Fatalf("不应匹配 .txt")
	}
	if !MatchesExt("/a/b.txt", nil) {
		t.Fatalf("空规则应允许所有文件")
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	if err := os.WriteFile(src, []byte("video-bytes"), 0644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	dst := filepath.Join(dir, "lib", "movie.mp4")
	n, err := CopyFile(src, dst, CopyOptions{UseTemp: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if n != int64(len("video-bytes")) {
		t.Fatalf("写入 %d bytes", n)
	}
	if b, _ := os.ReadFile(dst); string(b) != "video-bytes" {
		t.Fatalf("内容不一致：%q", b)
	}
	if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("临时文件未清理")
	}

	if _, err := CopyFile(src, dst, CopyOptions{}); err == nil {
		t.Fatalf("目标已存在时应返回错误")
	}
	if _, err := CopyFile(src, dst, CopyOptions{OverwriteFile: true}); err != nil {
		t.Fatalf("覆盖时不期望错误：%v", err)
	}
}
