package filewatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"film-resolver/app/config"
	"film-resolver/app/logger"
	"film-resolver/app/model"
	"film-resolver/app/reconcile"
)

// fakeRunner 按任务标题返回预设结果
type fakeRunner struct {
	mu    sync.Mutex
	calls []string
}

func (r *fakeRunner) Run(_ context.Context, job *model.Job) (*model.JobOutcome, error) {
	r.mu.Lock()
	r.calls = append(r.calls, job.ID)
	r.mu.Unlock()

	switch job.Target.Title {
	case "invalid":
		return nil, fmt.Errorf("任务 %s 匹配失败: %w", job.ID, reconcile.ErrInvalidInput)
	case "complete":
		return &model.JobOutcome{JobID: job.ID, Title: job.Target.Title, Result: &model.Result{
			Subtype:  model.SubtypeSeries,
			Episodes: model.EpisodeMap{"http://a.test/E1.mp4"},
		}}, nil
	default:
		return &model.JobOutcome{JobID: job.ID, Title: job.Target.Title, Result: &model.Result{
			Subtype:    model.SubtypeSeries,
			Episodes:   model.EpisodeMap{""},
			Unresolved: []int{1},
		}}, nil
	}
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestWatcher(t *testing.T, runner JobRunner) (*JobWatcher, config.WatchConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := config.WatchConfig{Inbox: filepath.Join(root, "inbox"), Outbox: filepath.Join(root, "outbox")}
	for _, dir := range []string{cfg.Inbox, cfg.Outbox} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
	}
	w, err := NewJobWatcher(cfg, runner, logger.NewNop())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	w.readyInterval = 20 * time.Millisecond
	return w, cfg
}

func writeJob(t *testing.T, dir, name, title string) string {
	t.Helper()
	data, _ := json.Marshal(model.Job{Target: model.MediaTarget{Title: title, Subtype: model.SubtypeSeries, EpisodeCount: 1}})
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("写入任务失败：%v", err)
	}
	return path
}

func readOutcome(t *testing.T, path string) model.JobOutcome {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取结果失败：%v", err)
	}
	var outcome model.JobOutcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		t.Fatalf("解析结果失败：%v", err)
	}
	return outcome
}

func TestProcessFile_CompleteMovesToDone(t *testing.T) {
	w, cfg := newTestWatcher(t, &fakeRunner{})
	path := writeJob(t, cfg.Inbox, "show.json", "complete")

	if err := w.ProcessFile(context.Background(), path); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Inbox, doneDir, "show.json")); err != nil {
		t.Fatalf("完成的任务应移动到 done：%v", err)
	}
	outcome := readOutcome(t, filepath.Join(cfg.Outbox, "show.json"))
	if outcome.JobID != "show" || !outcome.Result.Satisfied() {
		t.Fatalf("outcome=%+v", outcome)
	}
}

func TestProcessFile_IncompleteStaysInInbox(t *testing.T) {
	w, cfg := newTestWatcher(t, &fakeRunner{})
	path := writeJob(t, cfg.Inbox, "partial.json", "partial")

	if err := w.ProcessFile(context.Background(), path); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("未完成的任务应留在收件箱：%v", err)
	}
	outcome := readOutcome(t, filepath.Join(cfg.Outbox, "partial.json"))
	if len(outcome.Result.Unresolved) != 1 {
		t.Fatalf("outcome=%+v", outcome)
	}
}

func TestProcessFile_InvalidJobs(t *testing.T) {
	w, cfg := newTestWatcher(t, &fakeRunner{})

	broken := filepath.Join(cfg.Inbox, "broken.json")
	if err := os.WriteFile(broken, []byte("{not json"), 0644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if err := w.ProcessFile(context.Background(), broken); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Inbox, failedDir, "broken.json")); err != nil {
		t.Fatalf("无法解析的任务应移动到 failed：%v", err)
	}

	invalid := writeJob(t, cfg.Inbox, "invalid.json", "invalid")
	if err := w.ProcessFile(context.Background(), invalid); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Inbox, failedDir, "invalid.json")); err != nil {
		t.Fatalf("无效任务应移动到 failed：%v", err)
	}
	if outcome := readOutcome(t, filepath.Join(cfg.Outbox, "invalid.json")); outcome.Error == "" {
		t.Fatalf("无效任务应记录错误")
	}
}

func TestRetryPending_SkipsNonJobFiles(t *testing.T) {
	runner := &fakeRunner{}
	w, cfg := newTestWatcher(t, runner)
	writeJob(t, cfg.Inbox, "a.json", "partial")
	writeJob(t, cfg.Inbox, "b.json", "partial")
	if err := os.WriteFile(filepath.Join(cfg.Inbox, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if err := os.WriteFile(filepath.Join(cfg.Inbox, ".hidden.json"), []byte("{}"), 0644); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	w.RetryPending()
	if runner.count() != 2 {
		t.Fatalf("处理 %d 个任务，期望 2", runner.count())
	}
}

func TestJobWatcher_ProcessesDroppedFile(t *testing.T) {
	w, cfg := newTestWatcher(t, &fakeRunner{})
	if err := w.Start(); err != nil {
		t.Fatalf("启动失败：%v", err)
	}
	defer w.Stop()

	writeJob(t, cfg.Inbox, "dropped.json", "complete")

	deadline := time.Now().Add(5 * time.Second)
	done := filepath.Join(cfg.Inbox, doneDir, "dropped.json")
	for {
		if _, err := os.Stat(done); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("超时：任务未被处理")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestJobWatcher_InboxLock(t *testing.T) {
	first, cfg := newTestWatcher(t, &fakeRunner{})
	if err := first.Start(); err != nil {
		t.Fatalf("启动失败：%v", err)
	}
	defer first.Stop()

	second, err := NewJobWatcher(cfg, &fakeRunner{}, logger.NewNop())
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := second.Start(); err == nil {
		second.Stop()
		t.Fatalf("同一收件箱不应允许两个监控器")
	}
}

func TestJobWatcher_InvalidCron(t *testing.T) {
	w, _ := newTestWatcher(t, &fakeRunner{})
	w.config.RetryCron = "not a schedule"
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatalf("无效的重试计划应返回错误")
	}
}
