package filewatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"film-resolver/app/config"
	"film-resolver/app/logger"
	"film-resolver/app/model"
	"film-resolver/app/reconcile"
	"film-resolver/app/utils/pathhelper"

	"github.com/fsnotify/fsnotify"
	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"
)

const (
	doneDir   = "done"
	failedDir = "failed"
	lockName  = ".inbox.lock"
)

// JobRunner 处理单个任务
type JobRunner interface {
	Run(ctx context.Context, job *model.Job) (*model.JobOutcome, error)
}

// JobWatcher 监控收件箱中的任务文件。
//
// 新放入的 *.json 任务立即处理，结果写入输出目录；全部解析的任务移动到 done/，
// 无效任务移动到 failed/，未完成的任务留在收件箱，按 cron 计划重试。
type JobWatcher struct {
	config        config.WatchConfig
	runner        JobRunner
	watcher       *fsnotify.Watcher
	scheduler     *cron.Cron
	lock          *flock.Flock
	logger        *logger.Logger
	readyInterval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	watching bool
	mu       sync.Mutex

	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// NewJobWatcher 创建收件箱监控器
func NewJobWatcher(cfg config.WatchConfig, runner JobRunner, log *logger.Logger) (*JobWatcher, error) {
	if cfg.Inbox == "" || cfg.Outbox == "" {
		return nil, fmt.Errorf("收件箱与输出目录必须配置")
	}
	return &JobWatcher{
		config:        cfg,
		runner:        runner,
		lock:          flock.New(filepath.Join(cfg.Inbox, lockName)),
		logger:        log,
		readyInterval: 500 * time.Millisecond,
		inflight:      make(map[string]struct{}),
	}, nil
}

// Start 启动监控，同一收件箱只允许一个进程监控
func (w *JobWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.watching {
		return fmt.Errorf("收件箱监控器已经在运行")
	}

	for _, dir := range []string{w.config.Inbox, w.config.Outbox, filepath.Join(w.config.Inbox, doneDir), filepath.Join(w.config.Inbox, failedDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建目录失败: %w", err)
		}
	}

	locked, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("锁定收件箱失败: %w", err)
	}
	if !locked {
		return fmt.Errorf("收件箱已被其他进程监控: %s", w.config.Inbox)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = w.lock.Unlock()
		return fmt.Errorf("创建文件监控器失败: %w", err)
	}
	if err := watcher.Add(w.config.Inbox); err != nil {
		watcher.Close()
		_ = w.lock.Unlock()
		return fmt.Errorf("添加监控目录失败: %w", err)
	}
	w.watcher = watcher

	w.scheduler = cron.New()
	if w.config.RetryCron != "" {
		if _, err := w.scheduler.AddFunc(w.config.RetryCron, func() { w.RetryPending() }); err != nil {
			watcher.Close()
			_ = w.lock.Unlock()
			return fmt.Errorf("重试计划无效: %w", err)
		}
	}

	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.watching = true

	w.wg.Add(1)
	go w.watchLoop()
	w.scheduler.Start()

	w.logger.Infof("收件箱监控已启动: %s -> %s", w.config.Inbox, w.config.Outbox)

	// 处理启动前已经存在的任务
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.RetryPending()
	}()
	return nil
}

// Stop 停止监控并释放收件箱锁
func (w *JobWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.watching {
		return nil
	}

	w.cancel()
	<-w.scheduler.Stop().Done()
	w.watcher.Close()
	w.wg.Wait()
	w.watching = false

	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("释放收件箱锁失败: %w", err)
	}
	w.logger.Info("收件箱监控已停止")
	return nil
}

func (w *JobWatcher) watchLoop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("收件箱监控错误: %v", err)

		case <-w.ctx.Done():
			return
		}
	}
}

func (w *JobWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.shouldProcessFile(event.Name) {
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.waitForFileReady(event.Name); err != nil {
			w.logger.Warnf("等待任务文件就绪失败: %s, 错误: %v", event.Name, err)
			return
		}
		if err := w.ProcessFile(w.ctx, event.Name); err != nil {
			w.logger.Errorf("处理任务文件失败: %s, 错误: %v", event.Name, err)
		}
	}()
}

// RetryPending 重新处理收件箱中所有未完成的任务
func (w *JobWatcher) RetryPending() {
	entries, err := os.ReadDir(w.config.Inbox)
	if err != nil {
		w.logger.Errorf("读取收件箱失败: %v", err)
		return
	}

	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, entry := range entries {
		path := filepath.Join(w.config.Inbox, entry.Name())
		if entry.IsDir() || !w.shouldProcessFile(path) {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if err := w.ProcessFile(ctx, path); err != nil {
			w.logger.Errorf("处理任务文件失败: %s, 错误: %v", path, err)
		}
	}
}

// shouldProcessFile 只处理收件箱根目录下的 json 文件
func (w *JobWatcher) shouldProcessFile(path string) bool {
	if filepath.Clean(filepath.Dir(path)) != filepath.Clean(w.config.Inbox) {
		return false
	}
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return pathhelper.MatchesExt(path, []string{"json"})
}

// waitForFileReady 等待文件大小稳定
func (w *JobWatcher) waitForFileReady(filePath string) error {
	timeout := time.After(30 * time.Second)
	var lastSize int64 = -1

	for {
		select {
		case <-timeout:
			return fmt.Errorf("等待文件就绪超时: %s", filePath)
		case <-w.ctx.Done():
			return w.ctx.Err()
		case <-time.After(w.readyInterval):
			info, err := os.Stat(filePath)
			if err != nil {
				return fmt.Errorf("获取文件信息失败: %w", err)
			}
			currentSize := info.Size()
			if currentSize == lastSize && currentSize > 0 {
				return nil
			}
			lastSize = currentSize
		}
	}
}

// ProcessFile 处理单个任务文件，同一文件同时只处理一次
func (w *JobWatcher) ProcessFile(ctx context.Context, path string) error {
	if !w.acquire(path) {
		return nil
	}
	defer w.release(path)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// 已被其他事件处理并移走
		return nil
	}

	job, err := readJob(path)
	if err != nil {
		w.logger.Warnf("任务文件无效，移动到 %s: %s, 错误: %v", failedDir, path, err)
		return w.moveTo(path, failedDir)
	}

	outcome, err := w.runner.Run(ctx, job)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if writeErr := w.writeOutcome(&model.JobOutcome{JobID: job.ID, Title: job.Target.Title, Error: err.Error()}); writeErr != nil {
			return writeErr
		}
		if errors.Is(err, reconcile.ErrInvalidInput) {
			return w.moveTo(path, failedDir)
		}
		return err
	}

	if err := w.writeOutcome(outcome); err != nil {
		return err
	}
	if outcome.Result.Satisfied() {
		w.logger.Infof("任务 %s（%s）已完成", outcome.JobID, outcome.Title)
		return w.moveTo(path, doneDir)
	}
	w.logger.Infof("任务 %s（%s）未完成，等待下次重试", outcome.JobID, outcome.Title)
	return nil
}

func (w *JobWatcher) acquire(path string) bool {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	if _, ok := w.inflight[path]; ok {
		return false
	}
	w.inflight[path] = struct{}{}
	return true
}

func (w *JobWatcher) release(path string) {
	w.inflightMu.Lock()
	defer w.inflightMu.Unlock()
	delete(w.inflight, path)
}

// readJob 读取任务文件，没有 ID 时使用文件名
func readJob(path string) (*model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取任务文件失败: %w", err)
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("解析任务文件失败: %w", err)
	}
	if job.ID == "" {
		job.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &job, nil
}

func (w *JobWatcher) writeOutcome(outcome *model.JobOutcome) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化任务结果失败: %w", err)
	}
	path := filepath.Join(w.config.Outbox, pathhelper.SanitizeFileName(outcome.JobID)+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("写入任务结果失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("写入任务结果失败: %w", err)
	}
	return nil
}

func (w *JobWatcher) moveTo(path, sub string) error {
	dst := filepath.Join(w.config.Inbox, sub, filepath.Base(path))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	if err := os.Rename(path, dst); err != nil {
		return fmt.Errorf("移动任务文件失败: %w", err)
	}
	return nil
}
