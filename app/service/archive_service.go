package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"film-resolver/app/config"
	"film-resolver/app/logger"
	"film-resolver/app/model"
	"film-resolver/app/reconcile"
	"film-resolver/app/utils/ffprobe"
	"film-resolver/app/utils/pathhelper"
)

// DurationInspector 读取本地视频时长（秒）
type DurationInspector func(ctx context.Context, path string) (float64, error)

// ArchiveOptions 归档参数
type ArchiveOptions struct {
	Prefix  string // 只处理以此开头的文件，为空时处理目录下所有文件
	Dest    string // 选中文件复制到的目录，为空时只评分
	Name    string // 目标文件名（不含扩展名），为空时使用条目标题
	Cleanup bool   // 复制成功后删除所有参与评分的文件
	Episode int    // 大于 0 时按剧集归档到 <Dest>/<Name>/E01.mp4
}

// ArchiveReport 归档结果
type ArchiveReport struct {
	Best  *model.ScoredCandidate  `json:"best,omitempty"`
	Files []model.ScoredCandidate `json:"files"`
	Dest  string                  `json:"dest,omitempty"`
}

// ArchiveService 对已下载的本地文件评分并选出最佳文件
type ArchiveService struct {
	scorer  reconcile.Scorer
	inspect DurationInspector
	logger  *logger.Logger
}

func NewArchiveService(cfg *config.Config, log *logger.Logger) *ArchiveService {
	binary := cfg.FFprobe.Binary
	return NewArchiveServiceWith(reconcile.NewScorer(cfg.Score), func(ctx context.Context, path string) (float64, error) {
		r, err := ffprobe.Inspect(ctx, binary, path)
		if err != nil {
			return 0, err
		}
		return r.DurationSeconds(), nil
	}, log)
}

// NewArchiveServiceWith 使用指定的时长读取函数，测试中替换 ffprobe
func NewArchiveServiceWith(scorer reconcile.Scorer, inspect DurationInspector, log *logger.Logger) *ArchiveService {
	return &ArchiveService{scorer: scorer, inspect: inspect, logger: log}
}

// Evaluate 为目录中的文件评分，合格的文件按得分降序排在前面
func (s *ArchiveService) Evaluate(ctx context.Context, dir string, target model.MediaTarget, prefix string) (*ArchiveReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	files := make([]model.ScoredCandidate, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files = append(files, s.scoreFile(ctx, filepath.Join(dir, entry.Name()), target))
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Score.Better(files[j].Score)
	})

	report := &ArchiveReport{Files: files}
	if len(files) > 0 && files[0].Score.Qualified {
		best := files[0]
		report.Best = &best
	}
	return report, nil
}

func (s *ArchiveService) scoreFile(ctx context.Context, path string, target model.MediaTarget) model.ScoredCandidate {
	ext := strings.ToLower(filepath.Ext(path))
	candidate := model.ScoredCandidate{
		Source:   path,
		FileName: filepath.Base(path),
		Ext:      ext,
		Size:     -1,
		Duration: -1,
		Score:    model.Disqualified(),
	}

	if !reconcile.IsVideoExt(ext) {
		return candidate
	}

	info, err := os.Stat(path)
	if err != nil {
		s.logger.Errorf("读取文件信息失败 %s: %v", path, err)
		return candidate
	}
	candidate.Size = info.Size()

	seconds, err := s.inspect(ctx, path)
	if err != nil || seconds <= 0 {
		s.logger.Errorf("读取视频时长失败 %s: %v", path, err)
		return candidate
	}
	candidate.Duration = int(seconds)

	candidate.Score = s.scorer.Score(reconcile.ScoreInput{
		Ext:       &ext,
		Durations: target.Durations,
		Subtype:   target.Subtype,
		Size:      candidate.Size,
		Duration:  candidate.Duration,
	})
	return candidate
}

// Archive 评分后把最佳文件复制到目标目录
func (s *ArchiveService) Archive(ctx context.Context, dir string, target model.MediaTarget, opts ArchiveOptions) (*ArchiveReport, error) {
	report, err := s.Evaluate(ctx, dir, target, opts.Prefix)
	if err != nil {
		return nil, err
	}
	if report.Best == nil {
		s.logger.Warnf("没有合格的视频文件: %s", target.Title)
		return report, nil
	}
	s.logger.Infof("选中文件 %s，得分 %s", report.Best.Source, report.Best.Score)
	if opts.Dest == "" {
		return report, nil
	}

	name := opts.Name
	if name == "" {
		name = target.Title
	}
	dst := filepath.Join(opts.Dest, pathhelper.SanitizeFileName(name)+report.Best.Ext)
	if opts.Episode > 0 {
		dst = filepath.Join(opts.Dest, pathhelper.SanitizeFileName(name), target.EpisodeFileName(opts.Episode, report.Best.Ext))
	}
	if _, err := pathhelper.CopyFile(report.Best.Source, dst, pathhelper.CopyOptions{UseTemp: true}); err != nil {
		return nil, fmt.Errorf("归档文件失败: %w", err)
	}
	report.Dest = dst

	if opts.Cleanup {
		for _, f := range report.Files {
			if f.Source == dst {
				continue
			}
			if err := os.Remove(f.Source); err != nil {
				s.logger.Warnf("删除文件失败 %s: %v", f.Source, err)
			}
		}
	}
	return report, nil
}
