package pathhelper

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyOptions 复制参数
type CopyOptions struct {
	UseTemp       bool // 先写入 .tmp 文件，完成后重命名
	OverwriteFile bool // 是否覆盖已存在的文件
}

// CopyFile 把 src 复制到 dst，返回写入的字节数
func CopyFile(src, dst string, opts CopyOptions) (written int64, err error) {
	if !opts.OverwriteFile {
		if _, err := os.Stat(dst); err == nil {
			return 0, fmt.Errorf("文件已存在: %s", dst)
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("打开源文件失败: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, fmt.Errorf("读取源文件信息失败: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("创建目标目录失败: %w", err)
	}

	targetPath := dst
	if opts.UseTemp {
		targetPath = dst + ".tmp"
	}

	out, err := os.Create(targetPath)
	if err != nil {
		return 0, fmt.Errorf("创建文件失败: %w", err)
	}
	defer func() {
		out.Close()
		// 复制失败时删除未完成的文件
		if err != nil {
			os.Remove(targetPath)
		}
	}()

	written, err = io.Copy(out, in)
	if err != nil {
		return 0, fmt.Errorf("写入文件内容失败: %w", err)
	}
	if err = out.Sync(); err != nil {
		return 0, fmt.Errorf("刷新文件到磁盘失败: %w", err)
	}
	if err = out.Close(); err != nil {
		return 0, fmt.Errorf("关闭文件失败: %w", err)
	}
	if written != info.Size() {
		err = fmt.Errorf("复制不完整: 期望 %d bytes, 实际 %d bytes", info.Size(), written)
		return 0, err
	}

	if opts.UseTemp {
		if err = os.Rename(targetPath, dst); err != nil {
			return 0, fmt.Errorf("重命名文件失败: %w", err)
		}
	}
	return written, nil
}
