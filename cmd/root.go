package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"film-resolver/app/config"
	"film-resolver/app/logger"
	"film-resolver/app/model"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "film-resolver",
	Short:   "影视资源下载地址匹配工具",
	Long:    "从收集到的资源链接中为电影挑选最佳下载地址，为剧集补全每一集的下载地址",
	Version: "1.0.0",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件路径（默认 ./data/config.yaml 或 ./config.yaml）")
}

// initConfig 读取配置文件和环境变量（如果设置）
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 添加配置文件搜索路径
		viper.AddConfigPath("./data") // 相对于当前工作目录的 data 文件夹
		viper.AddConfigPath(".")      // 当前目录
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("RESOLVER")
	viper.AutomaticEnv() // 读取匹配的环境变量
}

// bootstrap 加载配置并创建日志器，命令结束时调用返回的清理函数
func bootstrap() (*config.Config, *logger.Logger, func()) {
	cfg := config.Load()
	l := logger.New(cfg.Log)
	return cfg, l, func() {
		// 标准错误不支持 Sync，忽略其错误
		_ = l.Close()
	}
}

// signalContext 收到 SIGINT/SIGTERM 时取消
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// readJobFile 读取任务文件，没有 ID 时使用文件名
func readJobFile(path string) (*model.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取任务文件失败: %w", err)
	}
	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("解析任务文件失败: %w", err)
	}
	return &job, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
