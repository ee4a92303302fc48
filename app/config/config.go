package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	JWT     JWTConfig     `mapstructure:"jwt"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Score   ScoreConfig   `mapstructure:"score"`
	Collect CollectConfig `mapstructure:"collect"`
	Watch   WatchConfig   `mapstructure:"watch"`
	FFprobe FFprobeConfig `mapstructure:"ffprobe"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	Dir        string `mapstructure:"dir"`         // 文件输出目录
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

type JWTConfig struct {
	Secret     string `mapstructure:"secret"`      // JWT 密钥
	ExpireTime int    `mapstructure:"expire_time"` // 过期时间（小时）
	Issuer     string `mapstructure:"issuer"`      // 签发者
}

// ProbeConfig 远程存在性探测配置
type ProbeConfig struct {
	Interval      time.Duration `mapstructure:"interval"`       // 同一主机两次探测的最小间隔
	Timeout       time.Duration `mapstructure:"timeout"`        // 单次探测超时
	Retries       int           `mapstructure:"retries"`        // 瞬时网络错误的重试次数
	RetryWait     time.Duration `mapstructure:"retry_wait"`     // 重试等待
	UserAgent     string        `mapstructure:"user_agent"`     // 请求 UA
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`      // 探测结果缓存时长
	Concurrency   int           `mapstructure:"concurrency"`    // 同时探测的模板数
	RequireLength bool          `mapstructure:"require_length"` // 缺少 Content-Length 时视为不存在
}

// ScoreConfig 质量评分配置
type ScoreConfig struct {
	MovieKbps        int `mapstructure:"movie_kbps"`
	SeriesKbps       int `mapstructure:"series_kbps"`
	ToleranceSeconds int `mapstructure:"tolerance_seconds"` // 电影时长允许误差（秒）
}

// CollectConfig 资源收集配置
type CollectConfig struct {
	JunkSites   []string      `mapstructure:"junk_sites"`
	PanHosts    []string      `mapstructure:"pan_hosts"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
}

// WatchConfig 任务收件箱监控配置
type WatchConfig struct {
	Inbox     string `mapstructure:"inbox"`
	Outbox    string `mapstructure:"outbox"`
	RetryCron string `mapstructure:"retry_cron"`
}

type FFprobeConfig struct {
	Binary string `mapstructure:"binary"`
}

func Load() *Config {
	setDefaults()

	// 读取配置
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("未找到配置文件，使用默认配置")
		} else {
			log.Fatalf("读取配置文件出错: %v", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := validateConfig(&config); err != nil {
		log.Fatalf("配置验证失败: %v", err)
	}

	return &config
}

// Default 返回只包含默认值的配置，测试与无配置文件场景使用
func Default() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}
	return &config
}

// setDefaults 设置默认配置
func setDefaults() {
	viper.SetDefault("server.port", "5000")

	// 日志默认配置
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("log.output", "stdout")
	viper.SetDefault("log.dir", "data/logs")
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// JWT默认配置
	viper.SetDefault("jwt.secret", "your-secret-key-change-in-production")
	viper.SetDefault("jwt.expire_time", 24) // 24小时
	viper.SetDefault("jwt.issuer", "film-resolver")

	// 探测默认配置
	viper.SetDefault("probe.interval", 3*time.Second)
	viper.SetDefault("probe.timeout", 30*time.Second)
	viper.SetDefault("probe.retries", 3)
	viper.SetDefault("probe.retry_wait", 10*time.Second)
	viper.SetDefault("probe.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	viper.SetDefault("probe.cache_ttl", 30*time.Minute)
	viper.SetDefault("probe.concurrency", 4)
	viper.SetDefault("probe.require_length", true)

	// 评分默认配置
	viper.SetDefault("score.movie_kbps", 2500)
	viper.SetDefault("score.series_kbps", 1500)
	viper.SetDefault("score.tolerance_seconds", 60)

	// 收集默认配置
	viper.SetDefault("collect.junk_sites", []string{"yutou.tv", "80s.la", "80s.im", "2tu.cc", "bofang.cc:", "dl.y80s.net", "80s.bz", "xubo.cc"})
	viper.SetDefault("collect.pan_hosts", []string{"pan.baidu.com"})
	viper.SetDefault("collect.page_timeout", 20*time.Second)

	// 收件箱默认配置
	viper.SetDefault("watch.inbox", "data/inbox")
	viper.SetDefault("watch.outbox", "data/outbox")
	viper.SetDefault("watch.retry_cron", "@every 6h")

	viper.SetDefault("ffprobe.binary", "ffprobe")
}

// validateConfig 验证配置的有效性
func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT密钥未设置")
	}
	if config.Probe.Concurrency <= 0 {
		return fmt.Errorf("probe.concurrency 必须大于 0")
	}
	if config.Probe.Retries < 0 {
		return fmt.Errorf("probe.retries 不能为负数")
	}
	if config.Score.MovieKbps <= 0 || config.Score.SeriesKbps <= 0 {
		return fmt.Errorf("score 码率必须大于 0")
	}
	if config.Score.ToleranceSeconds < 0 {
		return fmt.Errorf("score.tolerance_seconds 不能为负数")
	}
	return nil
}
