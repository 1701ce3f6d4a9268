package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Whisper WhisperConfig `mapstructure:"whisper"`
	Watcher WatcherConfig `mapstructure:"watcher"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`      // json 或 text
	Output     string `mapstructure:"output"`      // stdout 或 file
	MaxSize    int    `mapstructure:"max_size"`    // 兆字节
	MaxBackups int    `mapstructure:"max_backups"` // 备份数量
	MaxAge     int    `mapstructure:"max_age"`     // 天数
	Compress   bool   `mapstructure:"compress"`    // 是否压缩旧文件
}

// StorageConfig 对象存储配置
type StorageConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"` // 为空时使用 AWS 默认端点
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Prefix          string `mapstructure:"prefix"` // 扫描时的键前缀
}

// BatchConfig 批量转写配置
type BatchConfig struct {
	TimeWindowMinutes int      `mapstructure:"time_window_minutes"` // 发现窗口（分钟）
	MaxFileSize       int64    `mapstructure:"max_file_size"`       // 单文件大小上限（字节）
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	StagingRoot       string   `mapstructure:"staging_root"` // 本地暂存根目录
	Schedule          string   `mapstructure:"schedule"`     // cron 表达式，为空时不启用定时触发
}

// WhisperConfig 转写后端配置
type WhisperConfig struct {
	Mode           string `mapstructure:"mode"` // api 或 local
	APIBaseURL     string `mapstructure:"api_base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	BinaryPath     string `mapstructure:"binary_path"` // local 模式的 whisper.cpp 可执行文件
	ModelPath      string `mapstructure:"model_path"`  // local 模式的模型文件
	Language       string `mapstructure:"language"`
}

// WatcherConfig 本地收件目录配置
type WatcherConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
	OutputDir string `mapstructure:"output_dir"`
}

func Load() *Config {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		log.Fatalf("无法解码配置: %v", err)
	}

	// 验证配置
	if err := config.Validate(); err != nil {
		log.Fatalf("配置验证失败: %v", err)
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
	viper.SetDefault("log.max_size", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age", 28)
	viper.SetDefault("log.compress", true)

	// 批量转写默认配置
	viper.SetDefault("batch.time_window_minutes", 30)
	viper.SetDefault("batch.max_file_size", 100*1024*1024)
	viper.SetDefault("batch.allowed_extensions", []string{".mp3", ".mp4", ".m4a", ".wav", ".webm"})
	viper.SetDefault("batch.staging_root", "data/staging")

	// 转写后端默认配置
	viper.SetDefault("whisper.mode", "api")
	viper.SetDefault("whisper.api_base_url", "https://api.openai.com/v1")
	viper.SetDefault("whisper.model", "whisper-1")
	viper.SetDefault("whisper.timeout_seconds", 600)
	viper.SetDefault("whisper.language", "en")
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("服务器端口未设置")
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("存储桶未设置")
	}
	if c.Batch.TimeWindowMinutes <= 0 {
		return fmt.Errorf("发现窗口必须大于 0")
	}
	if c.Batch.MaxFileSize <= 0 {
		return fmt.Errorf("文件大小上限必须大于 0")
	}
	if len(c.Batch.AllowedExtensions) == 0 {
		return fmt.Errorf("允许的扩展名列表为空")
	}
	if c.Batch.StagingRoot == "" {
		return fmt.Errorf("暂存根目录未设置")
	}
	switch c.Whisper.Mode {
	case "api":
		if c.Whisper.APIBaseURL == "" {
			return fmt.Errorf("转写 API 地址未设置")
		}
	case "local":
		if c.Whisper.BinaryPath == "" || c.Whisper.ModelPath == "" {
			return fmt.Errorf("local 模式需要设置 whisper 可执行文件和模型路径")
		}
	default:
		return fmt.Errorf("未知的转写模式: %s", c.Whisper.Mode)
	}
	if c.Watcher.Enabled && c.Watcher.Directory == "" {
		return fmt.Errorf("本地监控已启用但未设置监控目录")
	}
	return nil
}
