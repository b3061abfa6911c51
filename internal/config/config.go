package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Provider names
const (
	ProviderOpenAI     = "openai"
	ProviderCompatible = "compatible"
	ProviderEcho       = "echo"
)

// MaxBatchSize 单批最多翻译单元数
const MaxBatchSize = 20

// Config 保存翻译服务的所有配置
type Config struct {
	TargetLang string `mapstructure:"target_lang"`

	// 模型配置
	Provider        string  `mapstructure:"provider"`
	Model           string  `mapstructure:"model"`
	APIKey          string  `mapstructure:"api_key"`
	BaseURL         string  `mapstructure:"base_url"`
	Temperature     float64 `mapstructure:"temperature"`
	BatchMaxTokens  int     `mapstructure:"batch_max_tokens"`  // 批量请求的最大输出 token
	SingleMaxTokens int     `mapstructure:"single_max_tokens"` // 单段请求的最大输出 token

	// 批处理与上下文
	BatchSize         int    `mapstructure:"batch_size"`
	BatchContextSize  int    `mapstructure:"batch_context_size"`  // 批量请求使用的历史条数
	SingleContextSize int    `mapstructure:"single_context_size"` // 单段请求使用的历史条数，同时是窗口容量
	ContextEntryRunes int    `mapstructure:"context_entry_runes"` // 每条历史的最大字符数
	GlossaryPath      string `mapstructure:"glossary_path"`

	// 重试与限流
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	MaxRetryDelay     time.Duration `mapstructure:"max_retry_delay"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"` // 0 表示不限制

	// 任务与服务
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	JobRetention      time.Duration `mapstructure:"job_retention"`
	ResultDir         string        `mapstructure:"result_dir"` // 为空时结果保存在内存中
	ListenAddr        string        `mapstructure:"listen_addr"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
	MaxPartBytes      int64         `mapstructure:"max_part_bytes"`      // 单个部件解压后的上限
	MaxExtractedBytes int64         `mapstructure:"max_extracted_bytes"` // 整个包解压后的上限

	Debug   bool `mapstructure:"debug"`
	Verbose bool `mapstructure:"verbose"`
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 如果配置路径已指定，则直接使用
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}

		v.AddConfigPath(home)
		v.AddConfigPath(".")
		v.SetConfigName(".docx-translator")
		v.SetConfigType("yaml")
	}

	// 读取环境变量，例如 TRANSLATOR_API_KEY
	v.SetEnvPrefix("TRANSLATOR")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，则使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if config.APIKey == "" {
		config.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &config, nil
}

// SaveConfig 将配置保存到文件
func SaveConfig(config *Config, configPath string) error {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		configPath = filepath.Join(home, ".docx-translator.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.MergeConfigMap(structToMap(config)); err != nil {
		return err
	}

	// 创建父目录（如果不存在）
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	return v.WriteConfig()
}

// NewDefaultConfig 创建一个新的默认配置
func NewDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	// 默认值均为基本类型，解码不会失败
	_ = v.Unmarshal(&config)
	return &config
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderCompatible:
		if c.APIKey == "" && c.BaseURL == "" {
			return fmt.Errorf("provider %q requires api_key", c.Provider)
		}
	case ProviderEcho:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Provider == ProviderCompatible && c.BaseURL == "" {
		return errors.New("provider \"compatible\" requires base_url")
	}
	if c.Model == "" && c.Provider != ProviderEcho {
		return errors.New("model must not be empty")
	}
	if c.BatchSize < 1 || c.BatchSize > MaxBatchSize {
		return fmt.Errorf("batch_size must be between 1 and %d, got %d", MaxBatchSize, c.BatchSize)
	}
	if c.SingleContextSize < 0 || c.BatchContextSize < 0 {
		return errors.New("context sizes must not be negative")
	}
	if c.BatchContextSize > c.SingleContextSize {
		return fmt.Errorf("batch_context_size (%d) must not exceed single_context_size (%d)",
			c.BatchContextSize, c.SingleContextSize)
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.MaxConcurrentJobs < 1 {
		return errors.New("max_concurrent_jobs must be at least 1")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.MaxPartBytes <= 0 || c.MaxExtractedBytes <= 0 {
		return errors.New("max_part_bytes and max_extracted_bytes must be positive")
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("target_lang", "Spanish")

	v.SetDefault("provider", ProviderOpenAI)
	v.SetDefault("model", "gpt-5-mini")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("temperature", 0.0)
	v.SetDefault("batch_max_tokens", 8192)
	v.SetDefault("single_max_tokens", 4096)

	v.SetDefault("batch_size", 10)
	v.SetDefault("batch_context_size", 3)
	v.SetDefault("single_context_size", 5)
	v.SetDefault("context_entry_runes", 200)
	v.SetDefault("glossary_path", "")

	v.SetDefault("max_retries", 3)
	v.SetDefault("retry_delay", time.Second)
	v.SetDefault("max_retry_delay", 30*time.Second)
	v.SetDefault("request_timeout", 300*time.Second)
	v.SetDefault("requests_per_minute", 0)

	v.SetDefault("max_concurrent_jobs", 2)
	v.SetDefault("job_retention", time.Hour)
	v.SetDefault("result_dir", "")
	v.SetDefault("listen_addr", ":5000")
	v.SetDefault("max_upload_bytes", int64(16<<20))
	v.SetDefault("max_part_bytes", int64(64<<20))
	v.SetDefault("max_extracted_bytes", int64(256<<20))

	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)
}

// structToMap 将结构体转换为map
func structToMap(config *Config) map[string]interface{} {
	return map[string]interface{}{
		"target_lang":         config.TargetLang,
		"provider":            config.Provider,
		"model":               config.Model,
		"api_key":             config.APIKey,
		"base_url":            config.BaseURL,
		"temperature":         config.Temperature,
		"batch_max_tokens":    config.BatchMaxTokens,
		"single_max_tokens":   config.SingleMaxTokens,
		"batch_size":          config.BatchSize,
		"batch_context_size":  config.BatchContextSize,
		"single_context_size": config.SingleContextSize,
		"context_entry_runes": config.ContextEntryRunes,
		"glossary_path":       config.GlossaryPath,
		"max_retries":         config.MaxRetries,
		"retry_delay":         config.RetryDelay.String(),
		"max_retry_delay":     config.MaxRetryDelay.String(),
		"request_timeout":     config.RequestTimeout.String(),
		"requests_per_minute": config.RequestsPerMinute,
		"max_concurrent_jobs": config.MaxConcurrentJobs,
		"job_retention":       config.JobRetention.String(),
		"result_dir":          config.ResultDir,
		"listen_addr":         config.ListenAddr,
		"max_upload_bytes":    config.MaxUploadBytes,
		"max_part_bytes":      config.MaxPartBytes,
		"max_extracted_bytes": config.MaxExtractedBytes,
		"debug":               config.Debug,
		"verbose":             config.Verbose,
	}
}
