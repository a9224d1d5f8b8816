// Package config 负责加载和管理应用程序的配置。
// 配置来源优先级：环境变量（含 .env） > YAML 配置文件 > 内置默认值。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Debug         bool                `mapstructure:"debug"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	JWT           JWTConfig           `mapstructure:"jwt"`
	Log           LogConfig           `mapstructure:"log"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Search        SearchConfig        `mapstructure:"search"`
	Weather       WeatherConfig       `mapstructure:"weather"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
}

// ServerConfig 存储 HTTP 服务相关的配置。
type ServerConfig struct {
	Port        string   `mapstructure:"port" validate:"required"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// 流式接口把完整回复切成若干块下发，块大小按字符计。
	StreamChunkSize    int `mapstructure:"stream_chunk_size" validate:"gt=0"`
	StreamChunkDelayMs int `mapstructure:"stream_chunk_delay_ms" validate:"gte=0"`
}

// DatabaseConfig 存储关系型数据库配置。URL 形如 postgres://、mysql://、sqlite://。
type DatabaseConfig struct {
	URL     string `mapstructure:"url" validate:"required"`
	NeonURL string `mapstructure:"neon_url"`
}

// RedisConfig 存储 Redis 的配置。Addr 为空时使用进程内存保存对话记忆。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 存储 JWT 相关的配置。
type JWTConfig struct {
	Secret                   string `mapstructure:"secret" validate:"required"`
	AccessTokenExpireMinutes int    `mapstructure:"access_token_expire_minutes" validate:"gt=0"`
	RefreshTokenExpireDays   int    `mapstructure:"refresh_token_expire_days" validate:"gt=0"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	Provider       string  `mapstructure:"provider" validate:"oneof=gemini openai"`
	APIKey         string  `mapstructure:"api_key" validate:"required"`
	GeminiAPIKey   string  `mapstructure:"gemini_api_key"`
	OpenAIAPIKey   string  `mapstructure:"openai_api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// SearchConfig 存储联网搜索服务的配置，APIKey 为空时搜索阶段总是返回失败结果。
type SearchConfig struct {
	APIKey         string `mapstructure:"api_key"`
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// WeatherConfig 存储天气与空气质量数据源的配置。
type WeatherConfig struct {
	OpenWeatherAPIKey  string `mapstructure:"openweather_api_key"`
	OpenWeatherBaseURL string `mapstructure:"openweather_base_url"`
	AirVisualAPIKey    string `mapstructure:"airvisual_api_key"`
	AirVisualBaseURL   string `mapstructure:"airvisual_base_url"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时不启用消息索引。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// Error 表示启动时的配置错误（缺失必填项或取值非法）。
type Error struct {
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("invalid configuration: %s", strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("invalid configuration: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// 各 provider 未显式指定模型时使用的默认模型。
const (
	DefaultGeminiModel = "gemini-2.0-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// 环境变量到配置键的映射，保持与部署环境中已有变量名一致。
var envBindings = map[string][]string{
	"debug":                        {"DEBUG"},
	"server.port":                  {"PORT"},
	"server.mode":                  {"GIN_MODE"},
	"database.url":                 {"DATABASE_URL"},
	"database.neon_url":            {"NEON_DATABASE_URL"},
	"redis.addr":                   {"REDIS_ADDR"},
	"redis.password":               {"REDIS_PASSWORD"},
	"jwt.secret":                   {"JWT_SECRET"},
	"llm.provider":                 {"LLM_PROVIDER"},
	"llm.api_key":                  {"LLM_API_KEY"},
	"llm.gemini_api_key":           {"GEMINI_API_KEY", "GEMINI_API_KEY_ALI"},
	"llm.openai_api_key":           {"OPENAI_API_KEY"},
	"llm.model":                    {"LLM_MODEL"},
	"llm.base_url":                 {"LLM_BASE_URL"},
	"search.api_key":               {"TAVILY_API_KEY"},
	"weather.openweather_api_key":  {"OPENWEATHER_API_KEY"},
	"weather.airvisual_api_key":    {"AIRVISUAL_API_KEY"},
	"kafka.brokers":                {"KAFKA_BROKERS"},
	"elasticsearch.addresses":      {"ELASTICSEARCH_ADDRESSES"},
	"elasticsearch.username":       {"ELASTICSEARCH_USERNAME"},
	"elasticsearch.password":       {"ELASTICSEARCH_PASSWORD"},
	"minio.endpoint":               {"MINIO_ENDPOINT"},
	"minio.access_key_id":          {"MINIO_ACCESS_KEY_ID"},
	"minio.secret_access_key":      {"MINIO_SECRET_ACCESS_KEY"},
	"minio.bucket_name":            {"MINIO_BUCKET_NAME"},
	"log.level":                    {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.stream_chunk_size", 80)
	v.SetDefault("server.stream_chunk_delay_ms", 50)
	v.SetDefault("jwt.access_token_expire_minutes", 30)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.temperature", 0.6)
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("search.base_url", "https://api.tavily.com")
	v.SetDefault("search.timeout_seconds", 15)
	v.SetDefault("weather.openweather_base_url", "https://api.openweathermap.org")
	v.SetDefault("weather.airvisual_base_url", "https://api.airvisual.com")
	v.SetDefault("weather.timeout_seconds", 10)
	v.SetDefault("kafka.topic", "message-index")
	v.SetDefault("kafka.group_id", "regenai-indexer")
	v.SetDefault("elasticsearch.index_name", "farm_messages")
	v.SetDefault("minio.bucket_name", "conversation-exports")
}

// Load 读取 .env、YAML 配置文件与环境变量，并校验必填项。
// configPath 指向的文件不存在时只使用默认值与环境变量。
func Load(configPath string) (*Config, error) {
	// .env 不存在是正常情况
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, &Error{Err: fmt.Errorf("读取配置文件失败: %w", err)}
			}
		}
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, &Error{Err: fmt.Errorf("绑定环境变量失败: %w", err)}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &Error{Err: fmt.Errorf("无法将配置解析到结构体中: %w", err)}
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize 处理派生字段：Neon 地址优先、按 provider 选择 API Key 与默认模型、DEBUG 模式下的日志设置。
func (c *Config) normalize() {
	if c.Database.NeonURL != "" {
		c.Database.URL = c.Database.NeonURL
	}
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.APIKey = c.LLM.GeminiAPIKey
		case "openai":
			c.LLM.APIKey = c.LLM.OpenAIAPIKey
		}
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = "https://api.openai.com/v1"
		}
		if c.LLM.Model == "" || c.LLM.Model == DefaultGeminiModel {
			c.LLM.Model = DefaultOpenAIModel
		}
	case "gemini":
		if c.LLM.Model == "" {
			c.LLM.Model = DefaultGeminiModel
		}
	}
	if c.Debug {
		c.Log.Level = "debug"
		c.Log.Format = "console"
		c.Server.Mode = "debug"
	}
}

// Validate 使用 validator 校验配置，返回 *Error 列出所有不合法的字段。
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &Error{Err: err}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", strings.TrimPrefix(fe.Namespace(), "Config."), fe.Tag()))
	}
	return &Error{Fields: fields, Err: err}
}
