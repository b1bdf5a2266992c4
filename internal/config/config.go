package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Elastic  ElasticConfig
	AI       AIConfig
	Queue    QueueConfig
	Worker   WorkerConfig
	Models   []ModelLimits
	Auth     AuthConfig
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string
	Environment string
	Version     string
	Debug       bool
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string
	Port         int
	Mode         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ElasticConfig Elasticsearch配置
type ElasticConfig struct {
	Host        string
	Username    string
	Password    string
	IndexPrefix string
}

// AIConfig 推理与向量化配置
type AIConfig struct {
	Provider  string // openai | ollama | workersai
	OpenAI    OpenAIConfig
	Ollama    OllamaConfig
	WorkersAI WorkersAIConfig
	Embedding EmbeddingConfig
}

// OpenAIConfig OpenAI 兼容接口配置
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout int
}

// OllamaConfig 本地模型配置
type OllamaConfig struct {
	BaseURL string
	Model   string
	Timeout int
}

// WorkersAIConfig Workers AI 风格的 SSE 推理接口
type WorkersAIConfig struct {
	AccountID string
	APIToken  string
	BaseURL   string
	Model     string
	Timeout   int
}

// EmbeddingConfig Embedding配置
type EmbeddingConfig struct {
	Provider   string // dashscope | openai | ollama
	Model      string
	APIKey     string
	BaseURL    string
	Timeout    int
	Dimensions int
}

// QueueConfig 运行队列配置
type QueueConfig struct {
	Driver       string // redis | nats
	Stream       string
	Group        string
	Consumer     string
	BatchSize    int
	BlockTimeout int // 毫秒
	ClaimIdle    int // 秒，超过该时长未 ack 的消息会被重新投递
	NATSURL      string
}

// WorkerConfig 运行处理器配置
type WorkerConfig struct {
	Concurrency int
	// MarkFailedOnError 为 true 时，处理出错的运行会被标记为 failed；
	// 默认保持原状态（停留在 in_progress）。
	MarkFailedOnError bool
	MetricsAddr       string
}

// ModelLimits 单个模型的 token 限额
type ModelLimits struct {
	ID           string
	Tokens       int
	StreamTokens int
	Context      int
}

// AuthConfig API 鉴权配置，JWTSecret 为空时不校验
type AuthConfig struct {
	JWTSecret string
}

// Load 加载配置
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// 环境变量
	v.SetEnvPrefix("NEXT_ASSISTANTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetAddr 获取服务器地址
func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetAddr 获取 Redis 地址
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ChatModel 当前 provider 的默认对话模型
func (c *AIConfig) ChatModel() string {
	switch c.Provider {
	case "openai":
		if c.OpenAI.Model == "" {
			return "gpt-4o-mini"
		}
		return c.OpenAI.Model
	case "ollama":
		return c.Ollama.Model
	default:
		return c.WorkersAI.Model
	}
}

// ModelName 实际使用的 embedding 模型
func (c *EmbeddingConfig) ModelName() string {
	if c.Model == "" && (c.Provider == "dashscope" || c.Provider == "") {
		return "text-embedding-v3"
	}
	return c.Model
}

// Block 阻塞读取的最长等待时间
func (c *QueueConfig) Block() time.Duration {
	return time.Duration(c.BlockTimeout) * time.Millisecond
}

// MinIdle 消息被重新认领前的最短空闲时间
func (c *QueueConfig) MinIdle() time.Duration {
	return time.Duration(c.ClaimIdle) * time.Second
}

func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "next-assistants")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.debug", true)

	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "next_assistants")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.maxLifetime", 300)

	// Redis
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Elastic
	v.SetDefault("elastic.host", "http://localhost:9200")
	v.SetDefault("elastic.indexPrefix", "next_assistants")

	// AI
	v.SetDefault("ai.provider", "workersai")
	v.SetDefault("ai.openai.baseUrl", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.model", "gpt-4o-mini")
	v.SetDefault("ai.ollama.baseUrl", "http://localhost:11434")
	v.SetDefault("ai.workersai.baseUrl", "https://api.cloudflare.com/client/v4/accounts")
	v.SetDefault("ai.workersai.model", "@cf/meta/llama-2-7b-chat-fp16")
	v.SetDefault("ai.workersai.timeout", 120)
	v.SetDefault("ai.embedding.provider", "dashscope")
	v.SetDefault("ai.embedding.dimensions", 1024)

	// Queue
	v.SetDefault("queue.driver", "redis")
	v.SetDefault("queue.stream", "runs")
	v.SetDefault("queue.group", "run-processor")
	v.SetDefault("queue.consumer", "worker")
	v.SetDefault("queue.batchSize", 10)
	v.SetDefault("queue.blockTimeout", 5000)
	v.SetDefault("queue.claimIdle", 300)
	v.SetDefault("queue.natsUrl", "nats://localhost:4222")

	// Worker
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.markFailedOnError", false)
	v.SetDefault("worker.metricsAddr", ":9090")

	// 模型 token 限额，模型 ID 含 "."，不能作为 viper 的 key
	v.SetDefault("models", []map[string]any{
		{"id": "@cf/meta/llama-2-7b-chat-fp16", "tokens": 256, "streamTokens": 2500, "context": 3072},
		{"id": "@cf/meta/llama-2-7b-chat-int8", "tokens": 256, "streamTokens": 1800, "context": 2048},
		{"id": "@cf/mistral/mistral-7b-instruct-v0.1", "tokens": 256, "streamTokens": 1800},
		{"id": "@hf/thebloke/codellama-7b-instruct-awq", "tokens": 256, "streamTokens": 596},
	})
}
