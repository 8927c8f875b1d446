package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"slidecraft/backend/go/pkg/ratelimiter"
)

// AppInfo 对应 'app' 部分。
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // development / production
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ServerConfig 定义了 HTTP 服务的配置。
type ServerConfig struct {
	Address         string   `yaml:"address"`
	ShutdownTimeout string   `yaml:"shutdownTimeout"` // 例如: "10s"
	AllowedOrigins  []string `yaml:"allowedOrigins"`  // websocket Origin 的 glob 模式
}

// RenderConfig 控制幻灯片渲染。
type RenderConfig struct {
	AdaptiveLayout bool `yaml:"adaptiveLayout"`
	Viewport       int  `yaml:"viewport"` // 内容区域宽度 (px)
}

// StreamConfig 控制作业事件流的读取。
type StreamConfig struct {
	KeyPrefix    string `yaml:"keyPrefix"`    // 流的键为 KeyPrefix + jobId
	Field        string `yaml:"field"`        // 消息所在字段
	Block        string `yaml:"block"`        // XREAD 阻塞时长
	JobTopic     string `yaml:"jobTopic"`     // 作业请求的 Kafka 主题
	DebugTopic   string `yaml:"debugTopic"`   // 调试事件的 Kafka 主题
	ExportBucket string `yaml:"exportBucket"` // 导出文件使用的 MinIO 存储桶
}

// StoreConfig 选择持久化实现。
type StoreConfig struct {
	Driver        string `yaml:"driver"`       // memory, mongo, mysql
	Transactions  bool   `yaml:"transactions"` // MongoDB 事务需要副本集
	SeedTemplates bool   `yaml:"seedTemplates"`
	Workbook      string `yaml:"workbook"` // 可选的 xlsx 模板数据集
}

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig 定义了 MySQL 数据库的连接配置。
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 秒
}

// MinIOConfig 定义了 MinIO 对象存储的连接配置。
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// MongoConfig 定义了 MongoDB 数据库的连接配置。
type MongoConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topics  []string `yaml:"topics"` // 启动时自动创建
}

// DatabaseConfigs 包含所有外部依赖的连接配置。
type DatabaseConfigs struct {
	Redis   RedisConfig `yaml:"redis"`
	MySQL   MySQLConfig `yaml:"mysql"`
	MinIO   MinIOConfig `yaml:"minio"`
	MongoDB MongoConfig `yaml:"mongodb"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了按客户端限流的配置。
type RateLimiterConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Algorithm      string               `yaml:"algorithm"` // fixedWindow, slidingLog, slidingCounter, leakyBucket, tokenBucket
	IdleTTL        string               `yaml:"idleTTL"`   // 空闲客户端的回收时间
	FixedWindow    WindowConfig         `yaml:"fixedWindow"`
	SlidingLog     WindowConfig         `yaml:"slidingLog"`
	SlidingCounter SlidingCounterConfig `yaml:"slidingCounter"`
	LeakyBucket    BucketConfig         `yaml:"leakyBucket"`
	TokenBucket    BucketConfig         `yaml:"tokenBucket"`
}

// WindowConfig 用于固定窗口与滑动日志算法。
type WindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// SlidingCounterConfig 定义了滑动窗口计数器算法的配置。
type SlidingCounterConfig struct {
	Limit      int    `yaml:"limit"`
	Window     string `yaml:"window"`
	NumBuckets int    `yaml:"numBuckets"`
}

// BucketConfig 用于漏桶与令牌桶算法。
type BucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了熔断器的配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"server"`
	Render     RenderConfig     `yaml:"render"`
	Stream     StreamConfig     `yaml:"stream"`
	Store      StoreConfig      `yaml:"store"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

// Defaults 返回所有字段都有可用值的配置。
func Defaults() *AppConfig {
	cfg := &AppConfig{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults 只填充未设置的字段。
func (c *AppConfig) applyDefaults() {
	setString(&c.App.Name, "slidecraft")
	setString(&c.App.Environment, "development")
	setString(&c.Logger.Level, "info")
	setString(&c.Server.Address, ":8080")
	setString(&c.Server.ShutdownTimeout, "10s")
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	if c.Render.Viewport <= 0 {
		c.Render.Viewport = 960
	}
	setString(&c.Stream.KeyPrefix, "events:")
	setString(&c.Stream.Field, "message")
	setString(&c.Stream.Block, "5s")
	setString(&c.Stream.JobTopic, "deck_jobs")
	setString(&c.Stream.DebugTopic, "deck_debug_events")
	setString(&c.Stream.ExportBucket, c.Databases.MinIO.Bucket)
	setString(&c.Stream.ExportBucket, "slidecraft-exports")
	setString(&c.Store.Driver, "memory")

	rl := &c.Middleware.RateLimiter
	setString(&rl.Algorithm, ratelimiter.AlgorithmTokenBucket)
	setString(&rl.IdleTTL, "10m")
	if rl.TokenBucket.Rate <= 0 {
		rl.TokenBucket = BucketConfig{Rate: 1, Capacity: 5}
	}
	cb := &c.Middleware.CircuitBreaker
	if cb.FailureThreshold == 0 {
		cb.FailureThreshold = 5
	}
	if cb.SuccessThreshold == 0 {
		cb.SuccessThreshold = 1
	}
	setString(&cb.Timeout, "30s")
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

// Duration 解析时长字符串；空字符串返回 fallback。
func Duration(s string, fallback time.Duration) (time.Duration, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("无效的时长 %q: %w", s, err)
	}
	return d, nil
}

// Settings 把限流配置转换为 ratelimiter.Settings。
func (c RateLimiterConfig) Settings() (ratelimiter.Settings, error) {
	s := ratelimiter.Settings{Algorithm: c.Algorithm}
	var (
		window string
		err    error
	)
	switch c.Algorithm {
	case ratelimiter.AlgorithmFixedWindow:
		s.Limit, window = c.FixedWindow.Limit, c.FixedWindow.Window
	case ratelimiter.AlgorithmSlidingLog:
		s.Limit, window = c.SlidingLog.Limit, c.SlidingLog.Window
	case ratelimiter.AlgorithmSlidingCounter:
		s.Limit, window, s.NumBuckets = c.SlidingCounter.Limit, c.SlidingCounter.Window, c.SlidingCounter.NumBuckets
	case ratelimiter.AlgorithmLeakyBucket:
		s.Rate, s.Capacity = c.LeakyBucket.Rate, c.LeakyBucket.Capacity
	case ratelimiter.AlgorithmTokenBucket, "":
		s.Rate, s.Capacity = c.TokenBucket.Rate, c.TokenBucket.Capacity
	default:
		return s, fmt.Errorf("不支持的限流算法: %s", c.Algorithm)
	}
	if s.Window, err = Duration(window, time.Minute); err != nil {
		return s, err
	}
	return s, nil
}

// LoadConfig 从指定路径加载 YAML 配置并填充默认值。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	switch c.Store.Driver {
	case "memory", "mongo", "mysql":
	default:
		return fmt.Errorf("未知的存储驱动: %s", c.Store.Driver)
	}
	for _, d := range []string{c.Server.ShutdownTimeout, c.Stream.Block, c.Middleware.RateLimiter.IdleTTL, c.Middleware.CircuitBreaker.Timeout} {
		if _, err := Duration(d, 0); err != nil {
			return err
		}
	}
	return nil
}
