package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// 执行策略
const (
	StrategySequential = "sequential"
	StrategyFanOut     = "fanout"
)

type Config struct {
	AppPort string

	// 为空时缓存只存在于进程内存中
	RedisAddr string
	// 为空时不启用历史归档
	PostgresDSN string

	CronSpec string

	Strategy          string
	FetchTimeout      time.Duration // fan-out 模式下单个源的超时
	SequentialTimeout time.Duration // 串行模式下单个源的超时
	DetailTimeout     time.Duration // 详情页抓取（地点/媒体识别）的超时
	FetchDetail       bool

	SourcesFile string

	LogLevel    string
	LogEncoding string

	BasicAuthUser string
	BasicAuthPass string
}

func Load() *Config {
	// .env 不存在时忽略，环境变量优先
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "9000"),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		PostgresDSN:       getEnv("POSTGRES_DSN", ""),
		CronSpec:          getEnv("CRON_SPEC", "@every 5m"),
		Strategy:          getEnv("REFRESH_STRATEGY", StrategyFanOut),
		FetchTimeout:      getDuration("FETCH_TIMEOUT", 6*time.Second),
		SequentialTimeout: getDuration("SEQUENTIAL_TIMEOUT", 15*time.Second),
		DetailTimeout:     getDuration("DETAIL_TIMEOUT", 5*time.Second),
		FetchDetail:       getBool("FETCH_DETAIL", true),
		SourcesFile:       getEnv("SOURCES_FILE", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogEncoding:       getEnv("LOG_ENCODING", "console"),
		BasicAuthUser:     getEnv("APP_BASIC_USER", ""),
		BasicAuthPass:     getEnv("APP_BASIC_PASS", ""),
	}
	if cfg.Strategy != StrategySequential {
		cfg.Strategy = StrategyFanOut
	}

	log.Printf("config loaded: port=%s cron=%s strategy=%s", cfg.AppPort, cfg.CronSpec, cfg.Strategy)
	return cfg
}

// SourceTimeout 按执行策略返回单个源的抓取超时
func (c *Config) SourceTimeout() time.Duration {
	if c.Strategy == StrategySequential {
		return c.SequentialTimeout
	}
	return c.FetchTimeout
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("warn: invalid duration %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func getBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// Brasilia 本地展示时区；系统缺少 tzdata 时退化为固定 -3 小时
var Brasilia *time.Location

func init() {
	Brasilia, _ = time.LoadLocation("America/Sao_Paulo")
	if Brasilia == nil {
		Brasilia = time.FixedZone("BRT", -3*60*60)
	}
}
